package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kayak-destinations/models"
	"kayak-destinations/utils"
)

func week(city models.CityName, temps, rains []float64) []models.WeatherObservation {
	out := make([]models.WeatherObservation, len(temps))
	for i := range temps {
		out[i] = models.WeatherObservation{City: city, TempDay: f(temps[i]), Rain: f(rains[i])}
	}
	return out
}

func hotel(city models.CityName, name string, score float64, price int) *models.HotelListing {
	return &models.HotelListing{City: city, HotelName: name, Score: f(score), PriceEUR: models.Int(price)}
}

func byCity(rows []*models.DestinationSummary) map[models.CityName]*models.DestinationSummary {
	m := make(map[models.CityName]*models.DestinationSummary, len(rows))
	for _, r := range rows {
		m[r.City] = r
	}
	return m
}

func TestAggregateEndToEndExample(t *testing.T) {
	geo := []models.GeoPoint{{City: "Paris", Lat: f(48.85), Lon: f(2.35)}}
	weather := week("Paris", []float64{15, 16, 17, 18, 19, 20, 21}, []float64{0, 1, 2, 3, 4, 0, 0})
	hotels := []*models.HotelListing{
		hotel("Paris", "Hôtel A", 8.0, 100),
		hotel("Paris", "Hôtel B", 9.0, 200),
	}

	agg := NewAggregator(utils.NopLogger()).Aggregate(geo, weather, hotels)
	require.Len(t, agg.Destinations, 1)

	paris := agg.Destinations[0]
	assert.Equal(t, 1, paris.Rank)
	assert.InDelta(t, 18.0, *paris.TempMean, 1e-12)
	assert.InDelta(t, 10.0, *paris.RainSum, 1e-12)
	assert.InDelta(t, 150.0, *paris.PriceMean, 1e-12)
	assert.InDelta(t, 8.5, *paris.ScoreMean, 1e-12)
	assert.Equal(t, 48.85, *paris.Lat)
	assert.Equal(t, 0.4957, paris.DestinationScore)
	assert.Empty(t, agg.Fallbacks)
}

func TestAggregateLeftJoinsOntoGeocoding(t *testing.T) {
	geo := []models.GeoPoint{
		{City: "Lyon", Lat: f(45.76), Lon: f(4.83)},
		{City: "Nowhere"},
		{City: "Lyon", Lat: f(45.76), Lon: f(4.83)},
	}
	weather := week("Lyon", []float64{25, 25}, []float64{0, 0})
	weather = append(weather, models.WeatherObservation{City: "Extra", TempDay: f(30), Rain: f(0)})
	hotels := []*models.HotelListing{hotel("Orphan", "Hôtel", 9, 60)}

	agg := NewAggregator(utils.NopLogger()).Aggregate(geo, weather, hotels)
	require.Len(t, agg.Destinations, 3)
	rows := byCity(agg.Destinations)

	lyon := rows["Lyon"]
	require.NotNil(t, lyon)
	assert.Nil(t, lyon.PriceMean)
	assert.Nil(t, lyon.ScoreMean)
	// weather 0.8*0.7+0.3 = 0.86, neutral price 0.5
	assert.Equal(t, 0.716, lyon.DestinationScore)

	nowhere := rows["Nowhere"]
	require.NotNil(t, nowhere)
	assert.Nil(t, nowhere.TempMean)
	assert.Nil(t, nowhere.RainSum)
	assert.Zero(t, nowhere.DestinationScore)
	assert.Equal(t, 3, nowhere.Rank)

	extra := rows["Extra"]
	require.NotNil(t, extra)
	assert.Nil(t, extra.Lat)
	assert.Equal(t, 1, extra.Rank)

	assert.NotContains(t, rows, models.CityName("Orphan"))
	assert.Equal(t, 1, agg.Fallbacks[models.ScoreMissingWeather])
}

func TestAggregateNullWeatherValues(t *testing.T) {
	geo := []models.GeoPoint{{City: "Brest", Lat: f(48.39), Lon: f(-4.49)}}
	weather := []models.WeatherObservation{
		{City: "Brest", TempDay: f(12), Rain: nil},
		{City: "Brest", TempDay: nil, Rain: f(4)},
		{City: "Brest", TempDay: f(14), Rain: f(6)},
	}

	agg := NewAggregator(utils.NopLogger()).Aggregate(geo, weather, nil)
	brest := agg.Destinations[0]
	assert.InDelta(t, 13.0, *brest.TempMean, 1e-12)
	assert.InDelta(t, 10.0, *brest.RainSum, 1e-12)
}

func TestAggregateAllNullRainMeansMissingWeather(t *testing.T) {
	geo := []models.GeoPoint{
		{City: "Brest", Lat: f(48.39), Lon: f(-4.49)},
		{City: "Nice", Lat: f(43.7), Lon: f(7.27)},
	}
	weather := []models.WeatherObservation{
		{City: "Brest", TempDay: f(12), Rain: nil},
		{City: "Brest", TempDay: f(14), Rain: nil},
		{City: "Nice", TempDay: f(22), Rain: nil},
		{City: "Nice", TempDay: f(24), Rain: f(0)},
	}

	agg := NewAggregator(utils.NopLogger()).Aggregate(geo, weather, nil)
	rows := byCity(agg.Destinations)

	brest := rows["Brest"]
	require.NotNil(t, brest.TempMean)
	assert.InDelta(t, 13.0, *brest.TempMean, 1e-12)
	assert.Nil(t, brest.RainSum)
	assert.Zero(t, brest.DestinationScore)
	assert.Equal(t, 1, agg.Fallbacks[models.ScoreMissingWeather])

	nice := rows["Nice"]
	require.NotNil(t, nice.RainSum)
	assert.Zero(t, *nice.RainSum)
	assert.Positive(t, nice.DestinationScore)
}

func TestAggregateRankingAndTies(t *testing.T) {
	geo := []models.GeoPoint{{City: "Toulon"}, {City: "Ajaccio"}, {City: "Lille"}, {City: "Bastia"}}
	var weather []models.WeatherObservation
	weather = append(weather, week("Toulon", []float64{28}, []float64{0})...)
	weather = append(weather, week("Ajaccio", []float64{28}, []float64{0})...)
	weather = append(weather, week("Lille", []float64{10}, []float64{30})...)
	weather = append(weather, week("Bastia", []float64{28}, []float64{0})...)

	agg := NewAggregator(utils.NopLogger()).Aggregate(geo, weather, nil)
	require.Len(t, agg.Destinations, 4)

	var names []models.CityName
	for i, d := range agg.Destinations {
		assert.Equal(t, i+1, d.Rank)
		if i > 0 {
			assert.LessOrEqual(t, d.DestinationScore, agg.Destinations[i-1].DestinationScore)
		}
		names = append(names, d.City)
	}
	assert.Equal(t, []models.CityName{"Ajaccio", "Bastia", "Toulon", "Lille"}, names)
}

func TestAggregatePanickingScorerIsIsolated(t *testing.T) {
	geo := []models.GeoPoint{{City: "Pau"}, {City: "Tarbes"}}
	weather := append(week("Pau", []float64{20}, []float64{5}), week("Tarbes", []float64{21}, []float64{5})...)

	a := NewAggregator(utils.NopLogger()).WithScoreFunc(func(in ScoreInputs) models.ScoreOutcome {
		if *in.TempMean == 21 {
			panic("boom")
		}
		return Score(in, DefaultWeights)
	})
	agg := a.Aggregate(geo, weather, nil)
	rows := byCity(agg.Destinations)

	assert.Zero(t, rows["Tarbes"].DestinationScore)
	assert.Greater(t, rows["Pau"].DestinationScore, 0.0)
	assert.Equal(t, 1, agg.Fallbacks[models.ScoreComputePanic])
	assert.Equal(t, 1, rows["Pau"].Rank)
}

func TestAggregateIsDeterministic(t *testing.T) {
	geo := []models.GeoPoint{{City: "Nice"}, {City: "Cannes"}, {City: "Menton"}}
	var weather []models.WeatherObservation
	for _, c := range []models.CityName{"Nice", "Cannes", "Menton"} {
		weather = append(weather, week(c, []float64{22, 23}, []float64{1, 2})...)
	}
	hotels := []*models.HotelListing{hotel("Nice", "A", 8, 120), hotel("Cannes", "B", 9, 300)}

	first := NewAggregator(utils.NopLogger()).Aggregate(geo, weather, hotels)
	second := NewAggregator(utils.NopLogger()).Aggregate(geo, weather, hotels)
	assert.Equal(t, first, second)
}
