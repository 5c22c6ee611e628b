package services

import (
	"fmt"
	"sort"

	"kayak-destinations/models"
	"kayak-destinations/utils"
)

// ScoreFunc computes a destination score from per-city aggregates.
type ScoreFunc func(ScoreInputs) models.ScoreOutcome

// Aggregator joins the per-city datasets into scored, ranked destinations
type Aggregator struct {
	logger *utils.Logger
	score  ScoreFunc
}

// NewAggregator creates an Aggregator scoring with DefaultWeights
func NewAggregator(logger *utils.Logger) *Aggregator {
	return &Aggregator{
		logger: logger,
		score: func(in ScoreInputs) models.ScoreOutcome {
			return Score(in, DefaultWeights)
		},
	}
}

// WithScoreFunc replaces the scoring function.
func (a *Aggregator) WithScoreFunc(fn ScoreFunc) *Aggregator {
	a.score = fn
	return a
}

// Aggregation is the result of one aggregation pass.
type Aggregation struct {
	Destinations []*models.DestinationSummary
	Fallbacks    map[models.ScoreFailure]int
}

type weatherAgg struct {
	tempSum   float64
	tempCount int
	rainSum   float64
	rainCount int
}

type hotelAgg struct {
	priceSum   float64
	priceCount int
	scoreSum   float64
	scoreCount int
}

// Aggregate builds one summary row per city. The master list is the
// geocoding table in artifact order (first occurrence wins for duplicated
// names), followed by any city that only appears in the weather table.
// Weather and hotel aggregates are left-joined onto it by exact name.
func (a *Aggregator) Aggregate(geo []models.GeoPoint, weather []models.WeatherObservation, hotels []*models.HotelListing) *Aggregation {
	var order []models.CityName
	coords := make(map[models.CityName]models.GeoPoint)
	for _, g := range geo {
		prev, seen := coords[g.City]
		if !seen {
			order = append(order, g.City)
		}
		if !seen || (!prev.HasCoordinates() && g.HasCoordinates()) {
			coords[g.City] = g
		}
	}

	weatherByCity := make(map[models.CityName]*weatherAgg)
	for _, w := range weather {
		agg, ok := weatherByCity[w.City]
		if !ok {
			agg = &weatherAgg{}
			weatherByCity[w.City] = agg
			if _, known := coords[w.City]; !known {
				a.logger.Warn("Weather rows for '%s' have no geocoding row; keeping city without coordinates", w.City)
				coords[w.City] = models.GeoPoint{City: w.City}
				order = append(order, w.City)
			}
		}
		if w.TempDay != nil {
			agg.tempSum += *w.TempDay
			agg.tempCount++
		}
		if w.Rain != nil {
			agg.rainSum += *w.Rain
			agg.rainCount++
		}
	}

	hotelsByCity := make(map[models.CityName]*hotelAgg)
	for _, h := range hotels {
		agg, ok := hotelsByCity[h.City]
		if !ok {
			agg = &hotelAgg{}
			hotelsByCity[h.City] = agg
			if _, known := coords[h.City]; !known {
				a.logger.Warn("Hotels for '%s' match no destination; they are kept in the hotel table only", h.City)
			}
		}
		if h.PriceEUR != nil {
			agg.priceSum += float64(*h.PriceEUR)
			agg.priceCount++
		}
		if h.Score != nil {
			agg.scoreSum += *h.Score
			agg.scoreCount++
		}
	}

	result := &Aggregation{Fallbacks: make(map[models.ScoreFailure]int)}
	for _, city := range order {
		g := coords[city]
		row := &models.DestinationSummary{City: city, Lat: g.Lat, Lon: g.Lon}

		if w, ok := weatherByCity[city]; ok {
			if w.tempCount > 0 {
				row.TempMean = models.Float(w.tempSum / float64(w.tempCount))
			}
			if w.rainCount > 0 {
				row.RainSum = models.Float(w.rainSum)
			}
		}
		if h, ok := hotelsByCity[city]; ok {
			if h.priceCount > 0 {
				row.PriceMean = models.Float(h.priceSum / float64(h.priceCount))
			}
			if h.scoreCount > 0 {
				row.ScoreMean = models.Float(h.scoreSum / float64(h.scoreCount))
			}
		}

		outcome := a.safeScore(row)
		row.DestinationScore = outcome.Value
		if outcome.Reason != models.ScoreOK {
			result.Fallbacks[outcome.Reason]++
			a.logger.With("city", city.String()).Warn("Score for '%s' fell back to 0: %s", city, outcome.Reason)
		}
		result.Destinations = append(result.Destinations, row)
	}

	Rank(result.Destinations)
	return result
}

// safeScore isolates a single row: a panic inside the scoring function costs
// that row its score and nothing else.
func (a *Aggregator) safeScore(row *models.DestinationSummary) (outcome models.ScoreOutcome) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Scoring '%s' panicked: %v", row.City, r)
			outcome = models.ScoreOutcome{Value: 0, Reason: models.ScoreComputePanic}
		}
	}()
	outcome = a.score(InputsOf(row))
	if outcome.Reason != models.ScoreOK {
		outcome.Value = 0
	}
	return outcome
}

// Rank sorts destinations by score descending, ties by city name ascending,
// and assigns 1-based ranks.
func Rank(destinations []*models.DestinationSummary) {
	sort.SliceStable(destinations, func(i, j int) bool {
		if destinations[i].DestinationScore != destinations[j].DestinationScore {
			return destinations[i].DestinationScore > destinations[j].DestinationScore
		}
		return destinations[i].City < destinations[j].City
	})
	for i, d := range destinations {
		d.Rank = i + 1
	}
}

// Describe renders a one-line summary of a destination for logs.
func Describe(d *models.DestinationSummary) string {
	return fmt.Sprintf("#%d %s score=%.4f temp=%s rain=%s price=%s",
		d.Rank, d.City, d.DestinationScore, fmtOpt(d.TempMean), fmtOpt(d.RainSum), fmtOpt(d.PriceMean))
}

func fmtOpt(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *v)
}
