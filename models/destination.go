package models

// DestinationSummary is one row of the scored output table.
type DestinationSummary struct {
	Rank             int
	City             CityName
	TempMean         *float64
	RainSum          *float64
	PriceMean        *float64
	ScoreMean        *float64
	Lat              *float64
	Lon              *float64
	DestinationScore float64
}

// ScoreFailure explains why a row's score fell back to zero.
type ScoreFailure string

const (
	ScoreOK             ScoreFailure = ""
	ScoreMissingWeather ScoreFailure = "missing_weather"
	ScoreInvalidInput   ScoreFailure = "invalid_input"
	ScoreComputePanic   ScoreFailure = "compute_panic"
)

// ScoreOutcome carries a computed score or the reason it could not be
// computed. Value is always 0 when Reason is not ScoreOK.
type ScoreOutcome struct {
	Value  float64
	Reason ScoreFailure
}

// ScoreBreakdown exposes the intermediate components of a destination score.
type ScoreBreakdown struct {
	Temp    float64
	Rain    float64
	Weather float64
	Price   float64
	Review  float64
	Total   float64
}

// RunReport summarizes one pipeline run for the terminal report.
type RunReport struct {
	RunID        string
	WeatherDays  int
	Destinations []*DestinationSummary
	Hotels       int
	Fallbacks    map[ScoreFailure]int
}
