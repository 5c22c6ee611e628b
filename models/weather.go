package models

// WeatherObservation is one forecast day for a city. Day order is positional
// within a city; there is no explicit date column.
type WeatherObservation struct {
	City    CityName
	TempDay *float64 // daily max temperature, °C
	Rain    *float64 // daily precipitation sum, mm
}
