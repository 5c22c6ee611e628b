// Package models defines the records that flow between pipeline stages.
package models

import (
	"fmt"
	"strings"
)

// CityName is the join key shared by every stage. Matching is exact string
// equality: "St Malo" and "Saint-Malo" are two different cities.
type CityName string

// ParseCityName trims surrounding whitespace and rejects empty names.
func ParseCityName(raw string) (CityName, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("empty city name")
	}
	return CityName(name), nil
}

func (c CityName) String() string { return string(c) }

// GeoPoint is one row of the geocoding artifact. Lat and Lon are nil when the
// lookup failed or returned nothing.
type GeoPoint struct {
	City CityName
	Lat  *float64
	Lon  *float64
}

// HasCoordinates reports whether both coordinates are known.
func (g GeoPoint) HasCoordinates() bool {
	return g.Lat != nil && g.Lon != nil
}

// LookupFailure classifies why a geocoding lookup produced no point.
type LookupFailure string

const (
	LookupOK            LookupFailure = ""
	LookupNotFound      LookupFailure = "not_found"
	LookupRequestFailed LookupFailure = "request_failed"
	LookupDecodeFailed  LookupFailure = "decode_failed"
)

// LookupOutcome is the per-city result of the geocoder.
type LookupOutcome struct {
	Point  GeoPoint
	Reason LookupFailure
	Err    error
}

// Float returns a pointer to v, for building nullable fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
