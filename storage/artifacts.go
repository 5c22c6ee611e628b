package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrMissingArtifact is returned when a required input artifact is not on disk.
var ErrMissingArtifact = errors.New("missing artifact")

// Artifact file names, also used as object keys by the uploader.
const (
	GeocodingFile    = "geocoding.csv"
	WeatherFile      = "weather_raw.csv"
	HotelsRawFile    = "hotels_raw.csv"
	DestinationsFile = "destinations_score.csv"
	HotelsCleanFile  = "hotels_clean.csv"
	MapFile          = "destinations_map.html"
)

// Artifacts resolves the on-disk layout of a run under the reports directory:
//
//	reports/raw/{geocoding,weather_raw,hotels_raw}.csv
//	reports/processed/{destinations_score,hotels_clean}.csv
//	reports/figures/destinations_map.html
type Artifacts struct {
	root string
}

// NewArtifacts roots the layout at reportsDir.
func NewArtifacts(reportsDir string) *Artifacts {
	return &Artifacts{root: reportsDir}
}

func (a *Artifacts) Geocoding() string    { return filepath.Join(a.root, "raw", GeocodingFile) }
func (a *Artifacts) Weather() string      { return filepath.Join(a.root, "raw", WeatherFile) }
func (a *Artifacts) HotelsRaw() string    { return filepath.Join(a.root, "raw", HotelsRawFile) }
func (a *Artifacts) Destinations() string { return filepath.Join(a.root, "processed", DestinationsFile) }
func (a *Artifacts) HotelsClean() string  { return filepath.Join(a.root, "processed", HotelsCleanFile) }
func (a *Artifacts) Map() string          { return filepath.Join(a.root, "figures", MapFile) }

// Uploads lists the five CSV artifacts pushed to the object store, in order.
func (a *Artifacts) Uploads() []string {
	return []string{a.Geocoding(), a.Weather(), a.HotelsRaw(), a.Destinations(), a.HotelsClean()}
}

// Exists reports whether path is a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Require returns ErrMissingArtifact when path does not exist.
func Require(path string) error {
	if !Exists(path) {
		return fmt.Errorf("%w: %s", ErrMissingArtifact, path)
	}
	return nil
}

// InvalidateCaches removes the geocoding and weather caches so the next run
// fetches them again. Caches that are already absent are ignored.
func (a *Artifacts) InvalidateCaches() ([]string, error) {
	var removed []string
	for _, p := range []string{a.Geocoding(), a.Weather()} {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed = append(removed, p)
		case errors.Is(err, os.ErrNotExist):
		default:
			return removed, fmt.Errorf("remove cache %s: %w", p, err)
		}
	}
	return removed, nil
}
