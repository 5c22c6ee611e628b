package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"kayak-destinations/models"
	"kayak-destinations/utils"
)

var (
	geocodingHeader    = []string{"city", "lat", "lon"}
	weatherHeader      = []string{"city", "temp_day", "rain"}
	hotelsHeader       = []string{"city", "hotelName", "score", "price_eur", "url"}
	destinationsHeader = []string{"rank", "city", "temp_mean", "rain_sum", "price_mean", "score_mean", "lat", "lon", "destination_score"}
)

// CSVWriter writes pipeline artifacts as CSV files with a header row. Null
// values are written as empty fields.
type CSVWriter struct {
	logger *utils.Logger
}

// NewCSVWriter creates a new CSVWriter
func NewCSVWriter(logger *utils.Logger) *CSVWriter {
	return &CSVWriter{logger: logger}
}

// WriteGeocoding writes the city,lat,lon table.
func (w *CSVWriter) WriteGeocoding(path string, points []models.GeoPoint) error {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{p.City.String(), formatFloat(p.Lat), formatFloat(p.Lon)})
	}
	return w.write(path, geocodingHeader, rows)
}

// WriteWeather writes one row per city and day.
func (w *CSVWriter) WriteWeather(path string, obs []models.WeatherObservation) error {
	rows := make([][]string, 0, len(obs))
	for _, o := range obs {
		rows = append(rows, []string{o.City.String(), formatFloat(o.TempDay), formatFloat(o.Rain)})
	}
	return w.write(path, weatherHeader, rows)
}

// WriteHotels writes normalized hotel listings.
func (w *CSVWriter) WriteHotels(path string, hotels []*models.HotelListing) error {
	rows := make([][]string, 0, len(hotels))
	for _, h := range hotels {
		rows = append(rows, []string{
			h.City.String(),
			h.HotelName,
			formatFloat(h.Score),
			formatInt(h.PriceEUR),
			formatString(h.URL),
		})
	}
	return w.write(path, hotelsHeader, rows)
}

// WriteDestinations writes the ranked summary table.
func (w *CSVWriter) WriteDestinations(path string, destinations []*models.DestinationSummary) error {
	rows := make([][]string, 0, len(destinations))
	for _, d := range destinations {
		rows = append(rows, []string{
			strconv.Itoa(d.Rank),
			d.City.String(),
			formatFloat(d.TempMean),
			formatFloat(d.RainSum),
			formatFloat(d.PriceMean),
			formatFloat(d.ScoreMean),
			formatFloat(d.Lat),
			formatFloat(d.Lon),
			strconv.FormatFloat(d.DestinationScore, 'f', -1, 64),
		})
	}
	return w.write(path, destinationsHeader, rows)
}

// write goes through a temp file in the target directory and renames it into
// place, so an interrupted run never leaves a half-written cache behind.
func (w *CSVWriter) write(path string, header []string, rows [][]string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	writer := csv.NewWriter(tmp)
	if err = writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err = writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close CSV file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move CSV into place: %w", err)
	}

	w.logger.Info("Written %s (%d rows)", path, len(rows))
	return nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
