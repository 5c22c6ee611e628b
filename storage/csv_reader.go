package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"kayak-destinations/models"
	"kayak-destinations/utils"
)

const utf8BOM = "\xef\xbb\xbf"

// CSVReader loads pipeline artifacts. Columns are looked up by header name,
// so extra columns are ignored; empty fields read as null.
type CSVReader struct {
	logger *utils.Logger
}

// NewCSVReader creates a new CSVReader
func NewCSVReader(logger *utils.Logger) *CSVReader {
	return &CSVReader{logger: logger}
}

// table is a parsed CSV file with a header index.
type table struct {
	path    string
	columns map[string]int
	rows    [][]string
}

func (t *table) get(row []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (r *CSVReader) load(path string, required ...string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if peek, err := br.Peek(len(utf8BOM)); err == nil && string(peek) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file, no header", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	t := &table{path: path, columns: make(map[string]int, len(header))}
	for i, h := range header {
		t.columns[strings.TrimSpace(h)] = i
	}
	for _, col := range required {
		if _, ok := t.columns[col]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	t.rows, err = cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// city validates the join key of a row, logging and rejecting empty names.
func (r *CSVReader) city(t *table, line int, row []string) (models.CityName, bool) {
	city, err := models.ParseCityName(t.get(row, "city"))
	if err != nil {
		r.logger.Warn("%s line %d: %v, row dropped", t.path, line+2, err)
		return "", false
	}
	return city, true
}

func (r *CSVReader) float(t *table, line int, row []string, col string) *float64 {
	raw := t.get(row, col)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		r.logger.Warn("%s line %d: unreadable %s %q, treated as null", t.path, line+2, col, raw)
		return nil
	}
	return &v
}

// maxPrice bounds a price cell before it is truncated to whole euros.
const maxPrice = math.MaxInt32

// ReadGeocoding loads the city,lat,lon artifact, keeping row order and
// duplicates.
func (r *CSVReader) ReadGeocoding(path string) ([]models.GeoPoint, error) {
	t, err := r.load(path, "city", "lat", "lon")
	if err != nil {
		return nil, err
	}
	out := make([]models.GeoPoint, 0, len(t.rows))
	for i, row := range t.rows {
		city, ok := r.city(t, i, row)
		if !ok {
			continue
		}
		out = append(out, models.GeoPoint{
			City: city,
			Lat:  r.float(t, i, row, "lat"),
			Lon:  r.float(t, i, row, "lon"),
		})
	}
	return out, nil
}

// ReadWeather loads the city,temp_day,rain artifact.
func (r *CSVReader) ReadWeather(path string) ([]models.WeatherObservation, error) {
	t, err := r.load(path, "city", "temp_day", "rain")
	if err != nil {
		return nil, err
	}
	out := make([]models.WeatherObservation, 0, len(t.rows))
	for i, row := range t.rows {
		city, ok := r.city(t, i, row)
		if !ok {
			continue
		}
		out = append(out, models.WeatherObservation{
			City:    city,
			TempDay: r.float(t, i, row, "temp_day"),
			Rain:    r.float(t, i, row, "rain"),
		})
	}
	return out, nil
}

// ReadHotels loads a hotel listing artifact. Scores with a comma decimal
// separator are accepted; a price with decimals is truncated.
func (r *CSVReader) ReadHotels(path string) ([]*models.HotelListing, error) {
	t, err := r.load(path, "city", "hotelName")
	if err != nil {
		return nil, err
	}
	out := make([]*models.HotelListing, 0, len(t.rows))
	for i, row := range t.rows {
		city, ok := r.city(t, i, row)
		if !ok {
			continue
		}
		h := &models.HotelListing{
			City:      city,
			HotelName: t.get(row, "hotelName"),
			Score:     r.float(t, i, row, "score"),
		}
		if p := r.float(t, i, row, "price_eur"); p != nil {
			if *p < 0 || *p > maxPrice {
				r.logger.Warn("%s line %d: price %v out of range, treated as null", t.path, i+2, *p)
			} else {
				h.PriceEUR = models.Int(int(*p))
			}
		}
		if u := t.get(row, "url"); u != "" {
			h.URL = &u
		}
		out = append(out, h)
	}
	return out, nil
}

// ReadDestinations loads the ranked summary table.
func (r *CSVReader) ReadDestinations(path string) ([]*models.DestinationSummary, error) {
	t, err := r.load(path, "rank", "city", "destination_score")
	if err != nil {
		return nil, err
	}
	out := make([]*models.DestinationSummary, 0, len(t.rows))
	for i, row := range t.rows {
		city, ok := r.city(t, i, row)
		if !ok {
			continue
		}
		rank, err := strconv.Atoi(t.get(row, "rank"))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid rank: %w", path, i+2, err)
		}
		d := &models.DestinationSummary{
			Rank:      rank,
			City:      city,
			TempMean:  r.float(t, i, row, "temp_mean"),
			RainSum:   r.float(t, i, row, "rain_sum"),
			PriceMean: r.float(t, i, row, "price_mean"),
			ScoreMean: r.float(t, i, row, "score_mean"),
			Lat:       r.float(t, i, row, "lat"),
			Lon:       r.float(t, i, row, "lon"),
		}
		if s := r.float(t, i, row, "destination_score"); s != nil {
			d.DestinationScore = *s
		}
		out = append(out, d)
	}
	return out, nil
}
