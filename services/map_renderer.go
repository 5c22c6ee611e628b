package services

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"kayak-destinations/models"
	"kayak-destinations/utils"
)

type mapMarker struct {
	City   string  `json:"city"`
	Rank   int     `json:"rank"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Score  float64 `json:"score"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([46.6, 2.4], 5);
L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
var markers = {{.Markers}};
markers.forEach(function (m) {
  L.circleMarker([m.lat, m.lon], {radius: m.radius, color: m.color, fillColor: m.color, fillOpacity: 0.7})
    .bindTooltip('#' + m.rank + ' ' + m.city + ' (' + m.score.toFixed(4) + ')')
    .addTo(map);
});
</script>
</body>
</html>
`))

// MapRenderer draws the scored destinations on a Leaflet map
type MapRenderer struct {
	logger *utils.Logger
}

// NewMapRenderer creates a new MapRenderer
func NewMapRenderer(logger *utils.Logger) *MapRenderer {
	return &MapRenderer{logger: logger}
}

// Render writes the HTML map to w. Destinations without coordinates are
// left off the map.
func (m *MapRenderer) Render(w io.Writer, destinations []*models.DestinationSummary) error {
	markers := make([]mapMarker, 0, len(destinations))
	for _, d := range destinations {
		if d.Lat == nil || d.Lon == nil {
			m.logger.Debug("No coordinates for '%s', not on the map", d.City)
			continue
		}
		markers = append(markers, mapMarker{
			City:   d.City.String(),
			Rank:   d.Rank,
			Lat:    *d.Lat,
			Lon:    *d.Lon,
			Score:  d.DestinationScore,
			Radius: 6 + 14*d.DestinationScore,
			Color:  scoreColor(d.DestinationScore),
		})
	}

	data := struct {
		Title   string
		Markers []mapMarker
	}{Title: "Destinations", Markers: markers}
	if err := mapTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render map: %w", err)
	}
	return nil
}

// RenderFile writes the map to path, creating parent directories.
func (m *MapRenderer) RenderFile(path string, destinations []*models.DestinationSummary) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create figures dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create map file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close map file: %w", cerr)
		}
	}()
	return m.Render(f, destinations)
}

// scoreColor goes from blue (0) to red (1).
func scoreColor(score float64) string {
	hue := 240 * (1 - clamp(score, 0, 1))
	return fmt.Sprintf("hsl(%.0f, 85%%, 50%%)", hue)
}
