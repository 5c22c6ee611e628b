// Package pipeline runs the destination stages in order: geocode, weather,
// hotels, aggregate, map and sinks. Fetch stages are cached as whole files
// under the reports directory; a present cache skips the stage.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"kayak-destinations/models"
	"kayak-destinations/providers/openmeteo"
	"kayak-destinations/scraper/booking"
	"kayak-destinations/services"
	"kayak-destinations/storage"
	"kayak-destinations/utils"
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageAll       Stage = "all"
	StageGeocode   Stage = "geocode"
	StageWeather   Stage = "weather"
	StageHotels    Stage = "hotels"
	StageAggregate Stage = "aggregate"
	StageMap       Stage = "map"
	StageSinks     Stage = "sinks"
)

var stageOrder = []Stage{StageGeocode, StageWeather, StageHotels, StageAggregate, StageMap, StageSinks}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	if Stage(s) == StageAll {
		return StageAll, nil
	}
	for _, st := range stageOrder {
		if Stage(s) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// Geocoder resolves a city to coordinates.
type Geocoder interface {
	Search(ctx context.Context, city models.CityName) (lat, lon float64, err error)
}

// Forecaster returns daily forecasts for coordinates.
type Forecaster interface {
	Daily(ctx context.Context, lat, lon float64, days int) ([]openmeteo.Day, error)
}

// HotelSource returns the hotel listings of a city.
type HotelSource interface {
	Scrape(ctx context.Context, city models.CityName, max int) (*booking.Result, error)
}

// Deps are the collaborators of a pipeline. Nil sinks are skipped.
type Deps struct {
	Geocoder   Geocoder
	Forecaster Forecaster
	Hotels     HotelSource
	Uploader   storage.ArtifactUploader
	OpenTables func(ctx context.Context) (storage.TableLoader, error)
	Metrics    *Metrics
	Report     io.Writer
}

// Options are the run parameters.
type Options struct {
	RunID         string
	Cities        []string
	GeocodeDelay  time.Duration
	GeocodeMemory int
	WeatherDays   int
	MaxHotels     int
}

// Pipeline runs the stages against one reports directory
type Pipeline struct {
	opts      Options
	cities    []models.CityName
	deps      Deps
	artifacts *storage.Artifacts
	reader    *storage.CSVReader
	writer    *storage.CSVWriter
	logger    *utils.Logger
}

// New validates the city list and builds a pipeline. Empty city names are
// logged and dropped.
func New(opts Options, artifacts *storage.Artifacts, deps Deps, logger *utils.Logger) *Pipeline {
	cities := make([]models.CityName, 0, len(opts.Cities))
	for i, raw := range opts.Cities {
		city, err := models.ParseCityName(raw)
		if err != nil {
			logger.Warn("City #%d dropped: %v", i+1, err)
			continue
		}
		cities = append(cities, city)
	}
	if deps.Report == nil {
		deps.Report = io.Discard
	}
	return &Pipeline{
		opts:      opts,
		cities:    cities,
		deps:      deps,
		artifacts: artifacts,
		reader:    storage.NewCSVReader(logger),
		writer:    storage.NewCSVWriter(logger),
		logger:    logger,
	}
}

// Cities returns the validated destination list.
func (p *Pipeline) Cities() []models.CityName { return p.cities }

// Run executes one stage, or every stage in order for StageAll. A single
// stage reads its inputs from the artifacts of earlier runs. The returned
// report is nil unless aggregation ran.
func (p *Pipeline) Run(ctx context.Context, stage Stage) (*models.RunReport, error) {
	stages := []Stage{stage}
	if stage == StageAll {
		stages = stageOrder
	}

	var (
		geo    []models.GeoPoint
		report *models.RunReport
	)
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		start := time.Now()
		var err error
		switch st {
		case StageGeocode:
			geo, err = p.Geocode(ctx)
		case StageWeather:
			if geo == nil {
				geo, err = p.loadGeocoding()
				if err != nil {
					break
				}
			}
			_, err = p.Weather(ctx, geo)
		case StageHotels:
			_, err = p.Hotels(ctx)
		case StageAggregate:
			report, err = p.Aggregate()
		case StageMap:
			p.Map()
		case StageSinks:
			p.Sinks(ctx)
		default:
			err = fmt.Errorf("unknown stage %q", st)
		}
		p.deps.Metrics.ObserveStage(st, time.Since(start))
		if err != nil {
			return report, fmt.Errorf("stage %s: %w", st, err)
		}
	}
	p.deps.Metrics.MarkSuccess(time.Now())
	return report, nil
}

func (p *Pipeline) stageLogger(st Stage) *utils.Logger {
	return p.logger.With("stage", string(st))
}

func (p *Pipeline) loadGeocoding() ([]models.GeoPoint, error) {
	if err := storage.Require(p.artifacts.Geocoding()); err != nil {
		return nil, err
	}
	return p.reader.ReadGeocoding(p.artifacts.Geocoding())
}

// distinct drops repeated cities, keeping first occurrences in order.
func distinct(cities []models.CityName) []models.CityName {
	seen := make(map[models.CityName]struct{}, len(cities))
	out := make([]models.CityName, 0, len(cities))
	for _, c := range cities {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Aggregate joins the three raw artifacts, scores and ranks the
// destinations, and writes the processed tables.
func (p *Pipeline) Aggregate() (*models.RunReport, error) {
	log := p.stageLogger(StageAggregate)

	geo, err := p.loadGeocoding()
	if err != nil {
		return nil, err
	}
	if err := storage.Require(p.artifacts.Weather()); err != nil {
		return nil, err
	}
	weather, err := p.reader.ReadWeather(p.artifacts.Weather())
	if err != nil {
		return nil, err
	}

	var hotels []*models.HotelListing
	if storage.Exists(p.artifacts.HotelsRaw()) {
		hotels, err = p.reader.ReadHotels(p.artifacts.HotelsRaw())
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn("No hotel artifact at %s, scoring without hotels", p.artifacts.HotelsRaw())
	}

	agg := services.NewAggregator(log).Aggregate(geo, weather, hotels)
	for reason, n := range agg.Fallbacks {
		p.deps.Metrics.IncFallback(string(reason), n)
	}

	if err := p.writer.WriteDestinations(p.artifacts.Destinations(), agg.Destinations); err != nil {
		return nil, err
	}
	if err := p.writer.WriteHotels(p.artifacts.HotelsClean(), hotels); err != nil {
		return nil, err
	}

	for _, d := range agg.Destinations {
		log.Debug("%s", services.Describe(d))
	}
	report := &models.RunReport{
		RunID:        p.opts.RunID,
		WeatherDays:  p.opts.WeatherDays,
		Destinations: agg.Destinations,
		Hotels:       len(hotels),
		Fallbacks:    agg.Fallbacks,
	}
	services.PrintLeaderboard(p.deps.Report, report, 5)
	return report, nil
}

// Map renders the destinations map. Failures are logged and never abort the
// run.
func (p *Pipeline) Map() {
	log := p.stageLogger(StageMap)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Map rendering panicked: %v", r)
		}
	}()

	destinations, err := p.reader.ReadDestinations(p.artifacts.Destinations())
	if err != nil {
		log.Error("Map skipped: %v", err)
		return
	}
	if err := services.NewMapRenderer(log).RenderFile(p.artifacts.Map(), destinations); err != nil {
		log.Error("Map rendering failed: %v", err)
		return
	}
	log.Info("Map written to %s", p.artifacts.Map())
}
