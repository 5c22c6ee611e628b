package pipeline

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"kayak-destinations/models"
	"kayak-destinations/providers/nominatim"
	"kayak-destinations/storage"
	"kayak-destinations/utils"
)

// Geocode resolves every configured city, in order and with duplicates, and
// writes the geocoding cache. A present cache is returned as is.
func (p *Pipeline) Geocode(ctx context.Context) ([]models.GeoPoint, error) {
	log := p.stageLogger(StageGeocode)
	path := p.artifacts.Geocoding()
	if storage.Exists(path) {
		p.deps.Metrics.IncSkipped(StageGeocode)
		log.Info("Using cached geocoding at %s", path)
		return p.reader.ReadGeocoding(path)
	}

	size := p.opts.GeocodeMemory
	if size <= 0 {
		size = 1
	}
	memo, err := lru.New[models.CityName, models.LookupOutcome](size)
	if err != nil {
		return nil, err
	}
	limiter := utils.NewRateLimiter(p.opts.GeocodeDelay)

	points := make([]models.GeoPoint, 0, len(p.cities))
	for _, city := range p.cities {
		if out, ok := memo.Get(city); ok {
			p.deps.Metrics.IncLookup("memo")
			points = append(points, out.Point)
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		out := p.lookup(ctx, city)
		memo.Add(city, out)
		if out.Reason != models.LookupOK {
			p.deps.Metrics.IncLookup(string(out.Reason))
			log.With("city", city.String()).Warn("Geocoding failed for '%s' (%s): %v", city, out.Reason, out.Err)
		} else {
			p.deps.Metrics.IncLookup("ok")
			log.Debug("%s -> %.4f, %.4f", city, *out.Point.Lat, *out.Point.Lon)
		}
		points = append(points, out.Point)
	}

	if err := p.writer.WriteGeocoding(path, points); err != nil {
		return nil, err
	}
	return points, nil
}

func (p *Pipeline) lookup(ctx context.Context, city models.CityName) models.LookupOutcome {
	out := models.LookupOutcome{Point: models.GeoPoint{City: city}}
	lat, lon, err := p.deps.Geocoder.Search(ctx, city)
	if err != nil {
		out.Reason = nominatim.Classify(err)
		out.Err = err
		return out
	}
	out.Point.Lat, out.Point.Lon = &lat, &lon
	return out
}

// Weather fetches the daily forecast of every geocoded city and writes the
// weather cache. Cities without coordinates or whose fetch fails contribute
// no rows. A present cache is returned as is.
func (p *Pipeline) Weather(ctx context.Context, geo []models.GeoPoint) ([]models.WeatherObservation, error) {
	log := p.stageLogger(StageWeather)
	path := p.artifacts.Weather()
	if storage.Exists(path) {
		p.deps.Metrics.IncSkipped(StageWeather)
		log.Info("Using cached weather at %s", path)
		return p.reader.ReadWeather(path)
	}

	fetched := make(map[models.CityName]bool, len(geo))
	var rows []models.WeatherObservation
	for _, g := range geo {
		if fetched[g.City] {
			continue
		}
		fetched[g.City] = true
		clog := log.With("city", g.City.String())

		if !g.HasCoordinates() {
			clog.Warn("No coordinates for '%s', weather skipped", g.City)
			continue
		}
		days, err := p.deps.Forecaster.Daily(ctx, *g.Lat, *g.Lon, p.opts.WeatherDays)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			clog.Warn("Weather fetch failed for '%s': %v", g.City, err)
			continue
		}
		for _, d := range days {
			rows = append(rows, models.WeatherObservation{City: g.City, TempDay: d.TempMax, Rain: d.Rain})
		}
		p.deps.Metrics.AddWeatherRows(len(days))
		clog.Debug("%d forecast days for '%s'", len(days), g.City)
	}

	if err := p.writer.WriteWeather(path, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Hotels scrapes every distinct city and writes the hotel artifact. This
// stage is never cached. A city whose attempts all fall short contributes no
// listings.
func (p *Pipeline) Hotels(ctx context.Context) ([]*models.HotelListing, error) {
	log := p.stageLogger(StageHotels)

	var all []*models.HotelListing
	for _, city := range distinct(p.cities) {
		res, err := p.deps.Hotels.Scrape(ctx, city, p.opts.MaxHotels)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		attempts := 0
		if res != nil {
			attempts = res.Attempts
		}
		if err != nil {
			p.deps.Metrics.AddHotels(0, attempts, true)
			log.With("city", city.String()).Error("No hotels for '%s': %v", city, err)
			continue
		}
		p.deps.Metrics.AddHotels(len(res.Hotels), attempts, false)
		all = append(all, res.Hotels...)
	}

	log.Info("%d hotels collected for %d cities", len(all), len(distinct(p.cities)))
	if err := p.writer.WriteHotels(p.artifacts.HotelsRaw(), all); err != nil {
		return nil, err
	}
	return all, nil
}

// Sinks pushes the artifacts to the object store and replaces the relational
// tables. Every failure is logged and swallowed.
func (p *Pipeline) Sinks(ctx context.Context) {
	log := p.stageLogger(StageSinks)

	if p.deps.Uploader == nil {
		log.Info("No bucket configured, S3 upload skipped")
	} else {
		failed := p.deps.Uploader.UploadAll(ctx, p.artifacts.Uploads())
		p.deps.Metrics.IncSinkFailure("s3", failed)
		if failed > 0 {
			log.Warn("%d of %d uploads failed", failed, len(p.artifacts.Uploads()))
		}
	}

	if p.deps.OpenTables == nil {
		log.Info("No database configured, table load skipped")
		return
	}
	if err := p.loadTables(ctx); err != nil {
		p.deps.Metrics.IncSinkFailure("postgres", 1)
		log.Error("PostgreSQL load failed: %v", err)
	}
}

func (p *Pipeline) loadTables(ctx context.Context) (err error) {
	destinations, err := p.reader.ReadDestinations(p.artifacts.Destinations())
	if err != nil {
		return err
	}
	hotels, err := p.reader.ReadHotels(p.artifacts.HotelsClean())
	if err != nil && !errors.Is(err, storage.ErrMissingArtifact) {
		return err
	}

	tables, err := p.deps.OpenTables(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tables.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return tables.ReplaceTables(ctx, destinations, hotels)
}
