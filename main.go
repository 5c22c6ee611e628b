package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"kayak-destinations/config"
	"kayak-destinations/dashboard"
	"kayak-destinations/pipeline"
	"kayak-destinations/providers/nominatim"
	"kayak-destinations/providers/openmeteo"
	"kayak-destinations/scraper/booking"
	"kayak-destinations/storage"
	"kayak-destinations/utils"
)

const usage = `Usage:
  kayak run   [-stage all|geocode|weather|hotels|aggregate|map|sinks] [-refresh] [-config file] [-v]
  kayak serve [-addr :8080] [-config file] [-v]
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "run":
		return runPipeline(ctx, args[1:], stdout, stderr)
	case "serve":
		return runServe(ctx, args[1:], stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

func loadConfig(path string, logger *utils.Logger) (*config.Config, bool) {
	cfg, err := config.Load(path)
	if err != nil {
		logger.Error("Cannot load configuration: %v", err)
		return nil, false
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		return nil, false
	}
	return cfg, true
}

func runPipeline(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	stageName := fs.String("stage", string(pipeline.StageAll), "stage to run")
	refresh := fs.Bool("refresh", false, "delete the geocoding and weather caches first")
	configPath := fs.String("config", "", "optional YAML config file")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	stage, err := pipeline.ParseStage(*stageName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	// ================== Bootstrap ====================
	runID := uuid.NewString()
	logger := utils.NewLogger(*verbose).With("run_id", runID)
	cfg, ok := loadConfig(*configPath, logger)
	if !ok {
		return 1
	}

	logger.Info("Kayak destinations pipeline, stage=%s", stage)
	logger.Info("Cities: %d | Weather days: %d | Hotels per city: %d (min %d) | Retries: %d",
		len(cfg.Cities), cfg.WeatherDays, cfg.MaxHotelsPerCity, cfg.MinHotelsPerCity, cfg.ScrapeRetries)

	artifacts := storage.NewArtifacts(cfg.ReportsDir)
	if *refresh {
		removed, err := artifacts.InvalidateCaches()
		if err != nil {
			logger.Error("Cannot refresh caches: %v", err)
			return 1
		}
		for _, p := range removed {
			logger.Info("Cache removed: %s", p)
		}
	}

	// =============== Collaborators ===================================
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	session := booking.NewSession(booking.SessionOptions{
		Headless:        cfg.Headless,
		PageLoadTimeout: cfg.PageLoadTimeout,
	}, logger)
	defer session.Close()

	metrics := pipeline.NewMetrics()
	deps := pipeline.Deps{
		Geocoder:   nominatim.NewClient(cfg.NominatimURL, cfg.UserAgent, httpClient),
		Forecaster: openmeteo.NewClient(cfg.OpenMeteoURL, httpClient),
		Hotels: booking.NewScraper(session, booking.Options{
			BaseURL:      cfg.BookingURL,
			MinListings:  cfg.MinHotelsPerCity,
			Retries:      cfg.ScrapeRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, logger),
		Metrics: metrics,
		Report:  stdout,
	}

	if cfg.AWSBucket != "" {
		uploader, err := storage.NewS3Uploader(ctx, storage.S3Options{
			Region:    cfg.AWSRegion,
			Bucket:    cfg.AWSBucket,
			Prefix:    cfg.S3Prefix,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
		}, logger)
		if err != nil {
			logger.Error("S3 disabled: %v", err)
		} else {
			deps.Uploader = uploader
		}
	}
	if cfg.DatabaseURL != "" {
		deps.OpenTables = func(ctx context.Context) (storage.TableLoader, error) {
			return storage.NewPostgresWriter(ctx, cfg.DatabaseURL, logger)
		}
	}

	// =============== Run ===================================
	p := pipeline.New(pipeline.Options{
		RunID:         runID,
		Cities:        cfg.Cities,
		GeocodeDelay:  cfg.GeocodeDelay,
		GeocodeMemory: cfg.GeocodeMemory,
		WeatherDays:   cfg.WeatherDays,
		MaxHotels:     cfg.MaxHotelsPerCity,
	}, artifacts, deps, logger)

	report, err := p.Run(ctx, stage)
	if mErr := metrics.WriteTextfile(cfg.MetricsFile); mErr != nil {
		logger.Warn("Metrics not written: %v", mErr)
	}
	if err != nil {
		if errors.Is(err, storage.ErrMissingArtifact) {
			logger.Error("%v (run the earlier stages first)", err)
		} else {
			logger.Error("Run failed: %v", err)
		}
		return 1
	}

	if report != nil {
		logger.Info("Done! %d destinations ranked -> %s", len(report.Destinations), artifacts.Destinations())
	} else {
		logger.Info("Done! Stage %s complete", stage)
	}
	return 0
}

func runServe(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "", "listen address (defaults to the configured dashboard address)")
	configPath := fs.String("config", "", "optional YAML config file")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := utils.NewLogger(*verbose)
	cfg, ok := loadConfig(*configPath, logger)
	if !ok {
		return 1
	}
	if *addr == "" {
		*addr = cfg.DashboardAddr
	}

	data, err := dashboard.LoadDataset(storage.NewArtifacts(cfg.ReportsDir), logger)
	if err != nil {
		logger.Error("Cannot start dashboard: %v", err)
		return 1
	}
	router := dashboard.NewRouter(dashboard.NewHandler(data, logger))
	if err := dashboard.Serve(ctx, *addr, router, logger); err != nil {
		logger.Error("Dashboard stopped: %v", err)
		return 1
	}
	return 0
}
