package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors of one run.
type Metrics struct {
	Registry         *prometheus.Registry
	StageDuration    *prometheus.GaugeVec
	StageSkipped     *prometheus.CounterVec
	LookupsTotal     *prometheus.CounterVec
	WeatherRows      prometheus.Counter
	HotelsScraped    prometheus.Counter
	ScrapeRetries    prometheus.Counter
	ScrapeFailures   prometheus.Counter
	SinkFailures     *prometheus.CounterVec
	ScoringFallbacks *prometheus.CounterVec
	LastSuccess      prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kayak_stage_duration_seconds",
			Help: "Wall time of the last execution of each stage.",
		}, []string{"stage"}),
		StageSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kayak_stage_cache_hits_total",
			Help: "Stages skipped because their cache artifact was present.",
		}, []string{"stage"}),
		LookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kayak_geocode_lookups_total",
			Help: "Geocoding lookups by outcome.",
		}, []string{"outcome"}),
		WeatherRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kayak_weather_rows_total",
			Help: "Daily forecast rows fetched.",
		}),
		HotelsScraped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kayak_hotels_scraped_total",
			Help: "Hotel listings kept after cleaning.",
		}),
		ScrapeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kayak_scrape_retries_total",
			Help: "Extra scrape attempts beyond the first.",
		}),
		ScrapeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kayak_scrape_failures_total",
			Help: "Cities for which every scrape attempt fell short.",
		}),
		SinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kayak_sink_failures_total",
			Help: "Failed sink operations.",
		}, []string{"sink"}),
		ScoringFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kayak_scoring_fallbacks_total",
			Help: "Destinations whose score fell back to zero, by reason.",
		}, []string{"reason"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kayak_last_success_timestamp_seconds",
			Help: "Unix time of the last run that completed.",
		}),
	}

	registry.MustRegister(
		m.StageDuration, m.StageSkipped, m.LookupsTotal, m.WeatherRows,
		m.HotelsScraped, m.ScrapeRetries, m.ScrapeFailures, m.SinkFailures,
		m.ScoringFallbacks, m.LastSuccess,
	)
	return m
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(string(stage)).Set(d.Seconds())
}

// IncSkipped counts a cache hit.
func (m *Metrics) IncSkipped(stage Stage) {
	if m == nil {
		return
	}
	m.StageSkipped.WithLabelValues(string(stage)).Inc()
}

// IncLookup counts a geocoding lookup by outcome ("ok", "memo" or a failure reason).
func (m *Metrics) IncLookup(outcome string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(outcome).Inc()
}

// AddWeatherRows counts fetched forecast rows.
func (m *Metrics) AddWeatherRows(n int) {
	if m == nil {
		return
	}
	m.WeatherRows.Add(float64(n))
}

// AddHotels counts kept listings and retry attempts of one city.
func (m *Metrics) AddHotels(n, attempts int, failed bool) {
	if m == nil {
		return
	}
	m.HotelsScraped.Add(float64(n))
	if attempts > 1 {
		m.ScrapeRetries.Add(float64(attempts - 1))
	}
	if failed {
		m.ScrapeFailures.Inc()
	}
}

// IncSinkFailure counts a failed sink operation.
func (m *Metrics) IncSinkFailure(sink string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SinkFailures.WithLabelValues(sink).Add(float64(n))
}

// IncFallback counts a score substituted by zero.
func (m *Metrics) IncFallback(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ScoringFallbacks.WithLabelValues(reason).Add(float64(n))
}

// MarkSuccess stamps the end of a completed run.
func (m *Metrics) MarkSuccess(now time.Time) {
	if m == nil {
		return
	}
	m.LastSuccess.Set(float64(now.Unix()))
}

// WriteTextfile dumps the registry in the Prometheus text format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
