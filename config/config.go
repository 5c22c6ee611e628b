package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cities is the fixed destination list. Spelling is the join key across every
// stage, so it must not be edited in one place only.
var Cities = []string{
	"Mont Saint Michel", "St Malo", "Bayeux", "Le Havre", "Rouen", "Paris", "Amiens",
	"Lille", "Strasbourg", "Chateau du Haut Koenigsbourg", "Colmar", "Eguisheim",
	"Besancon", "Dijon", "Annecy", "Grenoble", "Lyon", "Gorges du Verdon",
	"Bormes les Mimosas", "Cassis", "Marseille", "Aix en Provence", "Avignon",
	"Uzes", "Nimes", "Aigues Mortes", "Saintes Maries de la mer", "Collioure",
	"Carcassonne", "Ariege", "Toulouse", "Montauban", "Biarritz", "Bayonne", "La Rochelle",
}

// Config holds all application-level configuration
type Config struct {
	// Workspace
	ReportsDir  string   `mapstructure:"reports_dir"`
	MetricsFile string   `mapstructure:"metrics_file"`
	Cities      []string `mapstructure:"-"`

	// Geocoding
	NominatimURL  string        `mapstructure:"nominatim_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	GeocodeDelay  time.Duration `mapstructure:"geocode_delay"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	GeocodeMemory int           `mapstructure:"geocode_memory"`

	// Weather
	OpenMeteoURL string `mapstructure:"open_meteo_url"`
	WeatherDays  int    `mapstructure:"weather_days"`

	// Booking
	BookingURL       string        `mapstructure:"booking_url"`
	MaxHotelsPerCity int           `mapstructure:"max_hotels_per_city"`
	MinHotelsPerCity int           `mapstructure:"min_hotels_per_city"`
	ScrapeRetries    int           `mapstructure:"scrape_retries"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	PageLoadTimeout  time.Duration `mapstructure:"page_load_timeout"`
	Headless         bool          `mapstructure:"headless"`

	// Sinks
	DatabaseURL  string `mapstructure:"database_url"`
	AWSRegion    string `mapstructure:"aws_region"`
	AWSBucket    string `mapstructure:"aws_bucket"`
	AWSAccessKey string `mapstructure:"aws_access_key_id"`
	AWSSecretKey string `mapstructure:"aws_secret_access_key"`
	S3Prefix     string `mapstructure:"s3_prefix"`

	// Dashboard
	DashboardAddr string `mapstructure:"dashboard_addr"`
}

var defaults = map[string]any{
	"reports_dir":           "reports",
	"metrics_file":          "reports/metrics.prom",
	"nominatim_url":         "https://nominatim.openstreetmap.org/search",
	"user_agent":            "KayakApp",
	"geocode_delay":         time.Second,
	"http_timeout":          10 * time.Second,
	"geocode_memory":        128,
	"open_meteo_url":        "https://api.open-meteo.com/v1/forecast",
	"weather_days":          7,
	"booking_url":           "https://www.booking.com/searchresults.fr.html",
	"max_hotels_per_city":   20,
	"min_hotels_per_city":   10,
	"scrape_retries":        3,
	"retry_backoff":         2 * time.Second,
	"page_load_timeout":     30 * time.Second,
	"headless":              true,
	"database_url":          "",
	"aws_region":            "eu-west-3",
	"aws_bucket":            "",
	"aws_access_key_id":     "",
	"aws_secret_access_key": "",
	"s3_prefix":             "bloc1_kayak",
	"dashboard_addr":        ":8080",
}

// unprefixed lists the conventional variable names honoured as-is, in
// addition to their KAYAK_ forms.
var unprefixed = []string{
	"database_url", "aws_region", "aws_bucket", "aws_access_key_id", "aws_secret_access_key",
}

// Load reads .env (when present), an optional YAML file, and the environment,
// falling back to defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix("KAYAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range unprefixed {
		if err := v.BindEnv(key, "KAYAK_"+strings.ToUpper(key), strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Cities = citiesFrom(v)
	if len(cfg.Cities) == 0 {
		cfg.Cities = append([]string(nil), Cities...)
	}
	return cfg, nil
}

// Validate checks every configuration value and reports all problems at
// once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.ReportsDir) == "" {
		fail("reports dir cannot be empty")
	}
	if len(c.Cities) == 0 {
		fail("city list cannot be empty")
	}
	for _, u := range []struct{ name, raw string }{
		{"nominatim URL", c.NominatimURL},
		{"open-meteo URL", c.OpenMeteoURL},
		{"booking URL", c.BookingURL},
	} {
		if err := validateURL(u.raw); err != nil {
			fail("invalid %s: %w", u.name, err)
		}
	}
	if c.UserAgent == "" {
		fail("user agent cannot be empty")
	}
	if c.GeocodeDelay < 0 {
		fail("geocode delay cannot be negative")
	}
	if c.HTTPTimeout <= 0 {
		fail("http timeout must be positive")
	}
	if c.WeatherDays <= 0 {
		fail("weather days must be positive")
	}
	if c.MaxHotelsPerCity <= 0 {
		fail("max hotels per city must be positive")
	}
	if c.MinHotelsPerCity < 0 || c.MinHotelsPerCity > c.MaxHotelsPerCity {
		fail("min hotels per city (%d) must be between 0 and max (%d)", c.MinHotelsPerCity, c.MaxHotelsPerCity)
	}
	if c.ScrapeRetries <= 0 {
		fail("scrape retries must be positive")
	}
	if c.RetryBackoff < 0 {
		fail("retry backoff cannot be negative")
	}
	if c.PageLoadTimeout <= 0 {
		fail("page load timeout must be positive")
	}
	if c.AWSBucket != "" && c.AWSRegion == "" {
		fail("aws region is required when a bucket is set")
	}
	return errors.Join(errs...)
}

// citiesFrom reads a city list from a YAML sequence or a comma-separated
// KAYAK_CITIES value. Names contain spaces, so whitespace never splits.
func citiesFrom(v *viper.Viper) []string {
	var raw []string
	switch list := v.Get("cities").(type) {
	case string:
		raw = strings.Split(list, ",")
	case []any:
		for _, item := range list {
			raw = append(raw, fmt.Sprint(item))
		}
	case []string:
		raw = list
	}
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Host == "" {
		return fmt.Errorf("must include a host")
	}
	return nil
}
