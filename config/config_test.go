package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("")
	require.NoError(t, err)
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty reports dir",
			mutate:  func(cfg *Config) { cfg.ReportsDir = " " },
			wantErr: "reports dir",
		},
		{
			name:    "no cities",
			mutate:  func(cfg *Config) { cfg.Cities = nil },
			wantErr: "city list",
		},
		{
			name:    "hostless nominatim url",
			mutate:  func(cfg *Config) { cfg.NominatimURL = "http://" },
			wantErr: "nominatim URL",
		},
		{
			name:    "empty booking url",
			mutate:  func(cfg *Config) { cfg.BookingURL = "" },
			wantErr: "booking URL",
		},
		{
			name:    "zero weather days",
			mutate:  func(cfg *Config) { cfg.WeatherDays = 0 },
			wantErr: "weather days",
		},
		{
			name:    "min above max hotels",
			mutate:  func(cfg *Config) { cfg.MinHotelsPerCity = cfg.MaxHotelsPerCity + 1 },
			wantErr: "min hotels",
		},
		{
			name:    "zero retries",
			mutate:  func(cfg *Config) { cfg.ScrapeRetries = 0 },
			wantErr: "scrape retries",
		},
		{
			name:    "negative geocode delay",
			mutate:  func(cfg *Config) { cfg.GeocodeDelay = -time.Second },
			wantErr: "geocode delay",
		},
		{
			name:    "bucket without region",
			mutate:  func(cfg *Config) { cfg.AWSBucket = "kayak"; cfg.AWSRegion = "" },
			wantErr: "aws region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := defaultConfig(t)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 7, cfg.WeatherDays)
	assert.Equal(t, 20, cfg.MaxHotelsPerCity)
	assert.Equal(t, 10, cfg.MinHotelsPerCity)
	assert.Equal(t, 3, cfg.ScrapeRetries)
	assert.Equal(t, time.Second, cfg.GeocodeDelay)
	assert.Len(t, cfg.Cities, len(Cities))
	assert.Equal(t, "reports", cfg.ReportsDir)
}

func TestConfigValidateReportsEveryProblem(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.WeatherDays = 0
	cfg.ScrapeRetries = 0
	cfg.UserAgent = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weather days")
	assert.Contains(t, err.Error(), "scrape retries")
	assert.Contains(t, err.Error(), "user agent")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("KAYAK_WEATHER_DAYS", "5")
	t.Setenv("KAYAK_GEOCODE_DELAY", "250ms")
	t.Setenv("KAYAK_CITIES", "Paris, St Malo ,,Lyon")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/kayak")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.WeatherDays)
	assert.Equal(t, 250*time.Millisecond, cfg.GeocodeDelay)
	assert.Equal(t, []string{"Paris", "St Malo", "Lyon"}, cfg.Cities)
	assert.Equal(t, "postgres://u:p@db:5432/kayak", cfg.DatabaseURL)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kayak.yml")
	body := "reports_dir: out\nmax_hotels_per_city: 15\ncities:\n  - Bayeux\n  - Mont Saint Michel\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.ReportsDir)
	assert.Equal(t, 15, cfg.MaxHotelsPerCity)
	assert.Equal(t, []string{"Bayeux", "Mont Saint Michel"}, cfg.Cities)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}
