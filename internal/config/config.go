package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the transit core service
type Config struct {
	// HTTP server
	Port           string
	AllowedOrigins []string

	// Database
	DatabaseURL string

	// GTFS static data
	GTFSArchiveURL string

	// Live-trips API
	LiveTripsURL string
	AppID        string
	APIKey       string

	// Display sessions
	DisplayTTL      time.Duration
	MaxDisplays     int
	SelectChunkSize int
	BoardPageSize   int

	// Search
	SearchLimit       int
	AutocompleteLimit int
}

// fileConfig is the shape of the optional config.yml. Everything in it has a
// default; credentials never live here.
type fileConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	GTFSArchiveURL string   `yaml:"gtfs_archive_url" validate:"omitempty,url"`
	LiveTripsURL   string   `yaml:"live_trips_url" validate:"omitempty,url"`
	DisplayTTLSecs int      `yaml:"display_ttl_seconds" validate:"omitempty,min=1"`
	MaxDisplays    int      `yaml:"max_displays" validate:"omitempty,min=1"`
}

const (
	defaultGTFSArchiveURL = "https://www.octranspo.com/files/google_transit.zip"
	defaultLiveTripsURL   = "https://api.octranspo1.com/v2.0/GetNextTripsForStopAllRoutes"
)

// Load reads configuration from config.yml (if present) and environment
// variables, with env taking precedence. A .env file in the working directory
// is loaded first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		AllowedOrigins:    []string{"*"},
		DatabaseURL:       getEnv("DATABASE_URL", "postgres://localhost:5432/octranspo"),
		GTFSArchiveURL:    getEnv("GTFS_ARCHIVE_URL", defaultGTFSArchiveURL),
		LiveTripsURL:      getEnv("LIVE_TRIPS_URL", defaultLiveTripsURL),
		AppID:             os.Getenv("OC_APP_ID"),
		APIKey:            os.Getenv("OC_API_KEY"),
		DisplayTTL:        time.Duration(getEnvInt("DISPLAY_TTL_SECONDS", 120)) * time.Second,
		MaxDisplays:       getEnvInt("MAX_DISPLAYS", 1000),
		SelectChunkSize:   25,
		BoardPageSize:     20,
		SearchLimit:       10,
		AutocompleteLimit: 25,
	}

	if err := applyFile(cfg, getEnv("CONFIG_FILE", "config.yml")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile overlays values from a yaml config file onto cfg. A missing file
// is not an error; a malformed or invalid one is.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := validator.New().Struct(fc); err != nil {
		return fmt.Errorf("invalid config in %s: %w", path, err)
	}

	if fc.Port != "" && os.Getenv("PORT") == "" {
		cfg.Port = fc.Port
	}
	if len(fc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.GTFSArchiveURL != "" && os.Getenv("GTFS_ARCHIVE_URL") == "" {
		cfg.GTFSArchiveURL = fc.GTFSArchiveURL
	}
	if fc.LiveTripsURL != "" && os.Getenv("LIVE_TRIPS_URL") == "" {
		cfg.LiveTripsURL = fc.LiveTripsURL
	}
	if fc.DisplayTTLSecs > 0 && os.Getenv("DISPLAY_TTL_SECONDS") == "" {
		cfg.DisplayTTL = time.Duration(fc.DisplayTTLSecs) * time.Second
	}
	if fc.MaxDisplays > 0 && os.Getenv("MAX_DISPLAYS") == "" {
		cfg.MaxDisplays = fc.MaxDisplays
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
