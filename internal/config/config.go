// Package config loads application configuration from defaults, an optional
// YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/justestif/moodtube/internal/mood"
	"github.com/justestif/moodtube/internal/recommend"
)

// ConfigPathEnvVar names the environment variable holding the YAML file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPath is checked when CONFIG_PATH is unset.
const DefaultConfigPath = "config.yaml"

// Search providers.
const (
	ProviderYouTube = "youtube"
	ProviderSpotify = "spotify"
)

var (
	// ErrMissingAPIKey is returned when the YouTube provider is selected without YOUTUBE_API_KEY.
	ErrMissingAPIKey = errors.New("missing YOUTUBE_API_KEY environment variable")

	// ErrMissingSpotifyCredentials is returned when the Spotify provider is selected
	// without SPOTIFY_ID and SPOTIFY_SECRET.
	ErrMissingSpotifyCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET environment variable")
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Search    SearchConfig    `koanf:"search"`
	YouTube   YouTubeConfig   `koanf:"youtube"`
	Spotify   SpotifyConfig   `koanf:"spotify"`
	Detector  DetectorConfig  `koanf:"detector"`
	Database  DatabaseConfig  `koanf:"database"`
	Session   SessionConfig   `koanf:"session"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Logging   LoggingConfig   `koanf:"logging"`

	// Queries optionally replaces the built-in query table, keyed by mood label.
	Queries map[string][]string `koanf:"queries"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// SearchConfig configures the search pipeline shared by all providers.
type SearchConfig struct {
	Provider          string        `koanf:"provider" validate:"oneof=youtube spotify"`
	Region            string        `koanf:"region" validate:"len=2"`
	MaxResults        int           `koanf:"max_results" validate:"min=1,max=50"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	CacheTTL          time.Duration `koanf:"cache_ttl" validate:"gte=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"`
}

// YouTubeConfig holds YouTube Data API settings.
type YouTubeConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
}

// SpotifyConfig holds Spotify client-credentials settings.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
}

// DetectorConfig points at the expression-detection service.
// An empty URL disables detection and every cycle reports no face.
type DetectorConfig struct {
	URL           string        `koanf:"url" validate:"omitempty,url"`
	Timeout       time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxFrameBytes int64         `koanf:"max_frame_bytes" validate:"gt=0"`
}

// DatabaseConfig enables the persistent search cache when URL is set.
type DatabaseConfig struct {
	URL           string        `koanf:"url"`
	CacheTTL      time.Duration `koanf:"cache_ttl" validate:"gte=0"`
	PurgeSchedule string        `koanf:"purge_schedule"`
}

// SessionConfig configures browser sessions.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`
}

// RateLimitConfig limits detect requests per client IP.
type RateLimitConfig struct {
	DetectPerMinute int `koanf:"detect_per_minute" validate:"gte=0"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Search: SearchConfig{
			Provider:          ProviderYouTube,
			Region:            "IN",
			MaxResults:        20,
			Timeout:           10 * time.Second,
			CacheTTL:          5 * time.Minute,
			RequestsPerSecond: 5,
		},
		Detector: DetectorConfig{
			Timeout:       5 * time.Second,
			MaxFrameBytes: 2 << 20,
		},
		Database: DatabaseConfig{
			CacheTTL:      6 * time.Hour,
			PurgeSchedule: "17 * * * *",
		},
		Session: SessionConfig{
			TTL: 2 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			DetectPerMinute: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration with precedence environment > file > defaults.
// The file is CONFIG_PATH, or config.yaml when present.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Layer 2: config file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and provider credentials.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.Search.Provider {
	case ProviderYouTube:
		if c.YouTube.APIKey == "" {
			return ErrMissingAPIKey
		}
	case ProviderSpotify:
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
			return ErrMissingSpotifyCredentials
		}
	}

	if _, err := c.QueryTable(); err != nil {
		return err
	}
	return nil
}

// QueryTable returns the configured query table, or the built-in one when
// no override is set. The result is validated.
func (c *Config) QueryTable() (recommend.QueryTable, error) {
	if len(c.Queries) == 0 {
		return recommend.DefaultQueryTable(), nil
	}

	table := make(recommend.QueryTable, len(c.Queries))
	for key, queries := range c.Queries {
		label := mood.Label(strings.ToLower(strings.TrimSpace(key)))
		if label != mood.Fallback {
			parsed, ok := mood.ParseLabel(key)
			if !ok {
				return nil, fmt.Errorf("%w: unknown mood %q", recommend.ErrInvalidQueryTable, key)
			}
			label = parsed
		}
		table[label] = queries
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// findConfigFile returns CONFIG_PATH if set, else config.yaml if it exists.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	return ""
}

// envMappings maps environment variables to koanf paths.
var envMappings = map[string]string{
	// Bare names
	"youtube_api_key": "youtube.api_key",
	"spotify_id":      "spotify.client_id",
	"spotify_secret":  "spotify.client_secret",
	"database_url":    "database.url",
	"detector_url":    "detector.url",
	"log_level":       "logging.level",

	// Prefixed names
	"moodtube_addr":               "server.addr",
	"moodtube_shutdown_timeout":   "server.shutdown_timeout",
	"moodtube_search_provider":    "search.provider",
	"moodtube_search_region":      "search.region",
	"moodtube_search_max_results": "search.max_results",
	"moodtube_search_timeout":     "search.timeout",
	"moodtube_search_cache_ttl":   "search.cache_ttl",
	"moodtube_search_rps":         "search.requests_per_second",
	"moodtube_youtube_base_url":   "youtube.base_url",
	"moodtube_detector_timeout":   "detector.timeout",
	"moodtube_detector_max_bytes": "detector.max_frame_bytes",
	"moodtube_db_cache_ttl":       "database.cache_ttl",
	"moodtube_db_purge_schedule":  "database.purge_schedule",
	"moodtube_session_ttl":        "session.ttl",
	"moodtube_detect_per_minute":  "ratelimit.detect_per_minute",
	"moodtube_log_level":          "logging.level",
	"moodtube_log_format":         "logging.format",
}

// envTransformFunc maps a known environment variable to its koanf path.
// Unknown variables map to "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
