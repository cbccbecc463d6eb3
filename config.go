package backoffice

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the client settings.
type Config struct {
	API   APIConfig   `yaml:"api"`
	Cache CacheConfig `yaml:"cache"`
	Lists ListConfig  `yaml:"lists"`
	Log   LogConfig   `yaml:"log"`
}

// APIConfig points at the admin REST API.
type APIConfig struct {
	BaseURL string `yaml:"base_url" env:"BACKOFFICE_API_URL"`
	Token   string `yaml:"token" env:"BACKOFFICE_API_TOKEN"`
	// RequestTimeout bounds one HTTP round trip.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"BACKOFFICE_REQUEST_TIMEOUT"`
	// MaxBodyBytes - larger responses fail with a transport error.
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"BACKOFFICE_MAX_BODY_BYTES"`
}

// CacheConfig tunes the query cache.
type CacheConfig struct {
	// StaleTime is how long a cached value is served without refetching.
	StaleTime time.Duration `yaml:"stale_time" env:"BACKOFFICE_STALE_TIME"`
	// RetainFor keeps unobserved values past StaleTime, 0 keeps them until evicted.
	RetainFor            time.Duration `yaml:"retain_for" env:"BACKOFFICE_RETAIN_FOR"`
	MaxEntries           int           `yaml:"max_entries" env:"BACKOFFICE_CACHE_ENTRIES"`
	StaleWhileRevalidate bool          `yaml:"stale_while_revalidate" env:"BACKOFFICE_STALE_WHILE_REVALIDATE"`
}

// ListConfig holds list screen settings.
type ListConfig struct {
	PageSize       int           `yaml:"page_size" env:"BACKOFFICE_PAGE_SIZE"`
	SearchDebounce time.Duration `yaml:"search_debounce" env:"BACKOFFICE_SEARCH_DEBOUNCE"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"BACKOFFICE_LOG_LEVEL"`
	Format string `yaml:"format" env:"BACKOFFICE_LOG_FORMAT"` // "auto" | "text" | "json"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8080/api/v1",
			RequestTimeout: 30 * time.Second,
			MaxBodyBytes:   8 << 20,
		},
		Cache: CacheConfig{
			StaleTime:  30 * time.Second,
			RetainFor:  5 * time.Minute,
			MaxEntries: 500,
		},
		Lists: ListConfig{
			PageSize:       20,
			SearchDebounce: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults and then applies
// BACKOFFICE_* environment variables on top. An empty path or a missing file
// leaves the defaults in place.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		case len(data) > 0:
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			// Comment-only YAML files produce EOF with no decoded content.
			if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for values the client cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("api.base_url %q must be an http(s) URL", c.API.BaseURL))
	}
	if c.API.RequestTimeout < 0 {
		errs = append(errs, errors.New("api.request_timeout must not be negative"))
	}
	if c.Cache.StaleTime < 0 || c.Cache.RetainFor < 0 {
		errs = append(errs, errors.New("cache durations must not be negative"))
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, errors.New("cache.max_entries must not be negative"))
	}
	if c.Lists.PageSize <= 0 {
		errs = append(errs, errors.New("lists.page_size must be positive"))
	}
	if c.Lists.SearchDebounce < 0 {
		errs = append(errs, errors.New("lists.search_debounce must not be negative"))
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be auto, text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLogLevel maps debug/info/warn/error to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", level)
	}
}
