// Package config manages application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"ytbucket/internal/retry"
	"ytbucket/pipeline"
	"ytbucket/sink"
	"ytbucket/youtube"
)

// Playlist sources.
const (
	SourceAPI  = "api"
	SourceFeed = "feed"
)

// Config holds all settings for a playlist sync.
type Config struct {
	// APIKey is the YouTube Data API key.
	APIKey string `yaml:"api_key"`
	// PlaylistID is a playlist id or any URL carrying a list= parameter.
	PlaylistID string `yaml:"playlist_id"`
	// Source selects the Data API ("api") or the public Atom feed ("feed").
	Source string `yaml:"source"`

	// MaxAttempts is the total number of tries per remote call.
	MaxAttempts int `yaml:"max_attempts"`
	// InitialBackoff is the wait after the first failure.
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// BackoffMultiplier grows the wait after each failure (must be > 1).
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	// RequestTimeout bounds a single HTTP request.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// RequestsPerSecond paces Data API calls (0 = unlimited).
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// APIEndpoint overrides the Data API base URL, e.g. for a proxy.
	APIEndpoint string `yaml:"api_endpoint"`

	// DescriptionLimit truncates descriptions to this many characters (0 = full text).
	DescriptionLimit int `yaml:"description_limit"`
	// Columns overrides the sink column layout.
	Columns []string `yaml:"columns"`

	// Google Sheets output.
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file"`
	CredentialsJSON string `yaml:"credentials_json"`

	// Local outputs.
	JSONPath  string `yaml:"json_path"`
	CSVDir    string `yaml:"csv_dir"`
	SQLDriver string `yaml:"sql_driver"`
	SQLDSN    string `yaml:"sql_dsn"`
	CachePath string `yaml:"cache_path"`

	Debug bool `yaml:"debug"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		Source:            SourceAPI,
		MaxAttempts:       5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 2.0,
		RequestTimeout:    youtube.DefaultRequestTimeout,
	}
}

// Load builds the configuration from defaults, then the config file, then
// environment variables. An empty path searches ytbucket.yaml, ytbucket.yml
// and ytbucket.json in the working directory and ~/.config/ytbucket/.
// Command-line flags are applied by the caller, followed by Validate.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(path); err != nil {
		// Config file is optional unless named explicitly
		if path != "" || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func searchPaths() []string {
	names := []string{"ytbucket.yaml", "ytbucket.yml", "ytbucket.json"}
	paths := append([]string(nil), names...)
	if home, err := os.UserHomeDir(); err == nil {
		for _, name := range names {
			paths = append(paths, filepath.Join(home, ".config", "ytbucket", name))
		}
	}
	return paths
}

// loadFromFile reads the first config file found. YAML is a superset of
// JSON, so one decoder covers both formats.
func (c *Config) loadFromFile(path string) error {
	paths := searchPaths()
	if path != "" {
		paths = []string{path}
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && path == "" {
				continue
			}
			return err
		}

		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() error {
	setString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := os.Getenv(key); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&c.APIKey, "YOUTUBE_API_KEY", "YTBUCKET_API_KEY")
	setString(&c.PlaylistID, "PLAYLIST_ID", "YTBUCKET_PLAYLIST_ID")
	setString(&c.SpreadsheetID, "SPREADSHEET_ID", "YTBUCKET_SPREADSHEET_ID")
	setString(&c.CredentialsJSON, "SERVICE_ACCOUNT_JSON", "YTBUCKET_CREDENTIALS_JSON")
	setString(&c.CredentialsFile, "YTBUCKET_CREDENTIALS_FILE")
	setString(&c.Source, "YTBUCKET_SOURCE")
	setString(&c.APIEndpoint, "YTBUCKET_API_ENDPOINT")
	setString(&c.JSONPath, "YTBUCKET_JSON_PATH")
	setString(&c.CSVDir, "YTBUCKET_CSV_DIR")
	setString(&c.SQLDriver, "YTBUCKET_SQL_DRIVER")
	setString(&c.SQLDSN, "YTBUCKET_SQL_DSN")
	setString(&c.CachePath, "YTBUCKET_CACHE_PATH")

	if v := os.Getenv("YTBUCKET_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("YTBUCKET_MAX_ATTEMPTS: %w", err)
		}
		c.MaxAttempts = n
	}
	if v := os.Getenv("YTBUCKET_DESCRIPTION_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("YTBUCKET_DESCRIPTION_LIMIT: %w", err)
		}
		c.DescriptionLimit = n
	}
	if v := os.Getenv("YTBUCKET_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("YTBUCKET_REQUESTS_PER_SECOND: %w", err)
		}
		c.RequestsPerSecond = f
	}
	for key, dst := range map[string]*time.Duration{
		"YTBUCKET_INITIAL_BACKOFF": &c.InitialBackoff,
		"YTBUCKET_MAX_BACKOFF":     &c.MaxBackoff,
		"YTBUCKET_REQUEST_TIMEOUT": &c.RequestTimeout,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	if v := os.Getenv("YTBUCKET_DEBUG"); v != "" {
		c.Debug = v == "true" || v == "1"
	}
	return nil
}

// Validate checks that configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.Source != SourceAPI && c.Source != SourceFeed {
		return fmt.Errorf("source must be %q or %q", SourceAPI, SourceFeed)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	if c.DescriptionLimit < 0 {
		return fmt.Errorf("description_limit must be non-negative")
	}
	if _, err := pipeline.ParseColumns(c.Columns); err != nil {
		return fmt.Errorf("columns: %w", err)
	}
	if (c.SQLDriver == "") != (c.SQLDSN == "") {
		return fmt.Errorf("sql_driver and sql_dsn must be set together")
	}
	if c.SQLDriver != "" && c.SQLDriver != sink.DriverSQLite && c.SQLDriver != sink.DriverPostgres {
		return fmt.Errorf("sql_driver must be %q or %q", sink.DriverSQLite, sink.DriverPostgres)
	}
	return nil
}

// ValidateSync checks the settings a sync run needs on top of Validate.
// offline runs rebuild rows from the cache and need no API key.
func (c *Config) ValidateSync(offline bool) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, err := youtube.ParsePlaylistID(c.PlaylistID); err != nil {
		return fmt.Errorf("playlist_id: %w", err)
	}
	if offline {
		if c.CachePath == "" {
			return fmt.Errorf("offline mode requires cache_path")
		}
		return nil
	}
	if c.Source == SourceAPI && c.APIKey == "" {
		return fmt.Errorf("api_key is required (set YOUTUBE_API_KEY)")
	}
	return nil
}

// Retry returns the retry policy shared by every remote call.
func (c *Config) Retry() retry.Config {
	return retry.Config{
		MaxAttempts:    c.MaxAttempts,
		InitialBackoff: c.InitialBackoff,
		MaxBackoff:     c.MaxBackoff,
		Multiplier:     c.BackoffMultiplier,
	}
}
