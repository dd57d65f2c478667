package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so the host environment does
// not leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"YOUTUBE_API_KEY", "PLAYLIST_ID", "SPREADSHEET_ID", "SERVICE_ACCOUNT_JSON",
		"YTBUCKET_API_KEY", "YTBUCKET_PLAYLIST_ID", "YTBUCKET_SPREADSHEET_ID",
		"YTBUCKET_CREDENTIALS_JSON", "YTBUCKET_CREDENTIALS_FILE", "YTBUCKET_SOURCE",
		"YTBUCKET_JSON_PATH", "YTBUCKET_CSV_DIR", "YTBUCKET_SQL_DRIVER", "YTBUCKET_SQL_DSN",
		"YTBUCKET_CACHE_PATH", "YTBUCKET_MAX_ATTEMPTS", "YTBUCKET_DESCRIPTION_LIMIT",
		"YTBUCKET_REQUESTS_PER_SECOND", "YTBUCKET_INITIAL_BACKOFF", "YTBUCKET_MAX_BACKOFF",
		"YTBUCKET_REQUEST_TIMEOUT", "YTBUCKET_DEBUG", "YTBUCKET_API_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff != time.Second || cfg.MaxBackoff != time.Minute {
		t.Errorf("backoff = %v..%v, want 1s..1m", cfg.InitialBackoff, cfg.MaxBackoff)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.Source != SourceAPI {
		t.Errorf("Source = %q, want %q", cfg.Source, SourceAPI)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "ytbucket.yaml", `
playlist_id: PLyogaFlow123
max_attempts: 3
initial_backoff: 500ms
request_timeout: 5s
description_limit: 100
columns: [title, link, duration]
json_path: data/videos.json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PlaylistID != "PLyogaFlow123" || cfg.MaxAttempts != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.InitialBackoff != 500*time.Millisecond || cfg.RequestTimeout != 5*time.Second {
		t.Errorf("durations = %v, %v", cfg.InitialBackoff, cfg.RequestTimeout)
	}
	if len(cfg.Columns) != 3 || cfg.Columns[2] != "duration" {
		t.Errorf("Columns = %v", cfg.Columns)
	}
	if cfg.MaxBackoff != time.Minute {
		t.Errorf("MaxBackoff = %v, default not kept", cfg.MaxBackoff)
	}
}

func TestLoad_JSONFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "ytbucket.json", `{"playlist_id": "PLjson123456", "csv_dir": "out", "requests_per_second": 2.5}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PlaylistID != "PLjson123456" || cfg.CSVDir != "out" || cfg.RequestsPerSecond != 2.5 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "ytbucket.yaml", "playlist_id: PLfromFile123\napi_key: file-key\nmax_attempts: 3\n")
	t.Setenv("PLAYLIST_ID", "PLfromEnv123")
	t.Setenv("YOUTUBE_API_KEY", "env-key")
	t.Setenv("YTBUCKET_MAX_BACKOFF", "30s")
	t.Setenv("SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)
	t.Setenv("YTBUCKET_API_ENDPOINT", "http://127.0.0.1:8080/")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PlaylistID != "PLfromEnv123" || cfg.APIKey != "env-key" {
		t.Errorf("env did not override file: %+v", cfg)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, file value lost", cfg.MaxAttempts)
	}
	if cfg.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", cfg.MaxBackoff)
	}
	if cfg.CredentialsJSON == "" {
		t.Error("SERVICE_ACCOUNT_JSON not read")
	}
	if cfg.APIEndpoint != "http://127.0.0.1:8080/" {
		t.Errorf("APIEndpoint = %q, YTBUCKET_API_ENDPOINT not read", cfg.APIEndpoint)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	t.Run("explicit file missing", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
			t.Error("Load() error = nil, want error")
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "max_attempts: [1, 2")
		if _, err := Load(path); err == nil {
			t.Error("Load() error = nil, want error")
		}
	})

	t.Run("malformed env", func(t *testing.T) {
		t.Setenv("YTBUCKET_MAX_ATTEMPTS", "many")
		_, err := Load(writeFile(t, "ok.yaml", "{}"))
		if err == nil || !strings.Contains(err.Error(), "YTBUCKET_MAX_ATTEMPTS") {
			t.Errorf("Load() error = %v, want YTBUCKET_MAX_ATTEMPTS error", err)
		}
	})
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	wd, _ := os.Getwd()
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want default", cfg.MaxAttempts)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, true},
		{"max below initial", func(c *Config) { c.MaxBackoff = time.Millisecond }, true},
		{"multiplier one", func(c *Config) { c.BackoffMultiplier = 1 }, true},
		{"negative limit", func(c *Config) { c.DescriptionLimit = -1 }, true},
		{"unknown source", func(c *Config) { c.Source = "scrape" }, true},
		{"unknown column", func(c *Config) { c.Columns = []string{"title", "nope"} }, true},
		{"driver without dsn", func(c *Config) { c.SQLDriver = "sqlite" }, true},
		{"unsupported driver", func(c *Config) { c.SQLDriver, c.SQLDSN = "mysql", "x" }, true},
		{"sqlite", func(c *Config) { c.SQLDriver, c.SQLDSN = "sqlite", "runs.db" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSync(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		offline bool
		wantErr bool
	}{
		{"complete", func(c *Config) {}, false, false},
		{"playlist url", func(c *Config) { c.PlaylistID = "https://www.youtube.com/playlist?list=PLyogaFlow123" }, false, false},
		{"no playlist", func(c *Config) { c.PlaylistID = "" }, false, true},
		{"no key", func(c *Config) { c.APIKey = "" }, false, true},
		{"feed needs no key", func(c *Config) { c.APIKey, c.Source = "", SourceFeed }, false, false},
		{"offline needs cache", func(c *Config) { c.APIKey = "" }, true, true},
		{"offline with cache", func(c *Config) { c.APIKey, c.CachePath = "", "cache.json" }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.PlaylistID = "PLyogaFlow123"
			cfg.APIKey = "key"
			tt.mutate(cfg)
			if err := cfg.ValidateSync(tt.offline); (err != nil) != tt.wantErr {
				t.Errorf("ValidateSync() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 3
	r := cfg.Retry()
	if r.MaxAttempts != 3 || r.InitialBackoff != time.Second || r.MaxBackoff != time.Minute || r.Multiplier != 2 {
		t.Errorf("Retry() = %+v", r)
	}
}
