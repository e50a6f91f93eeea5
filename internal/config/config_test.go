package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// Helper to clear all config-related env vars
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"INVRESTORE_CONFIG_PATH",
		"INVRESTORE_DB_PATH",
		"INVRESTORE_DB_BACKEND",
		"INVRESTORE_MAX_RESULTS",
		"INVRESTORE_DEFAULT_TIMEZONE",
		"INVRESTORE_FULL_TIME_FORMAT",
		"INVRESTORE_MAX_PER_PLAYER",
		"INVRESTORE_MAX_TOTAL",
		"INVRESTORE_ID_FORMAT",
		"INVRESTORE_SAVE_INTERVAL",
		"INVRESTORE_AUTOSAVE_INTERVAL",
		"INVRESTORE_LOG_LEVEL",
		"INVRESTORE_LOG_FORMAT",
		"INVRESTORE_BACKUP_BUCKET",
		"INVRESTORE_BACKUP_PREFIX",
		"INVRESTORE_S3_ENDPOINT",
		"INVRESTORE_S3_REGION",
		"INVRESTORE_S3_USE_SSL",
		"INVRESTORE_S3_ACCESS_KEY",
		"INVRESTORE_S3_SECRET_KEY",
		"INVRESTORE_S3_URL_EXPIRY",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

// missingPath points Load at a file that does not exist.
func missingPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.yaml")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invrestore.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

// dur converts Duration to time.Duration for comparison
func dur(d Duration) time.Duration {
	return time.Duration(d)
}

// Test: Default values when no config file and no env vars
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingPath(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "data/invrestore.dat" {
		t.Errorf("Database.Path = %q, want data/invrestore.dat", cfg.Database.Path)
	}
	if cfg.Database.Backend != BackendFile {
		t.Errorf("Database.Backend = %q, want %q", cfg.Database.Backend, BackendFile)
	}
	if cfg.QueryResults.MaxResults != 5 {
		t.Errorf("QueryResults.MaxResults = %d, want 5", cfg.QueryResults.MaxResults)
	}
	if cfg.QueryResults.DefaultTimezone != "UTC" {
		t.Errorf("QueryResults.DefaultTimezone = %q, want UTC", cfg.QueryResults.DefaultTimezone)
	}
	if cfg.QueryResults.FullTimeFormat != "%Y-%m-%d %H:%M:%S (%Z)" {
		t.Errorf("QueryResults.FullTimeFormat = %q", cfg.QueryResults.FullTimeFormat)
	}
	if cfg.StoreLimits.MaxPerPlayer != 50 {
		t.Errorf("StoreLimits.MaxPerPlayer = %d, want 50", cfg.StoreLimits.MaxPerPlayer)
	}
	if cfg.StoreLimits.MaxTotal != 10000 {
		t.Errorf("StoreLimits.MaxTotal = %d, want 10000", cfg.StoreLimits.MaxTotal)
	}
	if cfg.Snapshots.IDFormat != "base62" {
		t.Errorf("Snapshots.IDFormat = %q, want base62", cfg.Snapshots.IDFormat)
	}
	if dur(cfg.Worker.SaveInterval) != 5*time.Minute {
		t.Errorf("Worker.SaveInterval = %v, want 5m", dur(cfg.Worker.SaveInterval))
	}
	if cfg.Worker.AutosaveInterval != 0 {
		t.Errorf("Worker.AutosaveInterval = %v, want 0", dur(cfg.Worker.AutosaveInterval))
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json", cfg.Log)
	}
	if cfg.Backup.Bucket != "" {
		t.Errorf("Backup.Bucket = %q, want empty", cfg.Backup.Bucket)
	}
	if !cfg.Backup.UseSSL {
		t.Error("Backup.UseSSL should default to true")
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "query_results:\n  max_results: 7\n")
	t.Setenv("INVRESTORE_CONFIG_PATH", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.QueryResults.MaxResults != 7 {
		t.Errorf("QueryResults.MaxResults = %d, want 7", cfg.QueryResults.MaxResults)
	}
}

func TestLoadFromFile_ValidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database:
  path: /srv/world/invrestore.db
  backend: sqlite
query_results:
  max_results: 10
  default_timezone: Europe/Berlin
  full_time_format: "%d.%m.%Y %H:%M"
store_limits:
  max_per_player: 20
  max_total: 500
snapshots:
  id_format: ulid
worker:
  save_interval: 30s
  autosave_interval: 10m
log:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/srv/world/invrestore.db" || cfg.Database.Backend != BackendSQLite {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.QueryResults.MaxResults != 10 {
		t.Errorf("MaxResults = %d, want 10", cfg.QueryResults.MaxResults)
	}
	if cfg.QueryResults.Location().String() != "Europe/Berlin" {
		t.Errorf("Location() = %v, want Europe/Berlin", cfg.QueryResults.Location())
	}
	if cfg.StoreLimits.MaxPerPlayer != 20 || cfg.StoreLimits.MaxTotal != 500 {
		t.Errorf("StoreLimits = %+v", cfg.StoreLimits)
	}
	if cfg.Snapshots.IDFormat != "ulid" {
		t.Errorf("IDFormat = %q, want ulid", cfg.Snapshots.IDFormat)
	}
	if dur(cfg.Worker.SaveInterval) != 30*time.Second {
		t.Errorf("SaveInterval = %v, want 30s", dur(cfg.Worker.SaveInterval))
	}
	if dur(cfg.Worker.AutosaveInterval) != 10*time.Minute {
		t.Errorf("AutosaveInterval = %v, want 10m", dur(cfg.Worker.AutosaveInterval))
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database:
  path: /yaml/path.dat
store_limits:
  max_total: 100
`)
	t.Setenv("INVRESTORE_DB_PATH", "/env/path.dat")
	t.Setenv("INVRESTORE_MAX_TOTAL", "250")
	t.Setenv("INVRESTORE_SAVE_INTERVAL", "90s")
	t.Setenv("INVRESTORE_S3_USE_SSL", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/env/path.dat" {
		t.Errorf("Database.Path = %q, want env value", cfg.Database.Path)
	}
	if cfg.StoreLimits.MaxTotal != 250 {
		t.Errorf("MaxTotal = %d, want 250", cfg.StoreLimits.MaxTotal)
	}
	if dur(cfg.Worker.SaveInterval) != 90*time.Second {
		t.Errorf("SaveInterval = %v, want 90s", dur(cfg.Worker.SaveInterval))
	}
	if cfg.Backup.UseSSL {
		t.Error("Backup.UseSSL should be overridden to false")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "database: [unclosed\n")

	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoadFromFile_InvalidDuration(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "worker:\n  save_interval: soon\n")

	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid duration, got nil")
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"max results too low", "query_results:\n  max_results: 0\n", "max_results"},
		{"max results too high", "query_results:\n  max_results: 11\n", "max_results"},
		{"unknown timezone", "query_results:\n  default_timezone: Mars/Olympus\n", "default_timezone"},
		{"bad time format", "query_results:\n  full_time_format: \"%Q\"\n", "full_time_format"},
		{"unknown backend", "database:\n  backend: postgres\n", "database.backend"},
		{"zero per player", "store_limits:\n  max_per_player: 0\n", "max_per_player"},
		{"zero total", "store_limits:\n  max_total: 0\n", "max_total"},
		{"unknown id format", "snapshots:\n  id_format: uuid\n", "id_format"},
		{"zero save interval", "worker:\n  save_interval: 0s\n", "save_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("Load() expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ValidationReportsAllFailures(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "query_results:\n  max_results: 0\nstore_limits:\n  max_total: 0\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error, got nil")
	}
	for _, want := range []string{"max_results", "max_total"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

// Test: Secrets are not serializable via YAML tag
func TestConfig_SecretsNotInYAML(t *testing.T) {
	cfg := Defaults()
	cfg.Backup.AccessKey = "access-secret"
	cfg.Backup.SecretKey = "secret-secret"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}

	yamlStr := string(data)
	if strings.Contains(yamlStr, "access-secret") || strings.Contains(yamlStr, "secret-secret") {
		t.Errorf("YAML contains S3 credentials: %s", yamlStr)
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "invrestore.yaml")

	cfg := Defaults()
	cfg.QueryResults.DefaultTimezone = "America/New_York"
	cfg.Worker.AutosaveInterval = Duration(2 * time.Minute)
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.QueryResults.DefaultTimezone != "America/New_York" {
		t.Errorf("DefaultTimezone = %q", got.QueryResults.DefaultTimezone)
	}
	if dur(got.Worker.AutosaveInterval) != 2*time.Minute {
		t.Errorf("AutosaveInterval = %v, want 2m", dur(got.Worker.AutosaveInterval))
	}
}
