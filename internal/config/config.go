package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ncruces/go-strftime"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when neither --config nor INVRESTORE_CONFIG_PATH is set.
const DefaultPath = "config/invrestore.yaml"

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and safe for concurrent reads.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	QueryResults QueryResultsConfig `yaml:"query_results"`
	StoreLimits  StoreLimitsConfig  `yaml:"store_limits"`
	Snapshots    SnapshotsConfig    `yaml:"snapshots"`
	Worker       WorkerConfig       `yaml:"worker"`
	Log          LogConfig          `yaml:"log"`
	Backup       BackupConfig       `yaml:"backup"`
}

// DatabaseConfig locates the persisted snapshot database.
type DatabaseConfig struct {
	Path    string `yaml:"path" env:"INVRESTORE_DB_PATH"`
	Backend string `yaml:"backend" env:"INVRESTORE_DB_BACKEND"`
}

// QueryResultsConfig controls list output.
type QueryResultsConfig struct {
	MaxResults      int    `yaml:"max_results" env:"INVRESTORE_MAX_RESULTS"`
	DefaultTimezone string `yaml:"default_timezone" env:"INVRESTORE_DEFAULT_TIMEZONE"`
	FullTimeFormat  string `yaml:"full_time_format" env:"INVRESTORE_FULL_TIME_FORMAT"`
}

// StoreLimitsConfig bounds retention.
type StoreLimitsConfig struct {
	MaxPerPlayer int `yaml:"max_per_player" env:"INVRESTORE_MAX_PER_PLAYER"`
	MaxTotal     int `yaml:"max_total" env:"INVRESTORE_MAX_TOTAL"`
}

// SnapshotsConfig controls snapshot capture.
type SnapshotsConfig struct {
	IDFormat string `yaml:"id_format" env:"INVRESTORE_ID_FORMAT"`
}

// WorkerConfig contains background worker settings.
type WorkerConfig struct {
	SaveInterval     Duration `yaml:"save_interval" env:"INVRESTORE_SAVE_INTERVAL"`
	AutosaveInterval Duration `yaml:"autosave_interval" env:"INVRESTORE_AUTOSAVE_INTERVAL"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"INVRESTORE_LOG_LEVEL"`
	Format string `yaml:"format" env:"INVRESTORE_LOG_FORMAT"`
}

// BackupConfig configures optional S3-compatible backups of the database
// file. An empty bucket disables backups.
type BackupConfig struct {
	Bucket    string   `yaml:"bucket" env:"INVRESTORE_BACKUP_BUCKET"`
	Prefix    string   `yaml:"prefix" env:"INVRESTORE_BACKUP_PREFIX"`
	Endpoint  string   `yaml:"endpoint" env:"INVRESTORE_S3_ENDPOINT"`
	Region    string   `yaml:"region" env:"INVRESTORE_S3_REGION"`
	UseSSL    bool     `yaml:"use_ssl" env:"INVRESTORE_S3_USE_SSL"`
	AccessKey string   `yaml:"-" env:"INVRESTORE_S3_ACCESS_KEY"` // env-only, never in YAML
	SecretKey string   `yaml:"-" env:"INVRESTORE_S3_SECRET_KEY"` // env-only, never in YAML
	URLExpiry Duration `yaml:"url_expiry" env:"INVRESTORE_S3_URL_EXPIRY"`
}

// Location returns the default display zone. Validation guarantees it loads.
func (q QueryResultsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(q.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Duration is a wrapper around time.Duration that supports YAML and
// environment string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// An empty path falls back to INVRESTORE_CONFIG_PATH, then DefaultPath.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = getEnv("INVRESTORE_CONFIG_PATH", DefaultPath)
	}

	if err := loadYAMLFile(cfg, path); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:    "data/invrestore.dat",
			Backend: BackendFile,
		},
		QueryResults: QueryResultsConfig{
			MaxResults:      5,
			DefaultTimezone: "UTC",
			FullTimeFormat:  "%Y-%m-%d %H:%M:%S (%Z)",
		},
		StoreLimits: StoreLimitsConfig{
			MaxPerPlayer: 50,
			MaxTotal:     10_000,
		},
		Snapshots: SnapshotsConfig{
			IDFormat: "base62",
		},
		Worker: WorkerConfig{
			SaveInterval:     Duration(5 * time.Minute),
			AutosaveInterval: 0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Backup: BackupConfig{
			Prefix:    "invrestore",
			UseSSL:    true,
			URLExpiry: Duration(15 * time.Minute),
		},
	}
}

// Save writes c as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// validate checks value ranges. All failures are reported together.
func (c *Config) validate() error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Database.Backend != BackendFile && c.Database.Backend != BackendSQLite {
		errs = append(errs, fmt.Errorf("database.backend must be %q or %q, got %q",
			BackendFile, BackendSQLite, c.Database.Backend))
	}
	if c.QueryResults.MaxResults < 1 || c.QueryResults.MaxResults > 10 {
		errs = append(errs, fmt.Errorf("query_results.max_results must be within 1..10, got %d",
			c.QueryResults.MaxResults))
	}
	if _, err := time.LoadLocation(c.QueryResults.DefaultTimezone); err != nil || c.QueryResults.DefaultTimezone == "" {
		errs = append(errs, fmt.Errorf("query_results.default_timezone %q is not a known zone",
			c.QueryResults.DefaultTimezone))
	}
	if _, err := strftime.Layout(c.QueryResults.FullTimeFormat); err != nil || c.QueryResults.FullTimeFormat == "" {
		errs = append(errs, fmt.Errorf("query_results.full_time_format %q is not a valid date time format",
			c.QueryResults.FullTimeFormat))
	}
	if c.StoreLimits.MaxPerPlayer < 1 {
		errs = append(errs, fmt.Errorf("store_limits.max_per_player must be at least 1, got %d",
			c.StoreLimits.MaxPerPlayer))
	}
	if c.StoreLimits.MaxTotal < 1 {
		errs = append(errs, fmt.Errorf("store_limits.max_total must be at least 1, got %d",
			c.StoreLimits.MaxTotal))
	}
	if c.Snapshots.IDFormat != "base62" && c.Snapshots.IDFormat != "ulid" {
		errs = append(errs, fmt.Errorf("snapshots.id_format must be base62 or ulid, got %q",
			c.Snapshots.IDFormat))
	}
	if c.Backup.Bucket != "" && c.Backup.Endpoint == "" {
		errs = append(errs, errors.New("backup.endpoint is required when backup.bucket is set"))
	}
	if c.Worker.SaveInterval <= 0 {
		errs = append(errs, errors.New("worker.save_interval must be positive"))
	}
	if c.Worker.AutosaveInterval < 0 {
		errs = append(errs, errors.New("worker.autosave_interval must not be negative"))
	}

	return errors.Join(errs...)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
