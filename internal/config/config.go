// Package config loads the process configuration from a TOML file with
// environment overrides. The zero configuration is usable: sqlite store,
// local model artifacts under ml/, console logging.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultDatabaseDSN    = "data/recallml.db"
	DefaultModelPath      = "ml/model.json"
	DefaultStatsPath      = "ml/normalization-stats.json"
	DefaultMetadataPath   = "ml/metadata.json"
	DefaultScheduleAt     = "03:00"
	DefaultBackfillUsers  = 3
	DefaultReviewsPerUser = 50
	DefaultRemoteTimeout  = 10 // seconds
)

// Config holds the application configuration
type Config struct {
	DatabaseDriver string
	DatabaseDSN    string

	ModelPath            string
	StatsPath            string
	MetadataPath         string
	RemoteURL            string // non-empty selects the HTTP model backend
	RemoteAPIKey         string
	RemoteTimeoutSeconds int

	BackfillUsers          int
	BackfillReviewsPerUser int
	BackfillAllUsers       bool

	ScheduleAt string

	LogLevel  string
	LogFormat string
}

type fileConfig struct {
	Database struct {
		Driver string `toml:"driver"`
		DSN    string `toml:"dsn"`
	} `toml:"database"`
	Model struct {
		Path                 string `toml:"path"`
		Stats                string `toml:"stats"`
		Metadata             string `toml:"metadata"`
		RemoteURL            string `toml:"remote_url"`
		RemoteAPIKey         string `toml:"remote_api_key"`
		RemoteTimeoutSeconds int    `toml:"remote_timeout_seconds"`
	} `toml:"model"`
	Backfill struct {
		Users          int  `toml:"users"`
		ReviewsPerUser int  `toml:"reviews_per_user"`
		AllUsers       bool `toml:"all_users"`
	} `toml:"backfill"`
	Schedule struct {
		At string `toml:"at"`
	} `toml:"schedule"`
	Logging struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"logging"`
}

// Load builds the configuration from defaults, then the TOML file, then
// environment variables. An explicit path must exist; the default path
// ("recallml.toml") is optional.
func Load(path string) (*Config, error) {
	cfg := &Config{
		DatabaseDriver:         "sqlite3",
		DatabaseDSN:            DefaultDatabaseDSN,
		ModelPath:              DefaultModelPath,
		StatsPath:              DefaultStatsPath,
		MetadataPath:           DefaultMetadataPath,
		RemoteTimeoutSeconds:   DefaultRemoteTimeout,
		BackfillUsers:          DefaultBackfillUsers,
		BackfillReviewsPerUser: DefaultReviewsPerUser,
		ScheduleAt:             DefaultScheduleAt,
		LogLevel:               "info",
		LogFormat:              "console",
	}

	explicit := path != ""
	if !explicit {
		path = "recallml.toml"
	}
	if data, err := os.ReadFile(path); err == nil {
		var parsed fileConfig
		if err := toml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		applyFile(cfg, &parsed)
	} else if explicit {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyFile(cfg *Config, parsed *fileConfig) {
	if parsed.Database.Driver != "" {
		cfg.DatabaseDriver = parsed.Database.Driver
	}
	if parsed.Database.DSN != "" {
		cfg.DatabaseDSN = parsed.Database.DSN
	}
	if parsed.Model.Path != "" {
		cfg.ModelPath = parsed.Model.Path
	}
	if parsed.Model.Stats != "" {
		cfg.StatsPath = parsed.Model.Stats
	}
	if parsed.Model.Metadata != "" {
		cfg.MetadataPath = parsed.Model.Metadata
	}
	if parsed.Model.RemoteURL != "" {
		cfg.RemoteURL = parsed.Model.RemoteURL
	}
	if parsed.Model.RemoteAPIKey != "" {
		cfg.RemoteAPIKey = parsed.Model.RemoteAPIKey
	}
	if parsed.Model.RemoteTimeoutSeconds > 0 {
		cfg.RemoteTimeoutSeconds = parsed.Model.RemoteTimeoutSeconds
	}
	if parsed.Backfill.Users != 0 {
		cfg.BackfillUsers = parsed.Backfill.Users
	}
	if parsed.Backfill.ReviewsPerUser != 0 {
		cfg.BackfillReviewsPerUser = parsed.Backfill.ReviewsPerUser
	}
	cfg.BackfillAllUsers = parsed.Backfill.AllUsers
	if parsed.Schedule.At != "" {
		cfg.ScheduleAt = parsed.Schedule.At
	}
	if parsed.Logging.Level != "" {
		cfg.LogLevel = parsed.Logging.Level
	}
	if parsed.Logging.Format != "" {
		cfg.LogFormat = parsed.Logging.Format
	}
}

func applyEnv(cfg *Config) {
	// DATABASE_URL implies postgres, the conventional deployment shape
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseDriver = "postgres"
		cfg.DatabaseDSN = url
	}
	if driver := os.Getenv("RECALLML_DB_DRIVER"); driver != "" {
		cfg.DatabaseDriver = driver
	}
	if dsn := os.Getenv("RECALLML_DB_DSN"); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if path := os.Getenv("RECALLML_MODEL_PATH"); path != "" {
		cfg.ModelPath = path
	}
	if path := os.Getenv("RECALLML_STATS_PATH"); path != "" {
		cfg.StatsPath = path
	}
	if path := os.Getenv("RECALLML_METADATA_PATH"); path != "" {
		cfg.MetadataPath = path
	}
	if url := os.Getenv("RECALLML_REMOTE_URL"); url != "" {
		cfg.RemoteURL = url
	}
	if key := os.Getenv("RECALLML_REMOTE_API_KEY"); key != "" {
		cfg.RemoteAPIKey = key
	}
	if timeout := os.Getenv("RECALLML_REMOTE_TIMEOUT_SECONDS"); timeout != "" {
		if seconds, err := strconv.Atoi(timeout); err == nil {
			cfg.RemoteTimeoutSeconds = seconds
		}
	}
	if users := os.Getenv("RECALLML_BACKFILL_USERS"); users != "" {
		if count, err := strconv.Atoi(users); err == nil {
			cfg.BackfillUsers = count
		}
	}
	if reviews := os.Getenv("RECALLML_BACKFILL_REVIEWS_PER_USER"); reviews != "" {
		if count, err := strconv.Atoi(reviews); err == nil {
			cfg.BackfillReviewsPerUser = count
		}
	}
	if all := os.Getenv("RECALLML_BACKFILL_ALL_USERS"); all != "" {
		cfg.BackfillAllUsers = all == "true" || all == "1"
	}
	if at := os.Getenv("RECALLML_SCHEDULE_AT"); at != "" {
		cfg.ScheduleAt = at
	}
	if level := os.Getenv("RECALLML_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("RECALLML_LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}
}

// RemoteTimeout returns the HTTP backend timeout as a duration.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutSeconds) * time.Second
}

// Validate verifies the configuration is usable.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.DatabaseDriver)
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("database dsn is empty")
	}
	if c.RemoteURL == "" && strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("model path is empty and no remote url is set")
	}
	// normalization happens before the model boundary, remote included
	if strings.TrimSpace(c.StatsPath) == "" {
		return fmt.Errorf("stats path is empty")
	}
	if c.RemoteTimeoutSeconds <= 0 {
		return fmt.Errorf("remote timeout must be positive")
	}
	if c.BackfillUsers < 0 {
		return fmt.Errorf("backfill users cannot be negative")
	}
	if c.BackfillReviewsPerUser <= 0 {
		return fmt.Errorf("backfill reviews per user must be positive")
	}
	if _, err := time.Parse("15:04", c.ScheduleAt); err != nil {
		return fmt.Errorf("schedule time must be HH:MM, got %q", c.ScheduleAt)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported log format: %q", c.LogFormat)
	}
	return nil
}
