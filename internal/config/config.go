// Package config loads the root service configuration: a config.toml base,
// an optional environment overlay, and ARBITER_* variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/copperline/arbiter/internal/judges"
	"github.com/copperline/arbiter/internal/oversight"
	"github.com/copperline/arbiter/internal/panel"
	"github.com/copperline/arbiter/internal/submission"
	"github.com/copperline/arbiter/pkg/cache"
	"github.com/copperline/arbiter/pkg/database"
	"github.com/copperline/arbiter/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvArbiterEnv             = "ARBITER_ENV"
	EnvArbiterShutdownTimeout = "ARBITER_SHUTDOWN_TIMEOUT"
	EnvArbiterVersion         = "ARBITER_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "ARBITER_DB_HOST",
	Port:            "ARBITER_DB_PORT",
	Name:            "ARBITER_DB_NAME",
	User:            "ARBITER_DB_USER",
	Password:        "ARBITER_DB_PASSWORD",
	SSLMode:         "ARBITER_DB_SSL_MODE",
	MaxOpenConns:    "ARBITER_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "ARBITER_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "ARBITER_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "ARBITER_DB_CONN_TIMEOUT",
}

var cacheEnv = &cache.Env{
	Addr:        "ARBITER_CACHE_ADDR",
	Password:    "ARBITER_CACHE_PASSWORD",
	DB:          "ARBITER_CACHE_DB",
	ConnTimeout: "ARBITER_CACHE_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "ARBITER_STORAGE_CONTAINER_NAME",
	ConnectionString: "ARBITER_STORAGE_CONNECTION_STRING",
}

var panelEnv = &panel.Env{
	JudgeTimeout: "ARBITER_PANEL_JUDGE_TIMEOUT",
	HardTimeout:  "ARBITER_PANEL_HARD_TIMEOUT",
	CacheTTL:     "ARBITER_PANEL_CACHE_TTL",
}

var judgesEnv = &judges.Env{
	NarrativeEnabled: "ARBITER_JUDGES_NARRATIVE_ENABLED",
	NarrativeAPIKey:  "ANTHROPIC_API_KEY",
	NarrativeModel:   "ARBITER_JUDGES_NARRATIVE_MODEL",
	BatchWorkers:     "ARBITER_JUDGES_BATCH_WORKERS",
}

var oversightEnv = &oversight.Env{
	ConfidenceThreshold: "ARBITER_OVERSIGHT_CONFIDENCE_THRESHOLD",
	AmountThreshold:     "ARBITER_OVERSIGHT_AMOUNT_THRESHOLD",
	AlwaysInterrupt:     "ARBITER_OVERSIGHT_ALWAYS_INTERRUPT",
	HighRiskCategories:  "ARBITER_OVERSIGHT_HIGH_RISK_CATEGORIES",
	ReviewTTL:           "ARBITER_OVERSIGHT_REVIEW_TTL",
	SweepInterval:       "ARBITER_OVERSIGHT_SWEEP_INTERVAL",
}

var submissionEnv = &submission.Env{
	Endpoint:    "ARBITER_SUBMISSION_ENDPOINT",
	MaxAttempts: "ARBITER_SUBMISSION_MAX_ATTEMPTS",
	BaseDelay:   "ARBITER_SUBMISSION_BASE_DELAY",
}

// Config is the root configuration for the arbiter service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Cache           cache.Config      `toml:"cache"`
	Storage         storage.Config    `toml:"storage"`
	Panel           panel.Config      `toml:"panel"`
	Judges          judges.Config     `toml:"judges"`
	Oversight       oversight.Config  `toml:"oversight"`
	Submission      submission.Config `toml:"submission"`
	API             APIConfig         `toml:"api"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the ARBITER_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvArbiterEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and
// environment variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Cache.Merge(&overlay.Cache)
	c.Storage.Merge(&overlay.Storage)
	c.Panel.Merge(&overlay.Panel)
	c.Judges.Merge(&overlay.Judges)
	c.Oversight.Merge(&overlay.Oversight)
	c.Submission.Merge(&overlay.Submission)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Cache.Finalize(cacheEnv); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Panel.Finalize(panelEnv); err != nil {
		return fmt.Errorf("panel: %w", err)
	}
	if err := c.Judges.Finalize(judgesEnv); err != nil {
		return fmt.Errorf("judges: %w", err)
	}
	if err := c.Oversight.Finalize(oversightEnv); err != nil {
		return fmt.Errorf("oversight: %w", err)
	}
	if err := c.Submission.Finalize(submissionEnv); err != nil {
		return fmt.Errorf("submission: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvArbiterShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvArbiterVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvArbiterEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
