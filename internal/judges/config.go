package judges

import (
	"fmt"
	"os"
	"strconv"

	"github.com/copperline/arbiter/internal/panel"
)

// Config holds judge wiring. The narrative judge is optional: without an
// API key the panel runs on the rule-based judges alone.
type Config struct {
	NarrativeEnabled bool   `toml:"narrative_enabled"`
	NarrativeAPIKey  string `toml:"narrative_api_key"`
	NarrativeModel   string `toml:"narrative_model"`
	BatchWorkers     int    `toml:"batch_workers"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	NarrativeEnabled string
	NarrativeAPIKey  string
	NarrativeModel   string
	BatchWorkers     string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.NarrativeEnabled {
		c.NarrativeEnabled = true
	}
	if overlay.NarrativeAPIKey != "" {
		c.NarrativeAPIKey = overlay.NarrativeAPIKey
	}
	if overlay.NarrativeModel != "" {
		c.NarrativeModel = overlay.NarrativeModel
	}
	if overlay.BatchWorkers != 0 {
		c.BatchWorkers = overlay.BatchWorkers
	}
}

func (c *Config) loadDefaults() {
	if c.NarrativeModel == "" {
		c.NarrativeModel = "claude-sonnet-4-20250514"
	}
	if c.BatchWorkers == 0 {
		c.BatchWorkers = 4
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.NarrativeEnabled != "" {
		if v := os.Getenv(env.NarrativeEnabled); v != "" {
			if parsed, err := strconv.ParseBool(v); err == nil {
				c.NarrativeEnabled = parsed
			}
		}
	}
	if env.NarrativeAPIKey != "" {
		if v := os.Getenv(env.NarrativeAPIKey); v != "" {
			c.NarrativeAPIKey = v
		}
	}
	if env.NarrativeModel != "" {
		if v := os.Getenv(env.NarrativeModel); v != "" {
			c.NarrativeModel = v
		}
	}
	if env.BatchWorkers != "" {
		if v := os.Getenv(env.BatchWorkers); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				c.BatchWorkers = parsed
			}
		}
	}
}

func (c *Config) validate() error {
	if c.BatchWorkers < 1 {
		return fmt.Errorf("batch_workers must be positive, got %d", c.BatchWorkers)
	}
	return nil
}

// Register adds the configured judges to the registry.
func Register(cfg *Config, registry *panel.Registry) {
	registry.Register(Completeness{})
	registry.Register(Consistency{})
	if cfg.NarrativeEnabled {
		registry.Register(NewNarrative(cfg.NarrativeAPIKey, cfg.NarrativeModel))
	}
}
