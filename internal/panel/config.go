package panel

import (
	"fmt"
	"os"
	"time"
)

// Config holds panel evaluation budgets. The hard timeout is a tunable, not
// a design constant: externally-hosted judges have highly variable latency
// and caching, not a tight ceiling, is the primary mitigation.
type Config struct {
	JudgeTimeout string `toml:"judge_timeout"`
	HardTimeout  string `toml:"hard_timeout"`
	CacheTTL     string `toml:"cache_ttl"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	JudgeTimeout string
	HardTimeout  string
	CacheTTL     string
}

// JudgeTimeoutDuration returns JudgeTimeout as a time.Duration.
func (c *Config) JudgeTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.JudgeTimeout)
	return d
}

// HardTimeoutDuration returns HardTimeout as a time.Duration.
func (c *Config) HardTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.HardTimeout)
	return d
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c *Config) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
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
	if overlay.JudgeTimeout != "" {
		c.JudgeTimeout = overlay.JudgeTimeout
	}
	if overlay.HardTimeout != "" {
		c.HardTimeout = overlay.HardTimeout
	}
	if overlay.CacheTTL != "" {
		c.CacheTTL = overlay.CacheTTL
	}
}

func (c *Config) loadDefaults() {
	if c.JudgeTimeout == "" {
		c.JudgeTimeout = "20s"
	}
	if c.HardTimeout == "" {
		c.HardTimeout = "30s"
	}
	if c.CacheTTL == "" {
		c.CacheTTL = "1h"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.JudgeTimeout != "" {
		if v := os.Getenv(env.JudgeTimeout); v != "" {
			c.JudgeTimeout = v
		}
	}
	if env.HardTimeout != "" {
		if v := os.Getenv(env.HardTimeout); v != "" {
			c.HardTimeout = v
		}
	}
	if env.CacheTTL != "" {
		if v := os.Getenv(env.CacheTTL); v != "" {
			c.CacheTTL = v
		}
	}
}

func (c *Config) validate() error {
	judge, err := time.ParseDuration(c.JudgeTimeout)
	if err != nil {
		return fmt.Errorf("invalid judge_timeout: %w", err)
	}
	hard, err := time.ParseDuration(c.HardTimeout)
	if err != nil {
		return fmt.Errorf("invalid hard_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("invalid cache_ttl: %w", err)
	}
	if judge > hard {
		return fmt.Errorf("judge_timeout %s exceeds hard_timeout %s", c.JudgeTimeout, c.HardTimeout)
	}
	return nil
}
