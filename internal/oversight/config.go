package oversight

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config holds the oversight policy inputs. Thresholds are deliberately
// configuration, not constants: the contract requires an implementer to
// expose them.
type Config struct {
	ConfidenceThreshold float64  `toml:"confidence_threshold"`
	AmountThreshold     int64    `toml:"amount_threshold"`
	AlwaysInterrupt     []string `toml:"always_interrupt"`
	HighRiskCategories  []string `toml:"high_risk_categories"`
	ReviewTTL           string   `toml:"review_ttl"`
	SweepInterval       string   `toml:"sweep_interval"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ConfidenceThreshold string
	AmountThreshold     string
	AlwaysInterrupt     string
	HighRiskCategories  string
	ReviewTTL           string
	SweepInterval       string
}

// ReviewTTLDuration returns ReviewTTL as a time.Duration.
func (c *Config) ReviewTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReviewTTL)
	return d
}

// SweepIntervalDuration returns SweepInterval as a time.Duration.
func (c *Config) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// AlwaysInterrupts reports whether actionType is in the fixed always-interrupt set.
func (c *Config) AlwaysInterrupts(actionType string) bool {
	return slices.Contains(c.AlwaysInterrupt, actionType)
}

// HighRisk reports whether category is in the configured high-risk set.
func (c *Config) HighRisk(category string) bool {
	return slices.Contains(c.HighRiskCategories, category)
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
	if overlay.ConfidenceThreshold != 0 {
		c.ConfidenceThreshold = overlay.ConfidenceThreshold
	}
	if overlay.AmountThreshold != 0 {
		c.AmountThreshold = overlay.AmountThreshold
	}
	if overlay.AlwaysInterrupt != nil {
		c.AlwaysInterrupt = overlay.AlwaysInterrupt
	}
	if overlay.HighRiskCategories != nil {
		c.HighRiskCategories = overlay.HighRiskCategories
	}
	if overlay.ReviewTTL != "" {
		c.ReviewTTL = overlay.ReviewTTL
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
}

func (c *Config) loadDefaults() {
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = 0.75
	}
	if c.AmountThreshold == 0 {
		c.AmountThreshold = 500_00
	}
	if c.AlwaysInterrupt == nil {
		c.AlwaysInterrupt = []string{"blockPayment", "closeAccount"}
	}
	if c.HighRiskCategories == nil {
		c.HighRiskCategories = []string{"fraud"}
	}
	if c.ReviewTTL == "" {
		c.ReviewTTL = "72h"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "10m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ConfidenceThreshold != "" {
		if v := os.Getenv(env.ConfidenceThreshold); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.ConfidenceThreshold = f
			}
		}
	}
	if env.AmountThreshold != "" {
		if v := os.Getenv(env.AmountThreshold); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				c.AmountThreshold = n
			}
		}
	}
	if env.AlwaysInterrupt != "" {
		if v := os.Getenv(env.AlwaysInterrupt); v != "" {
			c.AlwaysInterrupt = splitTrimmed(v)
		}
	}
	if env.HighRiskCategories != "" {
		if v := os.Getenv(env.HighRiskCategories); v != "" {
			c.HighRiskCategories = splitTrimmed(v)
		}
	}
	if env.ReviewTTL != "" {
		if v := os.Getenv(env.ReviewTTL); v != "" {
			c.ReviewTTL = v
		}
	}
	if env.SweepInterval != "" {
		if v := os.Getenv(env.SweepInterval); v != "" {
			c.SweepInterval = v
		}
	}
}

func (c *Config) validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1]: %f", c.ConfidenceThreshold)
	}
	if c.AmountThreshold < 0 {
		return fmt.Errorf("amount_threshold must be non-negative: %d", c.AmountThreshold)
	}
	if _, err := time.ParseDuration(c.ReviewTTL); err != nil {
		return fmt.Errorf("invalid review_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.SweepInterval); err != nil {
		return fmt.Errorf("invalid sweep_interval: %w", err)
	}
	return nil
}

func splitTrimmed(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
