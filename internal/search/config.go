package search

import (
	"fmt"
	"math"
	"time"

	"capsearch/internal/core"
	"capsearch/internal/policy"
)

// Config holds everything the driver reads once at start.
type Config struct {
	Loads         []core.LoadLevel
	RoundDuration time.Duration
	Recording     policy.Policy
	Continuation  policy.Policy
	Updates       bool
	Targets       []string
	Args          []string
}

// Mode returns the request mode implied by the update flag.
func (c Config) Mode() core.Mode {
	return core.ModeFor(c.Updates)
}

// SinglePoint reports whether the config measures one fixed load instead of
// searching.
func (c Config) SinglePoint() bool {
	return len(c.Loads) == 1
}

// Validate returns a *ConfigError for the first invalid input.
func (c Config) Validate() error {
	if len(c.Loads) == 0 {
		return &ConfigError{Field: "loads", Reason: "must contain at least one load level"}
	}
	for i, l := range c.Loads {
		if l <= 0 {
			return &ConfigError{Field: fmt.Sprintf("loads[%d]", i), Reason: fmt.Sprintf("load level must be positive, got %d", l)}
		}
	}
	if c.RoundDuration <= 0 {
		return &ConfigError{Field: "roundDuration", Reason: fmt.Sprintf("must be positive, got %v", c.RoundDuration)}
	}
	if err := validatePolicy("recording", c.Recording); err != nil {
		return err
	}
	return validatePolicy("continuation", c.Continuation)
}

func validatePolicy(name string, p policy.Policy) error {
	if math.IsNaN(p.MaxFailureRate) || p.MaxFailureRate < 0 {
		return &ConfigError{Field: name + ".maxFailureRate", Reason: fmt.Sprintf("must be a non-negative fraction, got %v", p.MaxFailureRate)}
	}
	if p.MaxMedianLatency < 0 {
		return &ConfigError{Field: name + ".maxMedianLatency", Reason: fmt.Sprintf("must not be negative, got %v", p.MaxMedianLatency)}
	}
	return nil
}
