package search

import (
	"errors"
	"fmt"

	"capsearch/internal/core"
)

var (
	// ErrInvalidConfig is matched by every ConfigError.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrRoundFailed is matched by every RoundError.
	ErrRoundFailed = errors.New("round failed")
)

// ConfigError reports an input rejected before any round was run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// RoundError reports that the round runner could not produce a round. The
// search stops; the round is not retried.
type RoundError struct {
	Iteration int
	Load      core.LoadLevel
	Err       error
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("round %d at %d rps: %v", e.Iteration, e.Load, e.Err)
}

func (e *RoundError) Unwrap() []error {
	return []error{ErrRoundFailed, e.Err}
}
