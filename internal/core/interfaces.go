// Package core defines the fundamental interfaces and types for capsearch.
package core

import (
	"context"
	"time"
)

// Mode selects which kind of request a round offers to the target.
type Mode string

const (
	// ModeQuery issues read-only requests.
	ModeQuery Mode = "query"
	// ModeUpdate issues state-changing requests.
	ModeUpdate Mode = "update"
)

// ModeFor maps the update flag to a Mode.
func ModeFor(updates bool) Mode {
	if updates {
		return ModeUpdate
	}
	return ModeQuery
}

// RoundRequest describes one measurement round to execute.
type RoundRequest struct {
	Load     LoadLevel
	Duration time.Duration
	Targets  []string
	Mode     Mode
	Args     []string
}

// RoundRunner executes a single measurement round and blocks until it has
// completed. Implementations fan out to their load generators internally.
type RoundRunner interface {
	RunRound(ctx context.Context, req RoundRequest) (Round, error)
}

// RoundRunnerFunc adapts a function to the RoundRunner interface.
type RoundRunnerFunc func(ctx context.Context, req RoundRequest) (Round, error)

func (f RoundRunnerFunc) RunRound(ctx context.Context, req RoundRequest) (Round, error) {
	return f(ctx, req)
}

// Event represents a single request issued by a load generator actor.
type Event struct {
	GeneratorID int
	ActorID     int
	Timestamp   time.Time
	Mode        Mode
	Duration    time.Duration
	Success     bool
	Cutoff      bool // in flight when the round deadline elapsed
	Error       string
	StatusCode  int
	BytesSent   int64
	BytesRecv   int64
}

// Reporter is the interface actors use to send events to a collector.
type Reporter interface {
	Report(Event)
}
