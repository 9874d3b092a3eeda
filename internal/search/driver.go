// Package search drives an escalating load sequence against a target and
// derives the highest throughput it sustains within service-level bounds.
package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"capsearch/internal/capacity"
	"capsearch/internal/core"
	"capsearch/internal/policy"
)

// Outcome is the result of a completed search.
type Outcome struct {
	Mode       core.Mode       `json:"mode"`
	Iterations int             `json:"iterations"`
	Round      core.Round      `json:"round"`
	Record     capacity.Record `json:"record"`

	Recording    policy.Results `json:"recording"`
	Continuation policy.Results `json:"continuation"`
}

// Driver runs the capacity search. It is sequential: exactly one round is in
// flight at a time and the next load is issued only after the previous round
// has been recorded.
type Driver struct {
	cfg    Config
	runner core.RoundRunner
	sink   Sink
	logger *slog.Logger
}

// New validates cfg and creates a Driver. A nil sink discards snapshots.
func New(cfg Config, runner core.RoundRunner, sink Sink) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		return nil, &ConfigError{Field: "runner", Reason: "round runner is required"}
	}
	if sink == nil {
		sink = discardSink{}
	}
	return &Driver{
		cfg:    cfg,
		runner: runner,
		sink:   sink,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger used for per-round progress messages.
func (d *Driver) SetLogger(l *slog.Logger) {
	if l != nil {
		d.logger = l
	}
}

// Run walks the load sequence until the continuation policy rejects a round
// or the sequence is exhausted. Runner and sink failures abort the search
// and no Outcome is returned.
func (d *Driver) Run(ctx context.Context) (*Outcome, error) {
	tracker := capacity.NewTracker(d.cfg.Recording)
	mode := d.cfg.Mode()
	single := d.cfg.SinglePoint()

	var (
		hist series
		last core.Round
		i    int
	)
	for ; i < len(d.cfg.Loads); i++ {
		load := d.cfg.Loads[i]
		d.logger.Info("testing load", "iteration", i, "load", load, "mode", mode)

		r, err := d.runner.RunRound(ctx, core.RoundRequest{
			Load:     load,
			Duration: d.cfg.RoundDuration,
			Targets:  d.cfg.Targets,
			Mode:     mode,
			Args:     d.cfg.Args,
		})
		if err != nil {
			return nil, &RoundError{Iteration: i, Load: load, Err: err}
		}
		r.Load = load
		last = r

		d.logger.Info("round finished",
			"load", load,
			"failure_rate", r.FailureRate,
			"median", r.LatencyMedian,
			"throughput", r.Throughput())

		var recorded, more bool
		if single {
			tracker.Set(r, r.Throughput())
			recorded = true
		} else {
			recorded = tracker.Consider(r, r.Throughput())
			more = d.cfg.Continuation.Accepts(r) && i+1 < len(d.cfg.Loads)
		}

		best, bestLoad := tracker.Best()
		hist.add(r, best)

		snap := hist.snapshot()
		snap.Iteration = i
		snap.Mode = mode
		snap.BestThroughput = best
		snap.BestLoad = bestLoad
		snap.Round = r
		snap.Recorded = recorded
		snap.TargetDuration = d.cfg.RoundDuration

		state := StateRunning
		if !more {
			state = StateDone
		}
		if err := d.sink.Emit(snap, state); err != nil {
			return nil, fmt.Errorf("emitting progress for iteration %d: %w", i, err)
		}

		d.logger.Info("measured capacity so far", "best", best, "best_load", bestLoad)

		if !more {
			break
		}
	}

	return &Outcome{
		Mode:         mode,
		Iterations:   i + 1,
		Round:        last,
		Record:       tracker.Record(),
		Recording:    d.cfg.Recording.Check(last),
		Continuation: d.cfg.Continuation.Check(last),
	}, nil
}
