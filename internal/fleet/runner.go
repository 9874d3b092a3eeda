// Package fleet runs measurement rounds across a set of load generators.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"capsearch/internal/collector"
	"capsearch/internal/core"
	"capsearch/internal/ratelimit"
)

// ErrNoGenerators is returned by NewRunner when the fleet is empty.
var ErrNoGenerators = errors.New("fleet: at least one generator is required")

// Runner implements core.RoundRunner. The round's load is split across the
// generators and their summaries are aggregated into one Round.
type Runner struct {
	generators []Generator
	clock      core.Clock
	logger     *slog.Logger
}

// NewRunner creates a Runner. A nil clock means wall-clock time.
func NewRunner(generators []Generator, clock core.Clock) (*Runner, error) {
	if len(generators) == 0 {
		return nil, ErrNoGenerators
	}
	if clock == nil {
		clock = core.RealClock{}
	}
	return &Runner{
		generators: generators,
		clock:      clock,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

func (r *Runner) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Targets returns the nodes a round in the given mode is sent to: every node
// for updates, the first node for queries.
func Targets(mode core.Mode, targets []string) []string {
	if mode == core.ModeUpdate || len(targets) == 0 {
		return targets
	}
	return targets[:1]
}

// RunRound runs one round on every generator concurrently and blocks until
// all of them have reported. The first generator error cancels the others.
func (r *Runner) RunRound(ctx context.Context, req core.RoundRequest) (core.Round, error) {
	targets := Targets(req.Mode, req.Targets)
	if len(targets) == 0 {
		return core.Round{}, errors.New("fleet: round has no targets")
	}
	if req.Mode == core.ModeUpdate && len(targets) < 2 {
		r.logger.Warn("update round against fewer than two target nodes", "targets", len(targets))
	}

	shares := ratelimit.Split(int(req.Load), len(r.generators))
	summaries := make([]collector.Summary, len(r.generators))

	start := r.clock.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, gen := range r.generators {
		genReq := GenerateRequest{
			GeneratorID: i + 1,
			Load:        shares[i],
			Duration:    req.Duration,
			Targets:     targets,
			Mode:        req.Mode,
			Args:        req.Args,
		}
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("generator %d panicked: %v", genReq.GeneratorID, p)
				}
			}()
			r.logger.Debug("starting generator", "generator", genReq.GeneratorID, "load", genReq.Load)
			s, err := gen.Generate(gctx, genReq)
			if err != nil {
				return fmt.Errorf("generator %d: %w", genReq.GeneratorID, err)
			}
			summaries[genReq.GeneratorID-1] = s
			r.logger.Debug("generator finished", "generator", genReq.GeneratorID,
				"requests", s.TotalRequests, "success", s.Success, "failure", s.Failure)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Round{}, err
	}

	return collector.Aggregate(req.Load, r.clock.Since(start), summaries), nil
}
