package fleet

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"capsearch/internal/collector"
	"capsearch/internal/config"
	"capsearch/internal/core"
	httpreq "capsearch/internal/http"
	"capsearch/internal/ratelimit"
)

// GenerateRequest is one generator's share of a round.
type GenerateRequest struct {
	GeneratorID int           `json:"generator"`
	Load        int           `json:"load"`
	Duration    time.Duration `json:"duration"`
	Targets     []string      `json:"targets"`
	Mode        core.Mode     `json:"mode"`
	Args        []string      `json:"args,omitempty"`
}

// Generator offers load to the targets for the requested duration and
// summarizes what it observed.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (collector.Summary, error)
}

// LocalGenerator runs its actors in-process. Actors share one rate limiter,
// so together they issue Load requests per second.
type LocalGenerator struct {
	requester *httpreq.Requester
	actors    int
	clock     core.Clock
}

// NewLocalGenerator creates a generator with the given number of actors.
func NewLocalGenerator(requester *httpreq.Requester, actors int) *LocalGenerator {
	if actors < 1 {
		actors = 1
	}
	return &LocalGenerator{
		requester: requester,
		actors:    actors,
		clock:     core.RealClock{},
	}
}

// Generate issues requests until req.Duration has elapsed. Requests still in
// flight at the deadline are recorded as cut off. req.Args may override the
// actor count and add template variables, see config.ParseGeneratorArgs.
func (g *LocalGenerator) Generate(ctx context.Context, req GenerateRequest) (collector.Summary, error) {
	if len(req.Targets) == 0 {
		return collector.Summary{}, fmt.Errorf("generator %d: no targets", req.GeneratorID)
	}
	args, err := config.ParseGeneratorArgs(req.Args)
	if err != nil {
		return collector.Summary{}, fmt.Errorf("generator %d: %w", req.GeneratorID, err)
	}
	actors := g.actors
	if args.Actors > 0 {
		actors = args.Actors
	}
	start := g.clock.Now()
	if req.Load <= 0 {
		// An idle generator still takes part in the round.
		select {
		case <-ctx.Done():
			return collector.Summary{}, ctx.Err()
		case <-time.After(req.Duration):
		}
		return collector.Summary{GeneratorID: req.GeneratorID, Duration: g.clock.Since(start)}, nil
	}

	roundCtx, cancel := context.WithTimeout(ctx, req.Duration)
	defer cancel()

	limiter := ratelimit.NewRateLimiter(req.Load)
	coll := collector.NewCollector()
	var (
		wg   sync.WaitGroup
		next atomic.Uint64
	)
	for i := 1; i <= actors; i++ {
		wg.Add(1)
		go func(actorID int) {
			defer wg.Done()
			defer recoverPanic(coll, req.GeneratorID, actorID)
			from := httpreq.Origin{GeneratorID: req.GeneratorID, ActorID: actorID, Vars: args.Vars}
			for {
				if err := limiter.Wait(roundCtx); err != nil {
					return
				}
				target := req.Targets[int(next.Add(1)-1)%len(req.Targets)]
				coll.Report(g.requester.Issue(roundCtx, target, req.Mode, from))
			}
		}(i)
	}
	wg.Wait()
	// Actors stop early when the next token falls past the deadline; the
	// round still lasts its full duration.
	<-roundCtx.Done()

	summary := coll.Summary(req.GeneratorID, g.clock.Since(start))
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// recoverPanic recovers from panics in actor goroutines and reports them as
// failed requests.
func recoverPanic(rep core.Reporter, generatorID, actorID int) {
	if r := recover(); r != nil {
		rep.Report(core.Event{
			GeneratorID: generatorID,
			ActorID:     actorID,
			Timestamp:   time.Now(),
			Success:     false,
			Error:       fmt.Sprintf("panic: %v", r),
		})
	}
}
