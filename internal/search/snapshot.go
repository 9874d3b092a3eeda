package search

import (
	"time"

	"capsearch/internal/core"
)

// State tells a sink whether more snapshots will follow.
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
)

// Snapshot is the cumulative progress of a search after one iteration. The
// latest snapshot alone is enough to render the current state.
type Snapshot struct {
	Iteration int       `json:"iteration"`
	Mode      core.Mode `json:"mode"`

	// Per-iteration series, one entry per round executed so far.
	Loads               []core.LoadLevel `json:"loads"`
	BestPerIteration    []float64        `json:"bestPerIteration"`
	SuccessPerIteration []int            `json:"successPerIteration"`
	Durations           []time.Duration  `json:"durations"`

	TotalRequests int `json:"totalRequests"`
	TotalSuccess  int `json:"totalSuccess"`
	TotalFailure  int `json:"totalFailure"`

	BestThroughput float64        `json:"bestThroughput"`
	BestLoad       core.LoadLevel `json:"bestLoad"`

	Round          core.Round    `json:"round"`
	Recorded       bool          `json:"recorded"`
	TargetDuration time.Duration `json:"targetDuration"`
}

// Sink receives one snapshot per iteration; the last call carries StateDone.
type Sink interface {
	Emit(s Snapshot, state State) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(s Snapshot, state State) error

func (f SinkFunc) Emit(s Snapshot, state State) error {
	return f(s, state)
}

type discardSink struct{}

func (discardSink) Emit(Snapshot, State) error { return nil }

// series accumulates the cumulative parts of snapshots.
type series struct {
	loads     []core.LoadLevel
	best      []float64
	successes []int
	durations []time.Duration
	requests  int
	success   int
	failure   int
}

func (s *series) add(r core.Round, best float64) {
	s.loads = append(s.loads, r.Load)
	s.best = append(s.best, best)
	s.successes = append(s.successes, r.NumSuccess)
	s.durations = append(s.durations, r.Duration)
	s.requests += r.TotalRequests
	s.success += r.NumSuccess
	s.failure += r.NumFailure
}

// snapshot copies the series so sinks may retain what they receive.
func (s *series) snapshot() Snapshot {
	return Snapshot{
		Loads:               append([]core.LoadLevel(nil), s.loads...),
		BestPerIteration:    append([]float64(nil), s.best...),
		SuccessPerIteration: append([]int(nil), s.successes...),
		Durations:           append([]time.Duration(nil), s.durations...),
		TotalRequests:       s.requests,
		TotalSuccess:        s.success,
		TotalFailure:        s.failure,
	}
}
