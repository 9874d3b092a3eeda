package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"capsearch/internal/core"
	"capsearch/internal/search"
)

// SummaryFile is the name FileSink writes inside its directory.
const SummaryFile = "summary.json"

// greenFailureRate is the failure rate below which a round is shown green.
const greenFailureRate = 0.01

// Summary is the document FileSink keeps up to date. Durations are seconds,
// latencies milliseconds and rates percentages.
type Summary struct {
	RunID     string       `json:"run_id"`
	State     search.State `json:"state"`
	Mode      core.Mode    `json:"mode"`
	IsUpdate  bool         `json:"is_update"`
	StartedAt time.Time    `json:"started_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Unit      string       `json:"unit"`

	TotalRequests       int       `json:"total_requests"`
	Loads               []int     `json:"loads"`
	RPS                 float64   `json:"rps"`
	RPSMax              float64   `json:"rps_max"`
	RPSMaxIn            int       `json:"rps_max_in"`
	RPSMaxIter          []float64 `json:"rps_max_iter"`
	NumSuccPerIteration []int     `json:"num_succ_per_iteration"`
	SuccessRate         float64   `json:"success_rate"`
	FailureRate         float64   `json:"failure_rate"`
	FailureRateColor    string    `json:"failure_rate_color"`
	TMedianMs           float64   `json:"t_median_ms"`
	TAverageMs          float64   `json:"t_average_ms"`
	TMaxMs              float64   `json:"t_max_ms"`
	TMinMs              float64   `json:"t_min_ms"`
	Duration            []float64 `json:"duration"`
	TargetDuration      float64   `json:"target_duration"`
	TargetLoad          int       `json:"target_load"`
}

// FileSink rewrites <dir>/summary.json after every round so an observer can
// follow a long search.
type FileSink struct {
	dir     string
	runID   uuid.UUID
	clock   core.Clock
	started time.Time
}

// NewFileSink creates dir if needed and assigns the search a run id.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}
	clock := core.RealClock{}
	return &FileSink{
		dir:     dir,
		runID:   uuid.New(),
		clock:   clock,
		started: clock.Now(),
	}, nil
}

func (f *FileSink) RunID() uuid.UUID { return f.runID }

// Path returns the summary file location.
func (f *FileSink) Path() string {
	return filepath.Join(f.dir, SummaryFile)
}

func (f *FileSink) Emit(s search.Snapshot, state search.State) error {
	data, err := json.MarshalIndent(f.summarize(s, state), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	// Written beside the target and renamed into place.
	tmp, err := os.CreateTemp(f.dir, SummaryFile+".*")
	if err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing summary: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

func (f *FileSink) summarize(s search.Snapshot, state search.State) Summary {
	r := s.Round
	out := Summary{
		RunID:     f.runID.String(),
		State:     state,
		Mode:      s.Mode,
		IsUpdate:  s.Mode == core.ModeUpdate,
		StartedAt: f.started,
		UpdatedAt: f.clock.Now(),
		Unit:      "requests / s",

		TotalRequests:       r.TotalRequests,
		Loads:               make([]int, len(s.Loads)),
		RPS:                 r.Throughput(),
		RPSMax:              s.BestThroughput,
		RPSMaxIn:            int(s.BestLoad),
		RPSMaxIter:          s.BestPerIteration,
		NumSuccPerIteration: s.SuccessPerIteration,
		SuccessRate:         r.SuccessRate() * 100,
		FailureRate:         r.FailureRate * 100,
		FailureRateColor:    "red",
		TMedianMs:           ms(r.LatencyMedian),
		TAverageMs:          ms(r.LatencyAverage),
		TMaxMs:              ms(r.LatencyMax),
		TMinMs:              ms(r.LatencyMin),
		Duration:            make([]float64, len(s.Durations)),
		TargetDuration:      s.TargetDuration.Seconds(),
		TargetLoad:          int(r.Load),
	}
	if r.FailureRate < greenFailureRate {
		out.FailureRateColor = "green"
	}
	for i, l := range s.Loads {
		out.Loads[i] = int(l)
	}
	for i, d := range s.Durations {
		out.Duration[i] = d.Seconds()
	}
	return out
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
