// Package progress renders the snapshots a capacity search emits after every
// round: terminal lines, a rewritten summary file and Prometheus gauges.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"capsearch/internal/policy"
	"capsearch/internal/search"
)

// TextSink prints one line per round.
type TextSink struct {
	quiet  bool
	output io.Writer
	mu     sync.Mutex
}

func NewTextSink(quiet bool) *TextSink {
	return &TextSink{
		quiet:  quiet,
		output: os.Stderr,
	}
}

func (p *TextSink) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

func (p *TextSink) Emit(s search.Snapshot, state search.State) error {
	if p.quiet {
		return nil
	}
	r := s.Round
	mark := ""
	if s.Recorded {
		mark = " *"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.output, "[%d] load %d: %.1f rps, failures %s, median %s%s | capacity %.1f rps at load %d\n",
		s.Iteration+1, r.Load, r.Throughput(), policy.FormatRate(r.FailureRate),
		policy.FormatDuration(r.LatencyMedian), mark, s.BestThroughput, s.BestLoad)
	if state == search.StateDone {
		fmt.Fprintf(p.output, "search finished after %d rounds (%s)\n",
			len(s.Loads), sum(s.Durations).Round(time.Second))
	}
	return nil
}

func (p *TextSink) Printf(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, format+"\n", args...)
	p.mu.Unlock()
}

func sum(ds []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total
}

// MultiSink forwards every snapshot to each sink in order and stops at the
// first error.
type MultiSink []search.Sink

func (m MultiSink) Emit(s search.Snapshot, state search.State) error {
	for _, sink := range m {
		if err := sink.Emit(s, state); err != nil {
			return err
		}
	}
	return nil
}
