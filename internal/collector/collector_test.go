package collector

import (
	"sync"
	"testing"
	"time"

	"capsearch/internal/core"
)

func TestCollector_CollectsEvents(t *testing.T) {
	c := NewCollector()
	c.Report(core.Event{ActorID: 1, Success: true, Duration: 10 * time.Millisecond})
	c.Report(core.Event{ActorID: 2, Success: false, Duration: 20 * time.Millisecond})
	c.Close()

	if events := c.Events(); len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestCollector_ThreadSafety(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	numGoroutines := 100
	eventsPerGoroutine := 50

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(actorID int) {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				c.Report(core.Event{ActorID: actorID, Success: true, Duration: time.Millisecond})
			}
		}(i)
	}

	wg.Wait()
	c.Close()

	expected := numGoroutines * eventsPerGoroutine
	if events := c.Events(); len(events) != expected {
		t.Errorf("expected %d events, got %d", expected, len(events))
	}
}

func TestCollector_DoubleClose(t *testing.T) {
	c := NewCollector()
	c.Close()
	c.Close()
}

func TestCollector_Summary(t *testing.T) {
	c := NewCollector()
	c.Report(core.Event{Success: true, Duration: 10 * time.Millisecond})
	c.Report(core.Event{Success: true, Duration: 30 * time.Millisecond})
	c.Report(core.Event{Success: false, Duration: 20 * time.Millisecond})

	s := c.Summary(3, 2*time.Second)
	if s.GeneratorID != 3 || s.TotalRequests != 3 || s.Success != 2 || s.Failure != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.SuccessRate() != 1.0 {
		t.Errorf("expected success rate 1.0/s, got %v", s.SuccessRate())
	}
}

func TestComputePercentile(t *testing.T) {
	durations := []time.Duration{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	if p50 := ComputePercentile(durations, 0.50); p50 != 50 {
		t.Errorf("expected p50=50, got %d", p50)
	}
	if p90 := ComputePercentile(durations, 0.90); p90 != 90 {
		t.Errorf("expected p90=90, got %d", p90)
	}
	if ComputePercentile(nil, 0.5) != 0 {
		t.Error("expected 0 for empty slice")
	}
	if ComputePercentile(durations, 1.5) != 100 {
		t.Error("expected max for p >= 1")
	}
}

func TestComputeLatencyStats(t *testing.T) {
	stats := ComputeLatencyStats([]time.Duration{
		30 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond,
	})
	if stats.Min != 10*time.Millisecond || stats.Max != 30*time.Millisecond {
		t.Errorf("unexpected min/max %v/%v", stats.Min, stats.Max)
	}
	if stats.Avg != 20*time.Millisecond || stats.Median != 20*time.Millisecond {
		t.Errorf("unexpected avg/median %v/%v", stats.Avg, stats.Median)
	}
	if (ComputeLatencyStats(nil) != LatencyStats{}) {
		t.Error("expected zero stats for no samples")
	}
}

func TestSummarize_CutoffCountsOnlyAsIssued(t *testing.T) {
	events := []core.Event{
		{Success: true, Duration: 10 * time.Millisecond},
		{Success: false, Duration: 50 * time.Millisecond},
		{Cutoff: true, Duration: 5 * time.Second},
	}

	s := Summarize(1, events, time.Second)

	if s.TotalRequests != 3 || s.Success != 1 || s.Failure != 1 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.Completed() != 2 {
		t.Errorf("expected 2 completed, got %d", s.Completed())
	}
	if s.Latency.Max != 50*time.Millisecond {
		t.Errorf("cutoff request must not contribute latency, max=%v", s.Latency.Max)
	}
}

func TestSummary_SuccessRateZeroDuration(t *testing.T) {
	if (Summary{Success: 10}).SuccessRate() != 0 {
		t.Error("expected 0 success rate for zero duration")
	}
}
