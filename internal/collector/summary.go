package collector

import (
	"time"

	"capsearch/internal/core"
)

// Summary is what one load generator reports for one round.
type Summary struct {
	GeneratorID   int
	Duration      time.Duration
	TotalRequests int
	Success       int
	Failure       int
	Latency       LatencyStats
}

// SuccessRate returns the generator's successful requests per second.
func (s Summary) SuccessRate() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Success) / s.Duration.Seconds()
}

// Completed returns the number of requests that finished before the cutoff.
func (s Summary) Completed() int {
	return s.Success + s.Failure
}

// Summarize reduces one generator's events to a Summary. Pure function.
// Requests cut off by the round deadline count toward TotalRequests only and
// contribute no latency sample.
func Summarize(generatorID int, events []core.Event, duration time.Duration) Summary {
	s := Summary{GeneratorID: generatorID, Duration: duration}

	latencies := make([]time.Duration, 0, len(events))
	for _, e := range events {
		s.TotalRequests++
		if e.Cutoff {
			continue
		}
		if e.Success {
			s.Success++
		} else {
			s.Failure++
		}
		latencies = append(latencies, e.Duration)
	}

	s.Latency = ComputeLatencyStats(latencies)
	return s
}

// Summary closes the collector and summarizes everything it received.
func (c *Collector) Summary(generatorID int, duration time.Duration) Summary {
	c.Close()
	return Summarize(generatorID, c.Events(), duration)
}
