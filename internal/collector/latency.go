package collector

import (
	"sort"
	"time"
)

// LatencyStats contains latency statistics for a set of requests.
type LatencyStats struct {
	Min    time.Duration
	Max    time.Duration
	Avg    time.Duration
	Median time.Duration
	P90    time.Duration
	P99    time.Duration
}

// ComputePercentile calculates the percentile value from a sorted slice of durations.
// The percentile p should be between 0 and 1 (e.g., 0.95 for p95).
// The slice must be sorted in ascending order.
func ComputePercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	// nearest rank
	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}

// ComputeLatencyStats calculates all latency statistics from a slice of durations.
func ComputeLatencyStats(durations []time.Duration) LatencyStats {
	if len(durations) == 0 {
		return LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return LatencyStats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Avg:    total / time.Duration(len(sorted)),
		Median: ComputePercentile(sorted, 0.50),
		P90:    ComputePercentile(sorted, 0.90),
		P99:    ComputePercentile(sorted, 0.99),
	}
}
