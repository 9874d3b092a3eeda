package collector

import (
	"time"

	"capsearch/internal/core"
)

// Aggregate folds the generator summaries of one round into a Round.
//
// Counters are summed. The failure rate is the fraction of issued requests
// that did not succeed, including those cut off by the deadline.
// Latencies are reduced across generators that completed at least one
// request: median is the mean of medians, average the max of averages, max
// the max of maxima, and min the max of minima.
func Aggregate(load core.LoadLevel, measured time.Duration, summaries []Summary) core.Round {
	r := core.Round{Load: load, Duration: measured}

	var (
		medianSum time.Duration
		reporting int
	)
	for _, s := range summaries {
		r.TotalRequests += s.TotalRequests
		r.NumSuccess += s.Success
		r.NumFailure += s.Failure
		r.ReportedRate += s.SuccessRate()

		if s.Completed() == 0 {
			continue
		}
		reporting++
		medianSum += s.Latency.Median
		r.LatencyAverage = max(r.LatencyAverage, s.Latency.Avg)
		r.LatencyMax = max(r.LatencyMax, s.Latency.Max)
		r.LatencyMin = max(r.LatencyMin, s.Latency.Min)
	}

	if reporting > 0 {
		r.LatencyMedian = medianSum / time.Duration(reporting)
	}
	if r.TotalRequests > 0 {
		r.FailureRate = float64(r.TotalRequests-r.NumSuccess) / float64(r.TotalRequests)
	}
	return r
}
