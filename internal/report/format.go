// Package report renders the outcome of a capacity search.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"capsearch/internal/policy"
	"capsearch/internal/search"
)

// FormatText writes the outcome in human-readable format.
func FormatText(w io.Writer, o *search.Outcome) {
	r := o.Round

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Capacity Search Results")
	fmt.Fprintln(w, "=======================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Mode:           %s\n", o.Mode)
	fmt.Fprintf(w, "Rounds:         %d\n", o.Iterations)
	if o.Record.BestLoad == 0 {
		fmt.Fprintln(w, "Capacity:       none (no round met the recording bounds)")
	} else {
		fmt.Fprintf(w, "Capacity:       %.1f req/s (at load %d)\n", o.Record.BestThroughput, o.Record.BestLoad)
	}

	if len(o.Record.History) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Progression:")
		for i, p := range o.Record.History {
			fmt.Fprintf(w, "  %2d  load %-8d best %.1f req/s\n", i+1, p.Load, p.Best)
		}
	}

	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Last Round (load %d):\n", r.Load)
	fmt.Fprintf(w, "  Duration:     %v\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Requests:     %s (%s ok, %s failed)\n",
		formatNumber(r.TotalRequests), formatNumber(r.NumSuccess), formatNumber(r.NumFailure))
	fmt.Fprintf(w, "  Throughput:   %.1f req/s\n", r.Throughput())
	fmt.Fprintf(w, "  Failure Rate: %s\n", policy.FormatRate(r.FailureRate))
	fmt.Fprintln(w, "  Latency:")
	fmt.Fprintf(w, "    Min:    %s\n", policy.FormatDuration(r.LatencyMin))
	fmt.Fprintf(w, "    Median: %s\n", policy.FormatDuration(r.LatencyMedian))
	fmt.Fprintf(w, "    Avg:    %s\n", policy.FormatDuration(r.LatencyAverage))
	fmt.Fprintf(w, "    Max:    %s\n", policy.FormatDuration(r.LatencyMax))

	writeChecks(w, "Recording", o.Recording)
	writeChecks(w, "Continuation", o.Continuation)
}

func writeChecks(w io.Writer, name string, res policy.Results) {
	if len(res.Results) == 0 {
		return
	}
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "%s Bounds:\n", name)
	for _, result := range res.Results {
		symbol := "✓"
		if !result.Passed {
			symbol = "✗"
		}
		fmt.Fprintf(w, "  %s %s < %s (actual: %s)\n",
			symbol, result.Name, result.Threshold, result.Actual)
	}
	if violations := res.Violations(); len(violations) > 0 {
		names := make([]string, len(violations))
		for i, v := range violations {
			names[i] = v.Name
		}
		fmt.Fprintf(w, "  Exceeded: %s\n", strings.Join(names, ", "))
	}
}

// FormatJSON writes the outcome in JSON format.
func FormatJSON(w io.Writer, o *search.Outcome) error {
	r := o.Round
	output := struct {
		Mode         string         `json:"mode"`
		Iterations   int            `json:"iterations"`
		Capacity     float64        `json:"capacity"`
		CapacityLoad int            `json:"capacityLoad"`
		History      []jsonPoint    `json:"history"`
		LastRound    jsonRound      `json:"lastRound"`
		Recording    policy.Results `json:"recording"`
		Continuation policy.Results `json:"continuation"`
	}{
		Mode:         string(o.Mode),
		Iterations:   o.Iterations,
		Capacity:     o.Record.BestThroughput,
		CapacityLoad: int(o.Record.BestLoad),
		History:      make([]jsonPoint, len(o.Record.History)),
		LastRound: jsonRound{
			Load:          int(r.Load),
			Duration:      r.Duration.Round(time.Millisecond).String(),
			TotalRequests: r.TotalRequests,
			SuccessCount:  r.NumSuccess,
			FailureCount:  r.NumFailure,
			FailureRate:   r.FailureRate,
			Throughput:    r.Throughput(),
			ReportedRate:  r.ReportedRate,
			Latency: jsonLatency{
				Min:    policy.FormatDuration(r.LatencyMin),
				Median: policy.FormatDuration(r.LatencyMedian),
				Avg:    policy.FormatDuration(r.LatencyAverage),
				Max:    policy.FormatDuration(r.LatencyMax),
			},
		},
		Recording:    o.Recording,
		Continuation: o.Continuation,
	}
	for i, p := range o.Record.History {
		output.History[i] = jsonPoint{Load: int(p.Load), Best: p.Best}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

type jsonPoint struct {
	Load int     `json:"load"`
	Best float64 `json:"best"`
}

type jsonRound struct {
	Load          int         `json:"load"`
	Duration      string      `json:"duration"`
	TotalRequests int         `json:"totalRequests"`
	SuccessCount  int         `json:"successCount"`
	FailureCount  int         `json:"failureCount"`
	FailureRate   float64     `json:"failureRate"`
	Throughput    float64     `json:"throughput"`
	ReportedRate  float64     `json:"reportedRate"`
	Latency       jsonLatency `json:"latency"`
}

type jsonLatency struct {
	Min    string `json:"min"`
	Median string `json:"median"`
	Avg    string `json:"avg"`
	Max    string `json:"max"`
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", formatNumber(n/1000), n%1000)
}
