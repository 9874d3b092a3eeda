// Package policy evaluates measurement rounds against service-level bounds.
package policy

import (
	"fmt"
	"time"

	"capsearch/internal/core"
)

// Accepter decides whether a round is within bounds.
type Accepter interface {
	Accepts(r core.Round) bool
}

// Policy is a pair of strict upper bounds on failure rate and median latency.
type Policy struct {
	MaxFailureRate   float64       `yaml:"maxFailureRate" json:"maxFailureRate"`
	MaxMedianLatency time.Duration `yaml:"maxMedianLatency" json:"maxMedianLatency"`
}

// Accepts reports whether r stays strictly below both bounds. It has no side
// effects.
func (p Policy) Accepts(r core.Round) bool {
	return r.FailureRate < p.MaxFailureRate && r.LatencyMedian < p.MaxMedianLatency
}

// String renders the bounds for logs.
func (p Policy) String() string {
	return fmt.Sprintf("failure<%s median<%s", FormatRate(p.MaxFailureRate), FormatDuration(p.MaxMedianLatency))
}

// Result represents the outcome of a single bound check.
type Result struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
}

// Results contains all bound check results for one round.
type Results struct {
	Passed  bool     `json:"passed"`
	Results []Result `json:"results"`
}

// Check evaluates r bound by bound. Results.Passed always equals Accepts(r).
func (p Policy) Check(r core.Round) Results {
	checks := []Result{
		{
			Name:      "failure_rate",
			Passed:    r.FailureRate < p.MaxFailureRate,
			Threshold: FormatRate(p.MaxFailureRate),
			Actual:    FormatRate(r.FailureRate),
		},
		{
			Name:      "latency.median",
			Passed:    r.LatencyMedian < p.MaxMedianLatency,
			Threshold: FormatDuration(p.MaxMedianLatency),
			Actual:    FormatDuration(r.LatencyMedian),
		},
	}

	res := Results{Passed: true, Results: checks}
	for _, c := range checks {
		if !c.Passed {
			res.Passed = false
		}
	}
	return res
}

// Violations returns only the failed checks.
func (r Results) Violations() []Result {
	violations := make([]Result, 0)
	for _, result := range r.Results {
		if !result.Passed {
			violations = append(violations, result)
		}
	}
	return violations
}

// FormatRate formats a fraction as a percentage.
func FormatRate(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}
