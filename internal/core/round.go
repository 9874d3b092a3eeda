package core

import "time"

// LoadLevel is a target aggregate request rate in requests per second.
type LoadLevel int

// NoLoad marks the absence of a load level, e.g. before any round was accepted.
const NoLoad LoadLevel = 0

// Round holds the aggregated statistics of one completed measurement round.
// A Round is never mutated after the runner returns it.
type Round struct {
	Load     LoadLevel     `json:"load"`
	Duration time.Duration `json:"duration"`

	FailureRate float64 `json:"failureRate"`

	LatencyMedian  time.Duration `json:"latencyMedian"`
	LatencyAverage time.Duration `json:"latencyAverage"`
	LatencyMax     time.Duration `json:"latencyMax"`
	LatencyMin     time.Duration `json:"latencyMin"`

	TotalRequests int `json:"totalRequests"`
	NumSuccess    int `json:"numSuccess"`
	NumFailure    int `json:"numFailure"`

	// ReportedRate is the generators' own average success rate in
	// requests/second. Informational; capacity uses Throughput.
	ReportedRate float64 `json:"reportedRate,omitempty"`
}

// Throughput returns successful requests per second over the measured
// duration, or 0 if the duration is not positive.
func (r Round) Throughput() float64 {
	secs := r.Duration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.NumSuccess) / secs
}

// SuccessRate returns the fraction of requests that succeeded, or 0 if no
// requests were issued.
func (r Round) SuccessRate() float64 {
	if r.TotalRequests == 0 {
		return 0
	}
	return float64(r.NumSuccess) / float64(r.TotalRequests)
}
