package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tidwall/gjson"
)

// Generator reports travel as JSON with millisecond latencies:
//
//	{"generator":1,"duration_ms":30000,
//	 "requests":{"total":310,"success":300,"failure":8},
//	 "latency_ms":{"median":12.5,"average":14.1,"max":90,"min":3,"p90":30,"p99":70},
//	 "success_rate":10}
type jsonReport struct {
	Generator   int           `json:"generator"`
	DurationMs  float64       `json:"duration_ms"`
	Requests    jsonRequests  `json:"requests"`
	LatencyMs   jsonLatencyMs `json:"latency_ms"`
	SuccessRate float64       `json:"success_rate"`
}

type jsonRequests struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failure int `json:"failure"`
}

type jsonLatencyMs struct {
	Median  float64 `json:"median"`
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	P90     float64 `json:"p90"`
	P99     float64 `json:"p99"`
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func fromMs(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// WriteJSON writes s in the generator report format.
func WriteJSON(w io.Writer, s Summary) error {
	return json.NewEncoder(w).Encode(jsonReport{
		Generator:  s.GeneratorID,
		DurationMs: toMs(s.Duration),
		Requests: jsonRequests{
			Total:   s.TotalRequests,
			Success: s.Success,
			Failure: s.Failure,
		},
		LatencyMs: jsonLatencyMs{
			Median:  toMs(s.Latency.Median),
			Average: toMs(s.Latency.Avg),
			Max:     toMs(s.Latency.Max),
			Min:     toMs(s.Latency.Min),
			P90:     toMs(s.Latency.P90),
			P99:     toMs(s.Latency.P99),
		},
		SuccessRate: s.SuccessRate(),
	})
}

// ParseSummary reads a generator report. Missing latency fields default to
// zero; missing request counters are an error.
func ParseSummary(data []byte) (Summary, error) {
	if !gjson.ValidBytes(data) {
		return Summary{}, fmt.Errorf("invalid JSON in generator report")
	}

	var errs []error
	required := func(path string) gjson.Result {
		v := gjson.GetBytes(data, path)
		if !v.Exists() {
			errs = append(errs, fmt.Errorf("field %q missing from generator report", path))
		}
		return v
	}

	s := Summary{
		GeneratorID:   int(gjson.GetBytes(data, "generator").Int()),
		Duration:      fromMs(required("duration_ms").Float()),
		TotalRequests: int(required("requests.total").Int()),
		Success:       int(required("requests.success").Int()),
		Failure:       int(required("requests.failure").Int()),
	}
	if len(errs) > 0 {
		return Summary{}, errors.Join(errs...)
	}

	lat := gjson.GetBytes(data, "latency_ms")
	s.Latency = LatencyStats{
		Median: fromMs(lat.Get("median").Float()),
		Avg:    fromMs(lat.Get("average").Float()),
		Max:    fromMs(lat.Get("max").Float()),
		Min:    fromMs(lat.Get("min").Float()),
		P90:    fromMs(lat.Get("p90").Float()),
		P99:    fromMs(lat.Get("p99").Float()),
	}

	if s.Success+s.Failure > s.TotalRequests {
		return Summary{}, fmt.Errorf("generator report counts %d outcomes for %d requests", s.Success+s.Failure, s.TotalRequests)
	}
	return s, nil
}
