package progress

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"capsearch/internal/search"
)

const namespace = "capsearch"

// MetricsSink exposes the progress of a search as Prometheus metrics on its
// own registry.
type MetricsSink struct {
	registry *prometheus.Registry

	iterations     prometheus.Counter
	requests       *prometheus.CounterVec
	load           prometheus.Gauge
	throughput     prometheus.Gauge
	failureRatio   prometheus.Gauge
	latency        *prometheus.GaugeVec
	bestThroughput prometheus.Gauge
	bestLoad       prometheus.Gauge
	done           prometheus.Gauge
}

func NewMetricsSink() *MetricsSink {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &MetricsSink{
		registry: reg,
		iterations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Number of measurement rounds completed",
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests issued across all rounds by outcome",
		}, []string{"outcome"}), // outcome: success, failure, cutoff
		load: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "load_rps",
			Help:      "Offered load of the latest round",
		}),
		throughput: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "throughput_rps",
			Help:      "Successful requests per second in the latest round",
		}),
		failureRatio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "failure_ratio",
			Help:      "Failure rate of the latest round",
		}),
		latency: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "latency_seconds",
			Help:      "Latency of the latest round by statistic",
		}, []string{"stat"}), // stat: median, average, max, min
		bestThroughput: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capacity_rps",
			Help:      "Best sustainable throughput measured so far",
		}),
		bestLoad: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capacity_load_rps",
			Help:      "Offered load at which the capacity was measured",
		}),
		done: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "search_done",
			Help:      "1 once the search has finished",
		}),
	}
}

// Handler serves the sink's registry in the Prometheus exposition format.
func (m *MetricsSink) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *MetricsSink) Emit(s search.Snapshot, state search.State) error {
	r := s.Round
	m.iterations.Inc()
	m.requests.WithLabelValues("success").Add(float64(r.NumSuccess))
	m.requests.WithLabelValues("failure").Add(float64(r.NumFailure))
	// Counters panic on negative increments; a round with inconsistent
	// counts records no cutoffs.
	m.requests.WithLabelValues("cutoff").Add(float64(max(0, r.TotalRequests-r.NumSuccess-r.NumFailure)))

	m.load.Set(float64(r.Load))
	m.throughput.Set(r.Throughput())
	m.failureRatio.Set(r.FailureRate)
	m.latency.WithLabelValues("median").Set(r.LatencyMedian.Seconds())
	m.latency.WithLabelValues("average").Set(r.LatencyAverage.Seconds())
	m.latency.WithLabelValues("max").Set(r.LatencyMax.Seconds())
	m.latency.WithLabelValues("min").Set(r.LatencyMin.Seconds())

	m.bestThroughput.Set(s.BestThroughput)
	m.bestLoad.Set(float64(s.BestLoad))
	if state == search.StateDone {
		m.done.Set(1)
	}
	return nil
}
