package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vaultd"

// Metrics are the collectors updated by the API of the daemon.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	aborted  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Number of handled requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of handled requests by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		aborted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aborted_calls_total",
			Help:      "Number of calls aborted by the error policy.",
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.aborted} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records the outcome of one call of operation. Outcome is "ok" or
// the kind of the returned error.
func (m *Metrics) Observe(
	operation, outcome string, aborted bool, elapsed time.Duration,
) {
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if aborted {
		m.aborted.WithLabelValues(operation).Inc()
	}
}
