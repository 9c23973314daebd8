package analysis

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcome label values.
const (
	outcomeSuccess      = "success"
	outcomeServerError  = "server_error"
	outcomeNetworkError = "network_error"
)

// Metrics records analysis request counts and latencies.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the request collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskrank",
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Analysis service requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskrank",
			Subsystem: "analysis",
			Name:      "request_duration_seconds",
			Help:      "Latency of analysis service requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register analysis metrics: %w", err)
		}
	}
	return m, nil
}

// observe is a no-op on a nil receiver so the client works without metrics.
func (m *Metrics) observe(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.duration.WithLabelValues(endpoint).Observe(d.Seconds())
}
