package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// apiMetrics holds the prometheus instruments exposed on /metrics.
type apiMetrics struct {
	requestsTotal  *prometheus.CounterVec
	sessionsReaped prometheus.Counter
}

func newAPIMetrics(reg prometheus.Registerer) *apiMetrics {
	factory := promauto.With(reg)
	return &apiMetrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keygate_requests_total",
			Help: "API requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		sessionsReaped: factory.NewCounter(prometheus.CounterOpts{
			Name: "keygate_sessions_reaped_total",
			Help: "Expired sessions removed by the background reaper.",
		}),
	}
}

func (m *apiMetrics) observe(op, outcome string) {
	m.requestsTotal.WithLabelValues(op, outcome).Inc()
}
