package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hadarzilkha/RateLimiterDemo/internal/ratelimit"
)

type Metrics struct {
	PerformsTotal *prometheus.CounterVec
	WaitsTotal    *prometheus.CounterVec
	WaitDuration  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PerformsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratelimiter_performs_total",
				Help: "Total Perform calls by final outcome",
			},
			[]string{"outcome"},
		),
		WaitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratelimiter_rule_waits_total",
				Help: "Total suspensions while waiting for a rule to free a slot",
			},
			[]string{"rule"},
		),
		WaitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ratelimiter_rule_wait_seconds",
				Help:    "Planned suspend duration per rule wait",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"rule"},
		),
	}

	reg.MustRegister(m.PerformsTotal, m.WaitsTotal, m.WaitDuration)
	return m
}

// ObserveWait matches the coordinator's wait hook signature.
func (m *Metrics) ObserveWait(rule string, wait time.Duration) {
	m.WaitsTotal.WithLabelValues(rule).Inc()
	m.WaitDuration.WithLabelValues(rule).Observe(wait.Seconds())
}

// ObserveOutcome matches the coordinator's outcome hook signature.
func (m *Metrics) ObserveOutcome(o ratelimit.Outcome) {
	m.PerformsTotal.WithLabelValues(string(o)).Inc()
}
