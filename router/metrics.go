package router

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics holds the router's prometheus collectors.
type Metrics struct {
	quotesTotal     *prometheus.CounterVec
	quoteDuration   *prometheus.HistogramVec
	executionsTotal *prometheus.CounterVec
}

// NewMetrics creates the router collectors and registers them with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		quotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Subsystem: "router",
			Name:      "quotes_total",
			Help:      "Number of quotes served, by protocol and outcome.",
		}, []string{"protocol", "outcome"}),
		quoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "amm",
			Subsystem: "router",
			Name:      "quote_duration_seconds",
			Help:      "Time spent computing a quote.",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 10),
		}, []string{"protocol"}),
		executionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Subsystem: "router",
			Name:      "executions_total",
			Help:      "Number of execution requests handed to the executor, by protocol and outcome.",
		}, []string{"protocol", "outcome"}),
	}
	registry.MustRegister(m.quotesTotal, m.quoteDuration, m.executionsTotal)
	return m
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}
