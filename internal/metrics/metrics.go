// Package metrics declares the Prometheus collectors exported by the lobby.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation result label values.
const (
	ResultOK           = "ok"
	ResultInvalid      = "invalid"
	ResultUnauthorized = "unauthorized"
	ResultNotFound     = "not_found"
	ResultError        = "error"
)

var (
	// Registry

	RegisteredServers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lobby_registered_servers",
		Help: "Number of game servers currently registered",
	})
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lobby_operations_total",
		Help: "Registry operations by name and result",
	}, []string{"operation", "result"})
	ExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobby_expired_servers_total",
		Help: "Servers removed by the stale sweeper",
	})

	// Journal

	JournalDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobby_journal_dropped_total",
		Help: "History events dropped because the queue was full",
	})
	JournalWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobby_journal_write_errors_total",
		Help: "History events that failed to persist",
	})

	// HTTP

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lobby_http_request_duration_seconds",
		Help:    "Latency of HTTP requests by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobby_http_rate_limited_total",
		Help: "Requests rejected by the per-IP rate limiter",
	})
)

// Observe counts one operation outcome.
func Observe(operation, result string) {
	OperationsTotal.WithLabelValues(operation, result).Inc()
}
