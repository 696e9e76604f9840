// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the torwart authorization service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// AuthBuckets defines histogram buckets suited for authorization decision
// latencies, ranging from 1ms to 10s (the upper end covers persistence).
var AuthBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

var (
	// HTTPRequestsTotal counts all HTTP requests by method and status class.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torwart_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "status"},
	)

	// HTTPRequestDuration records HTTP request duration in seconds by method.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "torwart_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: AuthBuckets,
		},
		[]string{"method"},
	)

	// AuthVerdictsTotal counts authorization verdicts by matching method
	// (client_ip, basic_auth, bypass_token_query, bypass_token_header,
	// bypass_token_path, unauthenticated).
	AuthVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torwart_auth_verdicts_total",
			Help: "Authorization verdicts",
		},
		[]string{"method"},
	)

	// PersistTotal counts credential store persistence attempts by outcome.
	PersistTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torwart_store_persist_total",
			Help: "Credential store persistence attempts",
		},
		[]string{"status"},
	)

	// UserCommandsTotal counts post-authentication command executions by outcome.
	UserCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torwart_user_commands_total",
			Help: "User command executions",
		},
		[]string{"status"},
	)

	// StoreReloadsTotal counts wholesale store reloads from the persister.
	StoreReloadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "torwart_store_reloads_total",
			Help: "Credential store reloads",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AuthVerdictsTotal,
		PersistTotal,
		UserCommandsTotal,
		StoreReloadsTotal,
	)
}
