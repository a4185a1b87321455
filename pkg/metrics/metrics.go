package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AuthorizationDecisions counts engine decisions and their outcome (allowed|denied|error).
	AuthorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_authorization_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"capability", "result"},
	)

	// LedgerMutations counts grant/revoke operations by kind and outcome.
	LedgerMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_ledger_mutations_total",
			Help: "Total number of permission ledger grant/revoke operations",
		},
		[]string{"operation", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filevault_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
