package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_program_operations_total",
			Help: "Total number of program operations",
		},
		[]string{"operation", "status"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "escrow_program_operation_duration_seconds",
			Help:    "Duration of program operations including storage commit",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"operation"},
	)

	LamportsMovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_program_lamports_moved_total",
			Help: "Total lamports moved by committed operations",
		},
		[]string{"operation"},
	)

	TreasuryLamports = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "escrow_program_treasury_lamports",
			Help: "Treasury balance after the last committed operation",
		},
	)

	StoreRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_program_store_retries_total",
			Help: "Total number of units of work re-run after a serialization failure",
		},
		[]string{"store"},
	)
)

// RecordOperation records the outcome of a program operation. status is one
// of "success", "rejected", or "error".
func RecordOperation(operation, status string, seconds float64) {
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(seconds)
}
