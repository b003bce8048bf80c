package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency of a swap attempt, backend call included
	SwapDuration *prometheus.HistogramVec

	// Swap attempts by terminal status
	SwapsTotal *prometheus.CounterVec

	// Rejections by stable error code
	ErrorTotal *prometheus.CounterVec

	// 1 while the approval slot is occupied
	PendingApprovals prometheus.Gauge

	// 0 closed, 1 half-open, 2 open
	CircuitBreakerState *prometheus.GaugeVec

	// Events waiting in the audit buffer
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// unregistered local registry when none is given
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		SwapDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_swap_duration_seconds",
			Help:    "Histogram of swap latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"status"}),

		SwapsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vault_swaps_total",
			Help: "Total number of swap attempts by status.",
		}, []string{"status"}),

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vault_errors_total",
			Help: "Total number of rejected operations by error code.",
		}, []string{"code"}),

		PendingApprovals: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "vault_pending_approvals",
			Help: "Number of swaps waiting for owner approval.",
		}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "vault_circuit_breaker_state",
			Help: "Current state of the backend circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"backend"}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "vault_audit_buffer_utilization",
			Help: "Current number of events in audit buffer.",
		}),
	}
}
