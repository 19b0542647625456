package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ReservationsCreated        prometheus.Counter
	ReservationsApproved       prometheus.Counter
	ReservationsCancelled      prometheus.Counter
	ReservationsUpdated        prometheus.Counter
	OperationFailed            *prometheus.CounterVec
	AdmissibilityChecks        prometheus.Counter
	AdmissibilityChecksSkipped prometheus.Counter
	CatalogRequestDuration     prometheus.Histogram
	CatalogRequestErrors       prometheus.Counter
	CatalogBreakerOpen         prometheus.Counter
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		ReservationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reservations_created_total",
			Help: "Total number of reservations created",
		}),
		ReservationsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reservations_approved_total",
			Help: "Total number of reservations approved",
		}),
		ReservationsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reservations_cancelled_total",
			Help: "Total number of reservations cancelled",
		}),
		ReservationsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reservations_updated_total",
			Help: "Total number of reservations updated",
		}),
		OperationFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_operation_failures_total",
			Help: "Total number of failed reservation operations by operation name",
		}, []string{"operation"}),
		AdmissibilityChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "admissibility_checks_total",
			Help: "Total number of admissibility checks executed against the catalog",
		}),
		AdmissibilityChecksSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "admissibility_checks_skipped_total",
			Help: "Total number of admissibility checks skipped because the catalog was unreachable",
		}),
		CatalogRequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_request_duration_seconds",
			Help:    "Item catalog request duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 2, 5},
		}),
		CatalogRequestErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "catalog_request_errors_total",
			Help: "Total number of failed item catalog requests",
		}),
		CatalogBreakerOpen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "catalog_breaker_open_total",
			Help: "Total number of catalog requests rejected by the open circuit breaker",
		}),
	}
}

// RecordCatalogRequest records a catalog round trip
func (m *Metrics) RecordCatalogRequest(duration time.Duration, err error) {
	m.CatalogRequestDuration.Observe(duration.Seconds())
	if err != nil {
		m.CatalogRequestErrors.Inc()
	}
}

// RecordCheckSkipped records a degrade-open skip of the admissibility
// check. Operators alert on this counter to detect silent degradation.
func (m *Metrics) RecordCheckSkipped() {
	m.AdmissibilityChecksSkipped.Inc()
}

// RecordOperationFailure records a failed orchestrator operation
func (m *Metrics) RecordOperationFailure(operation string) {
	m.OperationFailed.WithLabelValues(operation).Inc()
}
