// Package metrics exposes ledger counters and storage latency to Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reasons a delete request is turned away.
const (
	RejectUnauthorized = "unauthorized"
	RejectInvalidID    = "invalid_id"
	RejectNotFound     = "not_found"
	RejectRateLimited  = "rate_limited"
)

type Metrics struct {
	ExpensesCreated  prometheus.Counter
	ExpensesDeleted  prometheus.Counter
	ValidationErrors prometheus.Counter
	DeletesRejected  *prometheus.CounterVec
	StorageDuration  *prometheus.HistogramVec
	StorageErrors    *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
	SheetSyncs       *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests to avoid clashing with the default registry.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ExpensesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "tripspese_expenses_created_total",
			Help: "Total number of expenses recorded",
		}),
		ExpensesDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "tripspese_expenses_deleted_total",
			Help: "Total number of expenses soft-deleted",
		}),
		ValidationErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "tripspese_validation_errors_total",
			Help: "Total number of create requests rejected by validation",
		}),
		DeletesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripspese_deletes_rejected_total",
			Help: "Delete requests rejected, by reason",
		}, []string{"reason"}),
		StorageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripspese_storage_duration_seconds",
			Help:    "Latency of ledger store calls, by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		StorageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripspese_storage_errors_total",
			Help: "Failed ledger store calls, by operation",
		}, []string{"op"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripspese_events_published_total",
			Help: "Ledger events published, by type and outcome",
		}, []string{"type", "outcome"}),
		SheetSyncs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripspese_sheet_syncs_total",
			Help: "Spreadsheet report rewrites, by outcome",
		}, []string{"outcome"}),
		gatherer: reg,
	}
}

// Handler serves the registry this Metrics was built on.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.ExpensesCreated.Inc()
	}
}

func (m *Metrics) IncrementDeleted() {
	if m != nil {
		m.ExpensesDeleted.Inc()
	}
}

func (m *Metrics) IncrementValidationErrors() {
	if m != nil {
		m.ValidationErrors.Inc()
	}
}

func (m *Metrics) IncrementDeleteRejected(reason string) {
	if m != nil {
		m.DeletesRejected.WithLabelValues(reason).Inc()
	}
}

// ObserveStorage records the latency of op and counts it as failed when
// err is non-nil.
func (m *Metrics) ObserveStorage(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StorageDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.StorageErrors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) IncrementEventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) IncrementSheetSync(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SheetSyncs.WithLabelValues(outcome).Inc()
}
