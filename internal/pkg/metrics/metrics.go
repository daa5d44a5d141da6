// Package metrics exposes Prometheus collectors for the reconciliation
// pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "creatorpay"

type Metrics struct {
	events          *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	ledgerAmount    *prometheus.CounterVec
	ledgerEntries   *prometheus.CounterVec
	commissions     *prometheus.CounterVec
	jobs            *prometheus.CounterVec
	queueDepth      *prometheus.GaugeVec
}

// MustNewMetrics registers the collectors with reg and panics on conflicts.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "events_total",
			Help:      "Payment events by type and outcome.",
		}, []string{"type", "outcome"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "handler_duration_seconds",
			Help:      "Time spent processing a payment event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		ledgerAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "amount_minor_units_total",
			Help:      "Sum of appended ledger amounts by kind.",
		}, []string{"kind"}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Ledger appends by kind and result (created or duplicate).",
		}, []string{"kind", "result"}),
		commissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "commission_payouts_total",
			Help:      "Commission payouts by referral depth.",
		}, []string{"depth"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobqueue",
			Name:      "jobs_total",
			Help:      "Processed background jobs by type and status.",
		}, []string{"type", "status"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "jobqueue",
			Name:      "depth",
			Help:      "Jobs waiting or in progress.",
		}, []string{"list"}),
	}
	reg.MustRegister(m.events, m.handlerDuration, m.ledgerAmount, m.ledgerEntries, m.commissions, m.jobs, m.queueDepth)
	return m
}

func (m *Metrics) ObserveEvent(eventType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
	m.handlerDuration.WithLabelValues(eventType).Observe(elapsed.Seconds())
}

// ObserveLedgerEntry counts an append attempt. Amounts only count for new rows.
func (m *Metrics) ObserveLedgerEntry(kind string, amount int64, created bool) {
	if m == nil {
		return
	}
	if !created {
		m.ledgerEntries.WithLabelValues(kind, "duplicate").Inc()
		return
	}
	m.ledgerEntries.WithLabelValues(kind, "created").Inc()
	m.ledgerAmount.WithLabelValues(kind).Add(float64(amount))
}

func (m *Metrics) ObserveCommission(depth int) {
	if m == nil {
		return
	}
	m.commissions.WithLabelValues(strconv.Itoa(depth)).Inc()
}

func (m *Metrics) ObserveJob(jobType, status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(jobType, status).Inc()
}

// SetQueueDepth publishes the current pending and processing list lengths.
func (m *Metrics) SetQueueDepth(pending, processing int64) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues("pending").Set(float64(pending))
	m.queueDepth.WithLabelValues("processing").Set(float64(processing))
}
