// Package observability provides Prometheus metrics for the daily close
// service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// RunsTotal counts pipeline invocations by terminal status.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dailyclose_runs_total",
			Help: "Total number of daily close runs by status",
		},
		[]string{"status"}, // ok, not_ready, running, already_sent, error
	)

	// RunDuration measures end-to-end run duration in seconds.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dailyclose_run_duration_seconds",
			Help:    "Daily close run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"status"},
	)

	// FactRows reports the row counts of the last built fact tables.
	FactRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dailyclose_fact_rows",
			Help: "Row count of the last built fact table",
		},
		[]string{"table"}, // daily, long
	)

	// ScheduledTriggersTotal counts scheduler-originated run triggers.
	ScheduledTriggersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dailyclose_scheduled_triggers_total",
			Help: "Total number of scheduler-triggered daily close runs",
		},
	)

	// MailSendsTotal counts report mail submissions by outcome.
	MailSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dailyclose_mail_sends_total",
			Help: "Total number of report mail submissions",
		},
		[]string{"status"}, // success, failed
	)
)

// RecordRun records one pipeline invocation.
func RecordRun(status string, duration time.Duration) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordFactRows records the sizes of freshly built fact tables.
func RecordFactRows(daily, long int) {
	FactRows.WithLabelValues("daily").Set(float64(daily))
	FactRows.WithLabelValues("long").Set(float64(long))
}

// RecordScheduledTrigger records one scheduler-originated trigger.
func RecordScheduledTrigger() {
	ScheduledTriggersTotal.Inc()
}

// RecordMailSend records one report mail submission outcome.
func RecordMailSend(status string) {
	MailSendsTotal.WithLabelValues(status).Inc()
}
