// Package metrics holds the Prometheus collectors of the bot.
//
// Label values are bounded: sweep and notification kinds come from a fixed
// set, results are "ok" or "error".
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studybot_notifications_total",
			Help: "Outbound notifications by kind and result.",
		},
		[]string{"kind", "result"},
	)

	sweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studybot_sweep_runs_total",
			Help: "Completed scheduled sweeps.",
		},
		[]string{"sweep"},
	)

	sweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studybot_sweep_duration_seconds",
			Help:    "Duration of scheduled sweeps in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sweep"},
	)

	quotaVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studybot_quota_verdicts_total",
			Help: "Quota decisions for counted messages.",
		},
		[]string{"verdict"},
	)

	escalations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studybot_escalations_total",
			Help: "Absence escalations by action (warning, removal).",
		},
		[]string{"action"},
	)

	updates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studybot_updates_total",
			Help: "Inbound Telegram updates by type.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(notifications, sweepRuns, sweepDuration, quotaVerdicts, escalations, updates)
}

func Notification(kind string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	notifications.WithLabelValues(kind, result).Inc()
}

// Sweep records one finished sweep that started at start
func Sweep(name string, start time.Time) {
	sweepRuns.WithLabelValues(name).Inc()
	sweepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

func QuotaVerdict(verdict string) {
	quotaVerdicts.WithLabelValues(verdict).Inc()
}

func Escalation(action string) {
	escalations.WithLabelValues(action).Inc()
}

func Update(kind string) {
	updates.WithLabelValues(kind).Inc()
}
