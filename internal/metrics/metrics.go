// Package metrics exposes Prometheus instrumentation for the detection client.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes
const (
	OutcomeSuccess         = "success"
	OutcomeDetectionFailed = "detection_failed"
	OutcomeNetworkError    = "network_error"
	OutcomeNoFile          = "no_file"
	OutcomeStale           = "stale"
)

// Metrics holds the client's collectors
type Metrics struct {
	submissions     *prometheus.CounterVec
	latency         prometheus.Histogram
	selections      *prometheus.CounterVec
	activeAlerts    prometheus.Gauge
	alertPollErrors prometheus.Counter
	notifications   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "detection_client",
			Name:      "submissions_total",
			Help:      "Image submissions by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "detection_client",
			Name:      "predict_duration_seconds",
			Help:      "Time from submission to backend response.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "detection_client",
			Name:      "file_selections_total",
			Help:      "File selections by validation result.",
		}, []string{"result"}),
		activeAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "detection_client",
			Name:      "active_alerts",
			Help:      "Unacknowledged alerts reported by the last successful poll.",
		}),
		alertPollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "detection_client",
			Name:      "alert_poll_errors_total",
			Help:      "Failed alert polls.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "detection_client",
			Name:      "notifications_total",
			Help:      "Notifications shown by severity.",
		}, []string{"severity"}),
	}

	reg.MustRegister(m.submissions, m.latency, m.selections, m.activeAlerts, m.alertPollErrors, m.notifications)
	return m
}

// ObserveSubmission records a finished submission. Zero durations are not observed.
func (m *Metrics) ObserveSubmission(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.latency.Observe(d.Seconds())
	}
}

// ObserveSelection records a file selection result ("accepted" or an error kind)
func (m *Metrics) ObserveSelection(result string) {
	if m == nil {
		return
	}
	m.selections.WithLabelValues(result).Inc()
}

// SetActiveAlerts records the current alert count
func (m *Metrics) SetActiveAlerts(n int) {
	if m == nil {
		return
	}
	m.activeAlerts.Set(float64(n))
}

// IncAlertPollErrors counts a failed alert poll
func (m *Metrics) IncAlertPollErrors() {
	if m == nil {
		return
	}
	m.alertPollErrors.Inc()
}

// IncNotifications counts a shown notification
func (m *Metrics) IncNotifications(severity string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(severity).Inc()
}
