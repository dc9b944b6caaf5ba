// Package telemetry exposes prometheus metrics for the audit engine.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the engine's prometheus collectors. A nil *Metrics is
// valid and records nothing, so tests can pass nil freely.
type Metrics struct {
	sessionsStarted     prometheus.Counter
	sessionsCompleted   prometheus.Counter
	sessionsFailed      prometheus.Counter
	pagesAnalyzed       *prometheus.CounterVec
	pageRetries         prometheus.Counter
	varianceResolutions *prometheus.CounterVec
	pageDuration        prometheus.Histogram
}

// NewMetrics registers the engine collectors with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		sessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "geoscope_sessions_started_total",
			Help: "Number of multi-page audit sessions started.",
		}),
		sessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "geoscope_sessions_completed_total",
			Help: "Number of audit sessions that reached the completed state.",
		}),
		sessionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "geoscope_sessions_failed_total",
			Help: "Number of audit sessions that failed at the session level.",
		}),
		pagesAnalyzed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "geoscope_pages_analyzed_total",
			Help: "Number of page analyses by terminal outcome.",
		}, []string{"outcome"}),
		pageRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "geoscope_page_retries_total",
			Help: "Number of page analysis retry attempts.",
		}),
		varianceResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "geoscope_variance_resolutions_total",
			Help: "Double-check resolutions by outcome (consistent, merged, degraded).",
		}, []string{"outcome"}),
		pageDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "geoscope_page_duration_seconds",
			Help:    "Wall time spent producing one page result, retries included.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.sessionsStarted.Inc()
	}
}

func (m *Metrics) SessionCompleted() {
	if m != nil {
		m.sessionsCompleted.Inc()
	}
}

func (m *Metrics) SessionFailed() {
	if m != nil {
		m.sessionsFailed.Inc()
	}
}

func (m *Metrics) PageAnalyzed(outcome string) {
	if m != nil {
		m.pagesAnalyzed.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) PageRetried() {
	if m != nil {
		m.pageRetries.Inc()
	}
}

func (m *Metrics) VarianceResolved(outcome string) {
	if m != nil {
		m.varianceResolutions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObservePageDuration(seconds float64) {
	if m != nil {
		m.pageDuration.Observe(seconds)
	}
}
