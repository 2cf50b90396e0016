// Package metrics exposes Prometheus metrics for campaign dispatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for leadline.
type Metrics struct {
	MessagesSentTotal   *prometheus.CounterVec
	MessagesFailedTotal *prometheus.CounterVec

	CampaignRunsTotal      *prometheus.CounterVec
	CampaignRunSeconds     *prometheus.HistogramVec
	SchedulerPassesTotal   prometheus.Counter
	WhatsAppSessionReady   prometheus.Gauge

	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with all metrics registered on its own
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		MessagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadline_messages_sent_total",
				Help: "Total number of successfully delivered campaign messages",
			},
			[]string{"channel"},
		),
		MessagesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadline_messages_failed_total",
				Help: "Total number of failed campaign message sends",
			},
			[]string{"channel", "reason"},
		),

		CampaignRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadline_campaign_runs_total",
				Help: "Total number of finished campaign runs",
			},
			[]string{"status"},
		),
		CampaignRunSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadline_campaign_run_seconds",
				Help:    "Campaign run duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"channel"},
		),
		SchedulerPassesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadline_scheduler_passes_total",
				Help: "Total number of scheduler polling passes",
			},
		),
		WhatsAppSessionReady: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadline_whatsapp_session_ready",
				Help: "Whether the WhatsApp gateway session can send (1 or 0)",
			},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadline_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadline_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.MessagesSentTotal,
		m.MessagesFailedTotal,
		m.CampaignRunsTotal,
		m.CampaignRunSeconds,
		m.SchedulerPassesTotal,
		m.WhatsAppSessionReady,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
	)

	return m
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
