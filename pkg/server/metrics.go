package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus instruments.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	SessionsTotal  prometheus.Counter
	EventsTotal    prometheus.Counter
	PatchesSent    prometheus.Counter
	PageRenders    *prometheus.CounterVec
	RenderDuration prometheus.Histogram
}

// NewMetrics registers the server metrics with reg. A nil registerer uses
// the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reflow",
			Name:      "active_sessions",
			Help:      "Number of live WebSocket sessions.",
		}),
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reflow",
			Name:      "sessions_total",
			Help:      "Total sessions created since start.",
		}),
		EventsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reflow",
			Name:      "events_total",
			Help:      "Total client events dispatched.",
		}),
		PatchesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reflow",
			Name:      "patches_sent_total",
			Help:      "Total DOM patches streamed to clients.",
		}),
		PageRenders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reflow",
			Name:      "page_renders_total",
			Help:      "Total page renders by resolution mode.",
		}, []string{"mode"}),
		RenderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reflow",
			Name:      "page_render_duration_seconds",
			Help:      "Time to produce a complete page.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
