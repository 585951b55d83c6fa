package guidance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the orchestrator's Prometheus collectors, all prefixed
// with "mathguide_".
type Metrics struct {
	TurnsTotal    *prometheus.CounterVec
	DegradedTotal *prometheus.CounterVec
	FailuresTotal *prometheus.CounterVec
	TurnDuration  *prometheus.HistogramVec
	EmbedDuration prometheus.Histogram
}

// NewMetrics registers the collectors with reg. A nil reg uses a private
// registry, which keeps tests and embedded uses from colliding.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		TurnsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mathguide_turns_total",
			Help: "Turns handled, by intent and resulting action",
		}, []string{"intent", "action"}),
		DegradedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mathguide_degraded_decisions_total",
			Help: "Decisions produced on a fallback path, by reason",
		}, []string{"reason"}),
		FailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mathguide_component_failures_total",
			Help: "Recovered component failures, by component",
		}, []string{"component"}),
		TurnDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mathguide_turn_duration_seconds",
			Help:    "Time to produce a decision",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"intent"}),
		EmbedDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mathguide_embed_duration_seconds",
			Help:    "Latency of embedding calls made for retrieval",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
}
