package metrics

import (
	"net/http"

	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mail_assistant"

// Recorder implements core.MetricsRecorder with Prometheus collectors
type Recorder struct {
	registry        *prometheus.Registry
	classifications *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	iterations      prometheus.Histogram
	toolInvocations *prometheus.CounterVec
}

// NewRecorder registers the assistant collectors on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifications_total",
				Help:      "Total number of emails classified",
			},
			[]string{"label", "source"},
		),
		sessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routing_sessions_total",
				Help:      "Total number of routing sessions by terminal state",
			},
			[]string{"state"},
		),
		iterations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "routing_iterations",
				Help:      "Iterations used per routing session",
				Buckets:   prometheus.LinearBuckets(1, 1, 5),
			},
		),
		toolInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_invocations_total",
				Help:      "Total number of catalog action invocations",
			},
			[]string{"action", "outcome"},
		),
	}
}

// ObserveClassification counts one classification
func (r *Recorder) ObserveClassification(label core.Label, source core.ClassificationSource) {
	r.classifications.WithLabelValues(string(label), string(source)).Inc()
}

// ObserveRoutingSession counts one finished routing session
func (r *Recorder) ObserveRoutingSession(state core.LoopState, iterations int) {
	r.sessions.WithLabelValues(string(state)).Inc()
	r.iterations.Observe(float64(iterations))
}

// ObserveToolInvocation counts one action invocation
func (r *Recorder) ObserveToolInvocation(action, outcome string) {
	r.toolInvocations.WithLabelValues(action, outcome).Inc()
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the HTTP handler exposing the collectors
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
