package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Prompt routing metrics
	PromptRequests *prometheus.CounterVec
	PromptLatency  prometheus.Histogram
	PromptErrors   *prometheus.CounterVec
	Fallbacks      prometheus.Counter
	TokensUsed     prometheus.Counter

	// Backend probe status (1 = healthy, 0 = down)
	BackendUp *prometheus.GaugeVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		// Prompt requests by the backend that actually served them
		PromptRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "llmgate_prompt_requests_total",
			Help: "Total number of prompt requests by source and status",
		}, []string{"source", "status"}),

		// Prompt latency histogram
		PromptLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "llmgate_prompt_duration_seconds",
			Help:    "Prompt request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for LLM responses
		}),

		// Backend errors by kind
		PromptErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "llmgate_backend_errors_total",
			Help: "Total number of backend errors by error kind",
		}, []string{"kind"}),

		// Successful primary->alternate fallbacks
		Fallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "llmgate_fallbacks_total",
			Help: "Total number of requests served by the fallback backend",
		}),

		// Token consumption
		TokensUsed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "llmgate_tokens_total",
			Help: "Total number of tokens consumed across all backends",
		}),

		// Backend health as seen by the background probe
		BackendUp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "llmgate_backend_up",
			Help: "Backend health by mode (1 = healthy, 0 = down)",
		}, []string{"mode"}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordPrompt records a routed prompt outcome
func (m *Metrics) RecordPrompt(source, status string, latencySeconds float64, tokens int) {
	m.PromptRequests.WithLabelValues(source, status).Inc()
	m.PromptLatency.Observe(latencySeconds)
	if tokens > 0 {
		m.TokensUsed.Add(float64(tokens))
	}
}

// RecordBackendError records a backend failure by kind
func (m *Metrics) RecordBackendError(kind string) {
	m.PromptErrors.WithLabelValues(kind).Inc()
}

// RecordFallback records a request served by the alternate backend
func (m *Metrics) RecordFallback() {
	m.Fallbacks.Inc()
}

// RecordBackendUp records the probe result for a backend
func (m *Metrics) RecordBackendUp(mode string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.BackendUp.WithLabelValues(mode).Set(v)
}
