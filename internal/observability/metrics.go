package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for the two things an agent's
// runLoop actually does: call an LLM provider, and execute tools. Pass a
// *Metrics to Config.Metrics to have the loop record against it; a nil
// Metrics is a valid no-op (every method on Metrics guards against a nil
// receiver).
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	start := time.Now()
//	// ... call provider.Complete ...
//	metrics.RecordLLMRequest("anthropic", "claude-3-opus", "success", time.Since(start).Seconds(), 100, 500)
type Metrics struct {
	// LLMRequestDuration measures LLM API call latency in seconds.
	// Labels: provider (anthropic|openai|gemini|managed), model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM requests by provider and model.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error|timeout|not_found)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// ErrorCounter tracks errors by kind (agent.ErrorKind) and component.
	// Labels: component (dispatcher|agent|executor), error_kind
	ErrorCounter *prometheus.CounterVec

	// IterationsUsed records how many loop iterations a completed input()
	// call consumed.
	// Buckets: 1, 2, 3, 5, 8, 10, 15, 20
	IterationsUsed *prometheus.HistogramVec

	// RunAttempts counts input() outcomes by status.
	// Labels: status (success|max_iterations|error)
	RunAttempts *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics with the default
// registry. Call once at application startup.
func NewMetrics() *Metrics {
	return &Metrics{
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "connectonion_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connectonion_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connectonion_llm_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),

		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connectonion_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "connectonion_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connectonion_errors_total",
				Help: "Total number of errors by component and error kind",
			},
			[]string{"component", "error_kind"},
		),

		IterationsUsed: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "connectonion_agent_iterations",
				Help:    "Iterations consumed by a completed input() call",
				Buckets: []float64{1, 2, 3, 5, 8, 10, 15, 20},
			},
			[]string{"agent_name"},
		),

		RunAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connectonion_run_attempts_total",
				Help: "Total number of input() completions by outcome status",
			},
			[]string{"status"},
		),
	}
}

// RecordLLMRequest records metrics for one LLM API call.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordToolExecution records metrics for one tool call.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordError increments the error counter for a given component and error kind.
func (m *Metrics) RecordError(component, errorKind string) {
	if m == nil {
		return
	}
	m.ErrorCounter.WithLabelValues(component, errorKind).Inc()
}

// RecordRunCompletion records one finished input() call: its outcome status
// and the iterations it consumed.
func (m *Metrics) RecordRunCompletion(agentName, status string, iterationsUsed int) {
	if m == nil {
		return
	}
	m.RunAttempts.WithLabelValues(status).Inc()
	m.IterationsUsed.WithLabelValues(agentName).Observe(float64(iterationsUsed))
}
