package agent

import (
	"github.com/connectonion/connectonion-go/internal/observability"
	"github.com/connectonion/connectonion-go/pkg/models"
)

// DefaultMaxIterations is the iteration budget applied when Config.MaxIterations
// is unset.
const DefaultMaxIterations = 10

// DefaultTemperature is applied when Config.Temperature is unset (zero).
const DefaultTemperature = 0.1

// HistorySink receives finished sessions for durable persistence. Write
// failures are the sink's own concern: the loop never surfaces them to the
// caller (C10).
type HistorySink interface {
	Append(record models.HistoryRecord)
}

// Config carries the full recognized option set from §4.12, already
// resolved through the env/project-file/defaults precedence chain by the
// config loader. Agent(config) validates the remaining construction-time
// invariants (tool name uniqueness, model resolution, max_iterations ≥ 1).
type Config struct {
	Name         string
	Model        string
	SystemPrompt string

	// MaxIterations must be ≥ 1; zero means DefaultMaxIterations.
	MaxIterations int

	// Tools accepts callables, bound-method-bearing objects, and
	// pre-built Tools; see Collect.
	Tools []any

	OnEvents []Binding
	Plugins  []Plugin

	Temperature float64
	APIKey      string

	// Provider, when set, bypasses the dispatcher's model-prefix routing
	// (used by tests and by callers that already hold a resolved adapter).
	Provider Provider

	Executor ExecutorConfig
	History  HistorySink
	Logger   *observability.Logger

	// Metrics receives LLM-call and tool-execution counters/histograms when
	// set; nil disables metrics recording (every Metrics method tolerates a
	// nil receiver).
	Metrics *observability.Metrics

	// Tracer wraps each LLM call and tool execution in an OpenTelemetry
	// span. Defaults to a no-op tracer when unset.
	Tracer *observability.Tracer

	// Events receives a timeline entry for every run/LLM/tool lifecycle
	// point; nil disables recording (EventRecorder tolerates a nil
	// receiver). See internal/trace for reading a recorded run back.
	Events *observability.EventRecorder
}

func (c Config) sanitized() Config {
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	c.Executor = c.Executor.sanitized()
	if c.Logger == nil {
		c.Logger = observability.NewLogger(observability.LogConfig{Level: "info", Format: "text"})
	}
	if c.Tracer == nil {
		c.Tracer, _ = observability.NewTracer(observability.TraceConfig{})
	}
	return c
}
