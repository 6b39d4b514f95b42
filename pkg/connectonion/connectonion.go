// Package connectonion is the public surface of the core: construct an
// agent from a small option set, run it to completion on a prompt, and
// mutate its tool set between calls. See internal/agent for the loop,
// executor, and event pipeline this wraps.
package connectonion

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/connectonion/connectonion-go/internal/agent"
	"github.com/connectonion/connectonion-go/internal/agent/providers"
	"github.com/connectonion/connectonion-go/internal/config"
	"github.com/connectonion/connectonion-go/internal/history"
	"github.com/connectonion/connectonion-go/internal/observability"
	"github.com/connectonion/connectonion-go/internal/oneshot"
)

// sharedMetrics is process-wide: Prometheus's default registry panics on a
// second registration of the same collector name, so every agent
// constructed by New shares one Metrics instance rather than each
// registering its own.
var (
	sharedMetricsOnce sync.Once
	sharedMetrics     *observability.Metrics
)

func metricsInstance() *observability.Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = observability.NewMetrics()
	})
	return sharedMetrics
}

// Re-exported so callers never need to import internal/agent directly.
type (
	Agent    = agent.Agent
	Event    = agent.Event
	Handler  = agent.Handler
	Binding  = agent.Binding
	Plugin   = agent.Plugin
	Provider = agent.Provider
)

const (
	EventUserInput    = agent.EventUserInput
	EventBeforeLLM    = agent.EventBeforeLLM
	EventAfterLLM     = agent.EventAfterLLM
	EventBeforeTool   = agent.EventBeforeTool
	EventAfterTool    = agent.EventAfterTool
	EventTaskComplete = agent.EventTaskComplete
)

// Config is the full recognized option set from §4.12. Name, Model,
// SystemPrompt, MaxIterations, Temperature, and APIKey may be left zero to
// pick up the env/project-file/default precedence chain via Load.
type Config struct {
	Name          string
	Model         string
	SystemPrompt  string
	MaxIterations int
	Tools         []any
	OnEvents      []Binding
	Plugins       []Plugin
	Temperature   float64
	APIKey        string

	// GatewayURL overrides the managed ("co/"-prefixed) adapter's endpoint.
	GatewayURL string
	// ProjectDir is searched upward for a ".co/" config file; empty means cwd.
	ProjectDir string
	// HistoryPath overrides the default per-agent history log location.
	HistoryPath string
}

// Load resolves cfg against the precedence chain (explicit fields already
// set on cfg take priority over env vars, a project ".co/" file, then
// defaults) and returns a fully resolved Config.
func Load(cfg Config) (Config, error) {
	resolved, err := config.Resolve(cfg.ProjectDir)
	if err != nil {
		return cfg, err
	}

	if cfg.Name == "" {
		cfg.Name = resolved.Name
	}
	if cfg.Model == "" {
		cfg.Model = resolved.Model
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = resolved.SystemPrompt
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = resolved.MaxIterations
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = resolved.Temperature
	}
	if cfg.APIKey == "" {
		cfg.APIKey = resolved.APIKey
	}
	return cfg, nil
}

// New constructs an agent per §6's `Agent(config) -> agent`: resolves a
// Provider from cfg.Model via the dispatcher's prefix convention, wires a
// JSONL history sink, and validates construction-time invariants (tool name
// uniqueness, a resolved provider, max_iterations >= 1).
func New(ctx context.Context, cfg Config) (*Agent, error) {
	provider, err := providers.Resolve(ctx, cfg.Model, providers.DispatcherConfig{
		AnthropicAPIKey: cfg.APIKey,
		OpenAIAPIKey:    cfg.APIKey,
		GeminiAPIKey:    cfg.APIKey,
		ManagedAPIKey:   cfg.APIKey,
		ManagedGateway:  cfg.GatewayURL,
	})
	if err != nil {
		return nil, err
	}

	historyPath := cfg.HistoryPath
	if historyPath == "" {
		historyPath = history.DefaultPath(cfg.Name)
	}
	logger := observability.NewLogger(observability.LogConfig{Level: "info", Format: "text"})
	tracer, _ := observability.NewTracer(observability.TraceConfig{ServiceName: "connectonion"})
	events := observability.NewEventRecorder(observability.NewFileEventStore(tracePathFor(historyPath)), logger)

	return agent.New(agent.Config{
		Name:          cfg.Name,
		Model:         cfg.Model,
		SystemPrompt:  oneshot.ResolveSystemPrompt(cfg.SystemPrompt),
		MaxIterations: cfg.MaxIterations,
		Tools:         cfg.Tools,
		OnEvents:      cfg.OnEvents,
		Plugins:       cfg.Plugins,
		Temperature:   cfg.Temperature,
		APIKey:        cfg.APIKey,
		Provider:      provider,
		History:       history.New(historyPath, logger),
		Logger:        logger,
		Metrics:       metricsInstance(),
		Tracer:        tracer,
		Events:        events,
	})
}

// tracePathFor derives the per-agent event trace's file path from its
// history log path: "<dir>/<name>.log" becomes "<dir>/<name>.trace.jsonl".
// internal/trace reads this file back for replay and timeline display.
func tracePathFor(historyPath string) string {
	ext := filepath.Ext(historyPath)
	return strings.TrimSuffix(historyPath, ext) + ".trace.jsonl"
}

// OneShot runs a stateless single-round completion per §4.5. Pass a non-nil
// OutputSchema to request structured output; the returned value is then the
// decoded, schema-validated JSON rather than a raw string.
func OneShot(ctx context.Context, req oneshot.Request) (any, error) {
	req.Model = defaultModel(req.Model)
	provider, err := providers.Resolve(ctx, req.Model, providers.DispatcherConfig{})
	if err != nil {
		return nil, err
	}
	return oneshot.Run(ctx, provider, req)
}

func defaultModel(model string) string {
	if model == "" {
		return "gpt-4o-mini"
	}
	return model
}
