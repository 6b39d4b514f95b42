package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/connectonion/connectonion-go/internal/observability"
	"github.com/connectonion/connectonion-go/pkg/models"
)

// Agent is the mutable container described in the data model: a name, a
// resolved system prompt, a model selector, an iteration budget, an
// immutable-for-its-lifetime tool set, a resolved provider, ordered event
// bindings, and at most one in-flight session.
type Agent struct {
	name          string
	systemPrompt  string
	model         string
	maxIterations int
	temperature   float64

	tools    *ToolRegistry
	provider Provider
	executor *Executor
	hooks    *hookSet
	history  HistorySink
	logger   *observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	events   *observability.EventRecorder

	mu             sync.Mutex
	currentSession *models.Session
}

// New constructs an agent per §6.1, validating construction-time invariants:
// tool name uniqueness (via Collect/ToolRegistry), a resolved model
// (Provider must be non-nil — resolving a model string to a Provider is the
// Dispatcher's job, normally done by callers before calling New), and
// max_iterations ≥ 1.
func New(cfg Config) (*Agent, error) {
	cfg = cfg.sanitized()

	if cfg.MaxIterations < 1 {
		return nil, NewError(KindUnknownModel, "max_iterations must be >= 1", nil)
	}
	if cfg.Provider == nil {
		return nil, NewError(KindUnknownModel, "no provider resolved for model "+cfg.Model, nil)
	}

	tools, err := Collect(cfg.Tools...)
	if err != nil {
		return nil, err
	}
	registry, err := NewToolRegistry(tools)
	if err != nil {
		return nil, err
	}

	return &Agent{
		name:          cfg.Name,
		systemPrompt:  cfg.SystemPrompt,
		model:         cfg.Model,
		maxIterations: cfg.MaxIterations,
		temperature:   cfg.Temperature,
		tools:         registry,
		provider:      cfg.Provider,
		executor:      NewExecutor(registry, cfg.Executor),
		hooks:         &hookSet{onEvents: cfg.OnEvents, plugins: cfg.Plugins},
		history:       cfg.History,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		tracer:        cfg.Tracer,
		events:        cfg.Events,
	}, nil
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// CurrentSession returns the in-flight session, or nil when no input() call
// is active. Hooks call this to read/mutate messages and annotate trace.
func (a *Agent) CurrentSession() *models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentSession
}

// AddTool registers a new tool. Must not be called while a session is
// in-flight.
func (a *Agent) AddTool(item any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentSession != nil {
		return ErrMutateWhileBusy
	}
	tools, err := Collect(item)
	if err != nil {
		return err
	}
	for _, t := range tools {
		if err := a.tools.Add(t); err != nil {
			return err
		}
	}
	return nil
}

// RemoveTool unregisters a tool by name. Must not be called while a session
// is in-flight.
func (a *Agent) RemoveTool(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentSession != nil {
		return ErrMutateWhileBusy
	}
	a.tools.Remove(name)
	return nil
}

// Input runs the bounded loop to completion and returns the final assistant
// content. It does not raise on tool failures; it raises on configuration
// errors, fatal adapter errors (after in-adapter retries), or
// hook-propagated errors.
func (a *Agent) Input(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	if a.currentSession != nil {
		a.mu.Unlock()
		return "", ErrSessionInFlight
	}
	session := models.NewSession(a.name, prompt, a.systemPrompt)
	a.currentSession = session
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.currentSession = nil
		a.mu.Unlock()
	}()

	ctx = observability.AddRunID(ctx, runID(a.name, session.StartTime))
	ctx = observability.AddAgentID(ctx, a.name)
	a.events.RecordRunStart(ctx, map[string]interface{}{"prompt": prompt})

	final, loopErr := a.runLoop(ctx, session)

	status := runStatus(final, loopErr)
	a.metrics.RecordRunCompletion(a.name, status, session.IterationsUsed)
	a.events.RecordRunEnd(ctx, time.Since(session.StartTime), status)

	session.Finish(final, session.IterationsUsed)
	if hookErr := a.hooks.fire(a, EventTaskComplete); hookErr != nil {
		a.persist(session)
		return final, hookErr
	}
	a.persist(session)

	return final, loopErr
}

// runID derives a stable per-call identifier from the agent name and the
// session's start time, used to correlate recorded events without pulling
// in a UUID dependency the spec never calls for.
func runID(agentName string, startTime time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", agentName, startTime.UnixNano())))
	return "run_" + hex.EncodeToString(sum[:8])
}

func (a *Agent) persist(session *models.Session) {
	if a.history == nil {
		return
	}
	a.history.Append(models.NewHistoryRecord(session))
}

// runLoop implements the bounded LLM/tool dispatch state machine exactly
// per the design's pseudocode.
func (a *Agent) runLoop(ctx context.Context, session *models.Session) (string, error) {
	if err := a.hooks.fire(a, EventUserInput); err != nil {
		return "", err
	}

	iteration := 0
	tools := a.tools.List()

	for {
		select {
		case <-ctx.Done():
			session.IterationsUsed = iteration
			return "Cancelled", nil
		default:
		}

		iteration++
		if iteration > a.maxIterations {
			session.IterationsUsed = iteration - 1
			return fmt.Sprintf("Task incomplete: reached maximum iterations (%d)", a.maxIterations), nil
		}
		session.IterationsUsed = iteration

		if err := a.hooks.fire(a, EventBeforeLLM); err != nil {
			return "", err
		}

		spanCtx, span := a.tracer.TraceLLMRequest(ctx, a.provider.Name(), a.model)
		a.events.RecordLLMRequest(ctx, a.provider.Name(), a.model)
		t0 := time.Now()
		resp, err := a.provider.Complete(spanCtx, CompletionRequest{
			Messages:    session.Messages,
			Tools:       tools,
			Model:       a.model,
			Temperature: a.temperature,
		})
		duration := time.Since(t0)

		if err != nil {
			a.tracer.RecordError(span, err)
			span.End()
			a.metrics.RecordLLMRequest(a.provider.Name(), a.model, "error", duration.Seconds(), 0, 0)
			a.events.RecordLLMResponse(ctx, a.provider.Name(), a.model, duration, 0, err)
			session.PushTrace(models.NewLLMCallTrace(iteration, duration, hashMessages(session.Messages), "", nil, nil, err))
			a.logger.Error(ctx, "llm call failed", "agent", a.name, "iteration", iteration, "error", err)
			return diagnosticFor(err), nil
		}

		span.End()

		promptTokens, completionTokens := 0, 0
		if resp.Usage != nil {
			promptTokens, completionTokens = resp.Usage.InputTokens, resp.Usage.OutputTokens
		}
		a.metrics.RecordLLMRequest(a.provider.Name(), a.model, "success", duration.Seconds(), promptTokens, completionTokens)
		a.events.RecordLLMResponse(ctx, a.provider.Name(), a.model, duration, len(resp.ToolCalls), nil)

		session.PushTrace(models.NewLLMCallTrace(iteration, duration, hashMessages(session.Messages), resp.Content, resp.ToolCalls, resp.Usage, nil))

		if len(resp.ToolCalls) > 0 {
			session.AppendMessage(models.NewAssistantToolCallsMessage(resp.ToolCalls))
		} else {
			session.AppendMessage(models.NewAssistantTextMessage(resp.Content))
		}

		if err := a.hooks.fire(a, EventAfterLLM); err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		for _, tc := range resp.ToolCalls {
			a.events.RecordToolStart(observability.AddToolCallID(ctx, tc.ID), tc.Name, string(tc.Arguments))
		}

		outcomes := a.executor.RunTurn(ctx, iteration, resp.ToolCalls)
		for i, o := range outcomes {
			if err := a.hooks.fire(a, EventBeforeTool); err != nil {
				return "", err
			}
			a.metrics.RecordToolExecution(o.Trace.ToolName, string(o.Trace.Status), o.Trace.Duration().Seconds())
			toolCtx := ctx
			if i < len(resp.ToolCalls) {
				toolCtx = observability.AddToolCallID(ctx, resp.ToolCalls[i].ID)
			}
			a.events.RecordToolEnd(toolCtx, o.Trace.ToolName, o.Trace.Duration(), string(o.Trace.Status), o.Trace.Error)
			session.PushTrace(o.Trace)
			session.AppendMessage(o.Result.AsMessage())
			if err := a.hooks.fire(a, EventAfterTool); err != nil {
				return "", err
			}
		}
	}
}

func diagnosticFor(err error) string {
	return fmt.Sprintf("Task failed: %s", err.Error())
}

// runStatus classifies a finished input() call for the run_attempts metric.
func runStatus(final string, err error) string {
	switch {
	case err != nil:
		return "error"
	case strings.HasPrefix(final, "Task incomplete: reached maximum iterations"):
		return "max_iterations"
	default:
		return "success"
	}
}

// hashMessages fingerprints the request's message log for the trace entry's
// request_messages_hash field, without retaining the full payload.
func hashMessages(messages []models.Message) string {
	data, err := json.Marshal(messages)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
