package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/connectonion/connectonion-go/pkg/models"
)

// DefaultToolResultCap is the character limit a tool's coerced return value
// is truncated to before it reaches the model, per the executor's result
// handling rule. Configurable via ExecutorConfig.ResultCap.
const DefaultToolResultCap = 30_000

// DefaultToolTimeout is the per-tool timeout applied when a call carries no
// override.
const DefaultToolTimeout = 120 * time.Second

// truncationMarker is appended to a coerced result that exceeded the cap.
const truncationMarker = "\n...[truncated]"

// ExecutorConfig tunes the Tool Executor's concurrency, per-call timeout,
// and result size cap.
type ExecutorConfig struct {
	// MaxConcurrency bounds how many tool calls from one turn run at once.
	// Zero means unbounded (run all calls in the turn concurrently).
	MaxConcurrency int

	// Timeout is the per-tool-call deadline. Defaults to DefaultToolTimeout.
	Timeout time.Duration

	// ResultCap is the character limit applied to a tool's coerced string
	// result. Defaults to DefaultToolResultCap.
	ResultCap int
}

// DefaultExecutorConfig returns the executor's default tuning.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{Timeout: DefaultToolTimeout, ResultCap: DefaultToolResultCap}
}

func (c ExecutorConfig) sanitized() ExecutorConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultToolTimeout
	}
	if c.ResultCap <= 0 {
		c.ResultCap = DefaultToolResultCap
	}
	return c
}

// Executor runs the tool calls from a single LLM turn against a
// ToolRegistry, preserving canonical call order in its results regardless
// of completion order.
type Executor struct {
	registry *ToolRegistry
	config   ExecutorConfig
}

// NewExecutor builds an Executor over the given registry.
func NewExecutor(registry *ToolRegistry, config ExecutorConfig) *Executor {
	return &Executor{registry: registry, config: config.sanitized()}
}

// Outcome is one tool call's resolution: the models.ToolResult to append as
// a message, plus the models.TraceEntry to push, in lockstep so callers can
// fire before_tool/after_tool hooks around each in canonical order.
type Outcome struct {
	Call   models.ToolCall
	Result models.ToolResult
	Trace  models.TraceEntry
}

// RunOne executes a single tool call synchronously: lookup, argument
// decode, invoke, coerce-and-cap, in the exact sequence C8 specifies.
func (e *Executor) RunOne(ctx context.Context, iteration int, call models.ToolCall) Outcome {
	start := time.Now()

	tool, ok := e.registry.Get(call.Name)
	if !ok {
		content := fmt.Sprintf("Tool '%s' not found", call.Name)
		return e.outcome(iteration, call, start, content, models.ToolResultNotFound, models.TraceStatusNotFound, "")
	}

	if !json.Valid(call.Arguments) {
		content := "Invalid arguments: not valid JSON"
		return e.outcome(iteration, call, start, content, models.ToolResultError, models.TraceStatusError, "invalid arguments")
	}

	content, err := e.invoke(ctx, tool, call.Arguments)
	if err != nil {
		var status models.ToolResultStatus = models.ToolResultError
		var traceStatus models.TraceStatus = models.TraceStatusError
		if IsKind(err, KindToolTimeout) {
			status = models.ToolResultTimeout
		}
		diagnostic := formatToolError(err)
		return e.outcome(iteration, call, start, diagnostic, status, traceStatus, err.Error())
	}

	content = capResult(content, e.config.ResultCap)
	return e.outcome(iteration, call, start, content, models.ToolResultSuccess, models.TraceStatusSuccess, "")
}

func (e *Executor) outcome(iteration int, call models.ToolCall, start time.Time, content string, status models.ToolResultStatus, traceStatus models.TraceStatus, traceErr string) Outcome {
	d := time.Since(start)
	result := models.ToolResult{CallID: call.ID, Name: call.Name, Content: content, Status: status, Duration: d}
	if status != models.ToolResultSuccess {
		result.Err = traceErr
	}
	trace := models.NewToolExecutionTrace(iteration, call.Name, string(call.Arguments), content, d, traceStatus, traceErr)
	return Outcome{Call: call, Result: result, Trace: trace}
}

func (e *Executor) invoke(ctx context.Context, tool Tool, args json.RawMessage) (result string, err error) {
	execCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: NewError(KindToolRuntimeError, fmt.Sprintf("panic: %v\n%s", r, debug.Stack()), nil).WithTool(tool.Name())}
			}
		}()
		res, execErr := tool.Execute(execCtx, args)
		done <- outcome{result: res, err: execErr}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-execCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", NewError(KindToolTimeout, fmt.Sprintf("execution timed out after %s", e.config.Timeout), execCtx.Err()).WithTool(tool.Name())
	}
}

// RunTurn executes every tool call from one LLM turn. If there is more than
// one call, they run concurrently (bounded by MaxConcurrency when set); the
// returned slice is always in the same order as calls, matching completion
// order never overrides canonical order.
func (e *Executor) RunTurn(ctx context.Context, iteration int, calls []models.ToolCall) []Outcome {
	outcomes := make([]Outcome, len(calls))
	if len(calls) == 0 {
		return outcomes
	}
	if len(calls) == 1 {
		outcomes[0] = e.RunOne(ctx, iteration, calls[0])
		return outcomes
	}

	var sem chan struct{}
	if e.config.MaxConcurrency > 0 {
		sem = make(chan struct{}, e.config.MaxConcurrency)
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c models.ToolCall) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			outcomes[idx] = e.RunOne(ctx, iteration, c)
		}(i, call)
	}
	wg.Wait()
	return outcomes
}

func capResult(s string, cap int) string {
	if len(s) <= cap {
		return s
	}
	return s[:cap] + truncationMarker
}

func formatToolError(err error) string {
	kind := "ToolRuntimeError"
	if ae, ok := err.(*Error); ok {
		kind = string(ae.Kind)
	}
	return fmt.Sprintf("Error: %s: %s", kind, err.Error())
}
