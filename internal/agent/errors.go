package agent

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the error kinds the core surfaces, matching the
// recovery table in the design: construction errors are fatal, executor
// errors are reported back to the model, and loop/hook errors have their
// own unwind paths.
type ErrorKind string

const (
	KindInvalidToolName         ErrorKind = "InvalidToolName"
	KindDuplicateToolName       ErrorKind = "DuplicateToolName"
	KindUnknownModel            ErrorKind = "UnknownModel"
	KindStructuredOutputMismatch ErrorKind = "StructuredOutputMismatch"
	KindProviderError           ErrorKind = "ProviderError"
	KindToolNotFound            ErrorKind = "ToolNotFound"
	KindToolArgumentDecodeError ErrorKind = "ToolArgumentDecodeError"
	KindToolRuntimeError        ErrorKind = "ToolRuntimeError"
	KindToolTimeout             ErrorKind = "ToolTimeout"
	KindIterationBudgetExceeded ErrorKind = "IterationBudgetExceeded"
	KindHookError               ErrorKind = "HookError"
)

// Error is the structured error type returned by the core. Kind selects the
// recovery behavior callers should apply; Cause preserves the underlying
// error for errors.Is/errors.As.
type Error struct {
	Kind    ErrorKind
	Message string
	Tool    string
	Event   string
	Cause   error
}

func (e *Error) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("%s: tool %q: %s", e.Kind, e.Tool, e.Message)
	}
	if e.Event != "" {
		return fmt.Sprintf("%s: event %q: %s", e.Kind, e.Event, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithTool sets the offending tool name and returns the error for chaining.
func (e *Error) WithTool(name string) *Error {
	e.Tool = name
	return e
}

// WithEvent sets the offending hook event name and returns the error for
// chaining.
func (e *Error) WithEvent(name string) *Error {
	e.Event = name
	return e
}

// NewError builds a structured error of the given kind.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// Sentinel errors for conditions that don't carry extra context.
var (
	ErrNoCurrentSession = errors.New("agent: no current_session; input() not in flight")
	ErrSessionInFlight  = errors.New("agent: input() already in flight on this agent")
	ErrMutateWhileBusy  = errors.New("agent: cannot add_tool/remove_tool while current_session is active")
)
