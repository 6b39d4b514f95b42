package agent

import (
	"fmt"
)

// Event names the six synchronous hook points the loop fires.
type Event string

const (
	EventUserInput    Event = "user_input"
	EventBeforeLLM    Event = "before_llm"
	EventAfterLLM     Event = "after_llm"
	EventBeforeTool   Event = "before_tool"
	EventAfterTool    Event = "after_tool"
	EventTaskComplete Event = "task_complete"
)

// Handler is a hook callback. It receives the agent so it can read
// agent.CurrentSession() (and, for plugins like the reflection pattern,
// append to its messages).
type Handler func(a *Agent)

// Binding pairs an event name with the handler that fires on it.
type Binding struct {
	Event   Event
	Handler Handler
}

// Plugin is a reusable, ordered list of bindings. Agents flatten their
// plugins' bindings after their own on_events, in plugin declaration order.
type Plugin []Binding

// hookSet holds an agent's on_events and plugins and dispatches by event
// name in the required order: on_events first (declaration order), then
// each plugin's bindings (declaration order).
type hookSet struct {
	onEvents []Binding
	plugins  []Plugin
}

// fire runs every handler bound to name, in order, on the same goroutine as
// the loop. A panicking handler is converted into a HookError and
// propagated to the caller (it is not swallowed), matching the spec's "an
// exception in a handler propagates out of the input() call" rule.
func (h *hookSet) fire(a *Agent, name Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(KindHookError, fmt.Sprintf("panic: %v", r), nil).WithEvent(string(name))
		}
	}()

	for _, b := range h.onEvents {
		if b.Event == name {
			b.Handler(a)
		}
	}
	for _, p := range h.plugins {
		for _, b := range p {
			if b.Event == name {
				b.Handler(a)
			}
		}
	}
	return nil
}
