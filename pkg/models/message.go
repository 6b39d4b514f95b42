package models

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the canonical, provider-neutral conversation log
// that the agent loop builds and every provider adapter translates to and
// from its own wire format.
//
// Exactly one shape applies per Role:
//   - system/user:        Content set
//   - assistant (text):   Content set, ToolCalls empty
//   - assistant (calls):  Content empty, ToolCalls non-empty
//   - tool:                Content set, ToolCallID and Name set
type Message struct {
	Role Role `json:"role"`

	// Content is the textual body. Empty for an assistant message that only
	// carries tool calls.
	Content string `json:"content,omitempty"`

	// ToolCalls is set only on an assistant message that requests tool
	// execution instead of replying.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID and Name identify which ToolCall this tool message answers.
	// Set only when Role == RoleTool.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// NewSystemMessage builds a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage builds a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantTextMessage builds a terminal assistant reply.
func NewAssistantTextMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewAssistantToolCallsMessage builds an assistant turn that requests tool
// execution. Content is always empty on this shape.
func NewAssistantToolCallsMessage(calls []ToolCall) Message {
	return Message{Role: RoleAssistant, ToolCalls: calls}
}

// NewToolMessage builds the tool-result message answering a single ToolCall.
func NewToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Name: name, Content: content}
}

// ToolCall is a single model-initiated request to invoke a tool by name with
// JSON-encoded arguments. ID is opaque, issued by the provider (or
// synthesized by the adapter when the provider omits one), and unique
// within one model turn.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResultStatus categorizes how a tool call was resolved.
type ToolResultStatus string

const (
	ToolResultSuccess   ToolResultStatus = "success"
	ToolResultError     ToolResultStatus = "error"
	ToolResultNotFound  ToolResultStatus = "not_found"
	ToolResultTimeout   ToolResultStatus = "timeout"
	ToolResultCancelled ToolResultStatus = "cancelled"
)

// ToolResult is the executor's verdict on a single ToolCall, prior to being
// flattened into a tool Message. Only Content ever reaches the model; Status
// and Err exist for tracing and history.
type ToolResult struct {
	CallID   string           `json:"call_id"`
	Name     string           `json:"name"`
	Content  string           `json:"content"`
	Status   ToolResultStatus `json:"status"`
	Err      string           `json:"error,omitempty"`
	Duration time.Duration    `json:"duration"`
}

// IsError reports whether the result represents a failed call.
func (r ToolResult) IsError() bool {
	return r.Status != ToolResultSuccess
}

// AsMessage flattens the result into the tool Message appended to the
// conversation log.
func (r ToolResult) AsMessage() Message {
	return NewToolMessage(r.CallID, r.Name, r.Content)
}

// Usage reports token accounting for a single LLM call, when the provider
// supplies it.
type Usage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}
