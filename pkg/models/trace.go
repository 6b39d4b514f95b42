package models

import "time"

// TraceEntryType discriminates the two kinds of trace entry recorded per
// iteration of the agent loop.
type TraceEntryType string

const (
	TraceLLMCall       TraceEntryType = "llm_call"
	TraceToolExecution TraceEntryType = "tool_execution"
)

// TraceStatus is the outcome recorded against a trace entry.
type TraceStatus string

const (
	TraceStatusSuccess  TraceStatus = "success"
	TraceStatusError    TraceStatus = "error"
	TraceStatusNotFound TraceStatus = "not_found"
)

// TraceEntry is one record in a Session's trace: either a single LLM round
// trip or a single tool execution. Exactly one of the type-specific field
// groups is populated, selected by Type.
//
// Required fields (Type, Iteration, DurationMS, Status) must never be
// mutated once pushed; hooks may only annotate entries, never rewrite their
// outcome.
type TraceEntry struct {
	Type       TraceEntryType `json:"type"`
	Iteration  int            `json:"iteration"`
	DurationMS int64          `json:"duration_ms"`
	Status     TraceStatus    `json:"status"`
	Error      string         `json:"error,omitempty"`

	// llm_call fields.
	RequestMessagesHash string     `json:"request_messages_hash,omitempty"`
	ResponseContent     string     `json:"response_content,omitempty"`
	ResponseToolCalls   []ToolCall `json:"response_tool_calls,omitempty"`
	TokenUsage          *Usage     `json:"token_usage,omitempty"`

	// tool_execution fields.
	ToolName  string `json:"tool_name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Result    string `json:"result,omitempty"`
}

// Duration returns DurationMS as a time.Duration.
func (e TraceEntry) Duration() time.Duration {
	return time.Duration(e.DurationMS) * time.Millisecond
}

// NewLLMCallTrace builds a llm_call trace entry.
func NewLLMCallTrace(iteration int, d time.Duration, messagesHash, content string, toolCalls []ToolCall, usage *Usage, err error) TraceEntry {
	entry := TraceEntry{
		Type:                TraceLLMCall,
		Iteration:           iteration,
		DurationMS:          d.Milliseconds(),
		Status:              TraceStatusSuccess,
		RequestMessagesHash: messagesHash,
		ResponseContent:     content,
		ResponseToolCalls:   toolCalls,
		TokenUsage:          usage,
	}
	if err != nil {
		entry.Status = TraceStatusError
		entry.Error = err.Error()
	}
	return entry
}

// NewToolExecutionTrace builds a tool_execution trace entry.
func NewToolExecutionTrace(iteration int, toolName, arguments, result string, d time.Duration, status TraceStatus, err string) TraceEntry {
	return TraceEntry{
		Type:       TraceToolExecution,
		Iteration:  iteration,
		DurationMS: d.Milliseconds(),
		Status:     status,
		Error:      err,
		ToolName:   toolName,
		Arguments:  arguments,
		Result:     result,
	}
}

// Session is the single mutable record of one in-flight input() call: the
// growing message log plus the parallel trace of every LLM and tool call.
// It is created at the start of input(), mutated only by the agent loop and
// the event hooks it fires, and frozen once task_complete fires.
type Session struct {
	AgentName     string       `json:"agent_name"`
	UserPrompt    string       `json:"user_prompt"`
	Messages      []Message    `json:"messages"`
	Trace         []TraceEntry `json:"trace"`
	StartTime     time.Time    `json:"start_time"`
	EndTime       time.Time    `json:"end_time,omitempty"`
	IterationsUsed int         `json:"iterations_used"`
	FinalContent  string       `json:"final_content"`
}

// NewSession starts a session for one input() call.
func NewSession(agentName, userPrompt string, systemPrompt string) *Session {
	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, NewSystemMessage(systemPrompt))
	}
	messages = append(messages, NewUserMessage(userPrompt))
	return &Session{
		AgentName:  agentName,
		UserPrompt: userPrompt,
		Messages:   messages,
		Trace:      make([]TraceEntry, 0, 8),
		StartTime:  time.Now(),
	}
}

// PushTrace appends a trace entry. Not safe for concurrent use; the loop is
// the sole writer.
func (s *Session) PushTrace(e TraceEntry) {
	s.Trace = append(s.Trace, e)
}

// AppendMessage appends to the message log. Not safe for concurrent use.
func (s *Session) AppendMessage(m Message) {
	s.Messages = append(s.Messages, m)
}

// Finish freezes the session with its final content.
func (s *Session) Finish(finalContent string, iterationsUsed int) {
	s.FinalContent = finalContent
	s.IterationsUsed = iterationsUsed
	s.EndTime = time.Now()
}

// Duration reports the wall-clock span of the session. Zero if unfinished.
func (s *Session) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// HistoryToolCall summarizes one tool call for a persisted history record.
type HistoryToolCall struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
}

// HistoryRecord is one line of the append-only per-agent history log.
type HistoryRecord struct {
	Timestamp      time.Time         `json:"ts"`
	AgentName      string            `json:"agent_name"`
	UserPrompt     string            `json:"user_prompt"`
	FinalContent   string            `json:"final_content"`
	IterationsUsed int               `json:"iterations_used"`
	DurationMS     int64             `json:"duration_ms"`
	ToolCalls      []HistoryToolCall `json:"tool_calls"`
}

// NewHistoryRecord derives a history record from a finished session.
func NewHistoryRecord(s *Session) HistoryRecord {
	calls := make([]HistoryToolCall, 0)
	for _, entry := range s.Trace {
		if entry.Type != TraceToolExecution {
			continue
		}
		calls = append(calls, HistoryToolCall{
			Name:       entry.ToolName,
			Status:     string(entry.Status),
			DurationMS: entry.DurationMS,
		})
	}
	return HistoryRecord{
		Timestamp:      s.EndTime,
		AgentName:      s.AgentName,
		UserPrompt:     s.UserPrompt,
		FinalContent:   s.FinalContent,
		IterationsUsed: s.IterationsUsed,
		DurationMS:     s.Duration().Milliseconds(),
		ToolCalls:      calls,
	}
}
