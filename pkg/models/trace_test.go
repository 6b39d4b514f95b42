package models

import (
	"errors"
	"testing"
	"time"
)

func TestTraceEntryDuration(t *testing.T) {
	e := TraceEntry{DurationMS: 1500}
	if e.Duration() != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", e.Duration())
	}
}

func TestNewLLMCallTraceSuccess(t *testing.T) {
	usage := &Usage{InputTokens: 10, OutputTokens: 20}
	entry := NewLLMCallTrace(3, 2*time.Second, "hash", "hello", nil, usage, nil)

	if entry.Type != TraceLLMCall {
		t.Errorf("Type = %v, want TraceLLMCall", entry.Type)
	}
	if entry.Status != TraceStatusSuccess {
		t.Errorf("Status = %v, want TraceStatusSuccess", entry.Status)
	}
	if entry.Iteration != 3 || entry.DurationMS != 2000 {
		t.Errorf("entry = %+v, want Iteration=3 DurationMS=2000", entry)
	}
	if entry.ResponseContent != "hello" || entry.TokenUsage != usage {
		t.Errorf("entry = %+v, want content/usage preserved", entry)
	}
	if entry.Error != "" {
		t.Errorf("Error = %q, want empty on success", entry.Error)
	}
}

func TestNewLLMCallTraceError(t *testing.T) {
	entry := NewLLMCallTrace(1, time.Second, "hash", "", nil, nil, errors.New("rate limited"))
	if entry.Status != TraceStatusError {
		t.Errorf("Status = %v, want TraceStatusError", entry.Status)
	}
	if entry.Error != "rate limited" {
		t.Errorf("Error = %q, want rate limited", entry.Error)
	}
}

func TestNewToolExecutionTrace(t *testing.T) {
	entry := NewToolExecutionTrace(2, "search", `{"q":"go"}`, "results", 500*time.Millisecond, TraceStatusSuccess, "")
	if entry.Type != TraceToolExecution {
		t.Errorf("Type = %v, want TraceToolExecution", entry.Type)
	}
	if entry.ToolName != "search" || entry.Arguments != `{"q":"go"}` || entry.Result != "results" {
		t.Errorf("entry = %+v, want tool fields preserved", entry)
	}
	if entry.DurationMS != 500 {
		t.Errorf("DurationMS = %d, want 500", entry.DurationMS)
	}
}

func TestNewSessionSeedsSystemAndUserMessages(t *testing.T) {
	s := NewSession("agent-1", "hi there", "be terse")
	if len(s.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(s.Messages))
	}
	if s.Messages[0].Role != RoleSystem || s.Messages[0].Content != "be terse" {
		t.Errorf("Messages[0] = %+v, want system prompt", s.Messages[0])
	}
	if s.Messages[1].Role != RoleUser || s.Messages[1].Content != "hi there" {
		t.Errorf("Messages[1] = %+v, want user prompt", s.Messages[1])
	}
	if s.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
}

func TestNewSessionOmitsSystemMessageWhenEmpty(t *testing.T) {
	s := NewSession("agent-1", "hi", "")
	if len(s.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(s.Messages))
	}
}

func TestSessionPushTraceAndAppendMessage(t *testing.T) {
	s := NewSession("agent-1", "hi", "")
	s.PushTrace(TraceEntry{Type: TraceLLMCall})
	s.AppendMessage(NewAssistantTextMessage("hello"))

	if len(s.Trace) != 1 {
		t.Errorf("len(Trace) = %d, want 1", len(s.Trace))
	}
	if len(s.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2", len(s.Messages))
	}
}

func TestSessionFinishAndDuration(t *testing.T) {
	s := NewSession("agent-1", "hi", "")
	if s.Duration() != 0 {
		t.Errorf("Duration() before Finish = %v, want 0", s.Duration())
	}

	s.Finish("done", 3)
	if s.FinalContent != "done" || s.IterationsUsed != 3 {
		t.Errorf("s = %+v, want FinalContent=done IterationsUsed=3", s)
	}
	if s.Duration() < 0 {
		t.Errorf("Duration() = %v, want >= 0", s.Duration())
	}
}

func TestNewHistoryRecordSummarizesToolCallsOnly(t *testing.T) {
	s := NewSession("agent-1", "hi", "")
	s.PushTrace(NewLLMCallTrace(1, time.Second, "hash", "thinking", nil, nil, nil))
	s.PushTrace(NewToolExecutionTrace(1, "search", "{}", "ok", 200*time.Millisecond, TraceStatusSuccess, ""))
	s.PushTrace(NewToolExecutionTrace(1, "broken", "{}", "", 50*time.Millisecond, TraceStatusError, "boom"))
	s.Finish("all done", 2)

	record := NewHistoryRecord(s)
	if record.AgentName != "agent-1" || record.FinalContent != "all done" || record.IterationsUsed != 2 {
		t.Errorf("record = %+v, unexpected top-level fields", record)
	}
	if len(record.ToolCalls) != 2 {
		t.Fatalf("len(ToolCalls) = %d, want 2 (llm_call entry excluded)", len(record.ToolCalls))
	}
	if record.ToolCalls[0].Name != "search" || record.ToolCalls[0].Status != "success" {
		t.Errorf("ToolCalls[0] = %+v", record.ToolCalls[0])
	}
	if record.ToolCalls[1].Name != "broken" || record.ToolCalls[1].Status != "error" {
		t.Errorf("ToolCalls[1] = %+v", record.ToolCalls[1])
	}
}

func TestNewHistoryRecordEmptyToolCallsIsNeverNil(t *testing.T) {
	s := NewSession("agent-1", "hi", "")
	s.Finish("done", 1)
	record := NewHistoryRecord(s)
	if record.ToolCalls == nil {
		t.Error("ToolCalls should be an empty slice, not nil, for stable JSON encoding")
	}
}
