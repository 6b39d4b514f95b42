package oneshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/connectonion/connectonion-go/internal/agent"
)

type fakeProvider struct {
	content string
	err     error
	lastReq agent.CompletionRequest
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.CompletionResponse, error) {
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return &agent.CompletionResponse{Content: p.content}, nil
}

func TestRunReturnsRawTextWithoutSchema(t *testing.T) {
	p := &fakeProvider{content: "plain text answer"}
	out, err := Run(context.Background(), p, Request{Input: "hi"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "plain text answer" {
		t.Errorf("Run() = %v, want plain text answer", out)
	}
}

func TestRunDefaultsTemperature(t *testing.T) {
	p := &fakeProvider{content: "ok"}
	if _, err := Run(context.Background(), p, Request{Input: "hi"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.lastReq.Temperature != DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", p.lastReq.Temperature, DefaultTemperature)
	}
}

func TestRunPreservesExplicitTemperature(t *testing.T) {
	p := &fakeProvider{content: "ok"}
	if _, err := Run(context.Background(), p, Request{Input: "hi", Temperature: 0.7}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.lastReq.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", p.lastReq.Temperature)
	}
}

func TestRunIncludesSystemPromptMessage(t *testing.T) {
	p := &fakeProvider{content: "ok"}
	if _, err := Run(context.Background(), p, Request{Input: "hi", SystemPrompt: "be terse"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(p.lastReq.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(p.lastReq.Messages))
	}
	if p.lastReq.Messages[0].Content != "be terse" {
		t.Errorf("Messages[0].Content = %q, want %q", p.lastReq.Messages[0].Content, "be terse")
	}
}

func TestRunOmitsSystemMessageWhenEmpty(t *testing.T) {
	p := &fakeProvider{content: "ok"}
	if _, err := Run(context.Background(), p, Request{Input: "hi"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(p.lastReq.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(p.lastReq.Messages))
	}
}

func TestRunPropagatesProviderError(t *testing.T) {
	boom := agent.NewError(agent.KindProviderError, "rate limited", nil)
	p := &fakeProvider{err: boom}
	_, err := Run(context.Background(), p, Request{Input: "hi"})
	if err == nil || !agent.IsKind(err, agent.KindProviderError) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestRunCoercesStructuredOutput(t *testing.T) {
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"name": {"type": "string"}},
		"required": ["name"]
	}`)
	p := &fakeProvider{content: `{"name":"ada"}`}
	out, err := Run(context.Background(), p, Request{Input: "hi", OutputSchema: schema})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok || m["name"] != "ada" {
		t.Errorf("Run() = %#v, want map with name=ada", out)
	}
}

func TestRunRejectsNonJSONWithSchema(t *testing.T) {
	schema := json.RawMessage(`{"type": "object"}`)
	p := &fakeProvider{content: "not json"}
	_, err := Run(context.Background(), p, Request{Input: "hi", OutputSchema: schema})
	if err == nil || !agent.IsKind(err, agent.KindStructuredOutputMismatch) {
		t.Fatalf("expected StructuredOutputMismatch, got %v", err)
	}
}

func TestRunRejectsSchemaViolation(t *testing.T) {
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"name": {"type": "string"}},
		"required": ["name"]
	}`)
	p := &fakeProvider{content: `{"other":"value"}`}
	_, err := Run(context.Background(), p, Request{Input: "hi", OutputSchema: schema})
	if err == nil || !agent.IsKind(err, agent.KindStructuredOutputMismatch) {
		t.Fatalf("expected StructuredOutputMismatch, got %v", err)
	}
}

func TestResolveSystemPromptLiteral(t *testing.T) {
	got := ResolveSystemPrompt("you are a helpful assistant")
	if got != "you are a helpful assistant" {
		t.Errorf("ResolveSystemPrompt() = %q", got)
	}
}

func TestResolveSystemPromptEmpty(t *testing.T) {
	if got := ResolveSystemPrompt(""); got != "" {
		t.Errorf("ResolveSystemPrompt(\"\") = %q, want empty", got)
	}
}

func TestResolveSystemPromptReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(path, []byte("loaded from file"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got := ResolveSystemPrompt(path); got != "loaded from file" {
		t.Errorf("ResolveSystemPrompt(path) = %q, want %q", got, "loaded from file")
	}
}

func TestResolveSystemPromptMultilineIsNeverAPath(t *testing.T) {
	multiline := "line one\nline two"
	if got := ResolveSystemPrompt(multiline); got != multiline {
		t.Errorf("ResolveSystemPrompt(multiline) = %q, want unchanged", got)
	}
}
