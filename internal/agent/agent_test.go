package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/connectonion/connectonion-go/pkg/models"
)

// fakeProvider drives the agent loop deterministically: each call to
// Complete pops the next scripted response (or the configured error) off a
// queue.
type fakeProvider struct {
	name      string
	responses []*CompletionResponse
	err       error
	calls     int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.calls > len(p.responses) {
		return p.responses[len(p.responses)-1], nil
	}
	return p.responses[p.calls-1], nil
}

func newTestConfig(provider Provider, tools ...any) Config {
	return Config{
		Name:     "test-agent",
		Model:    "fake-model",
		Provider: provider,
		Tools:    tools,
	}
}

func TestNewRejectsZeroMaxIterationsWhenNegative(t *testing.T) {
	cfg := newTestConfig(&fakeProvider{name: "fake"})
	cfg.MaxIterations = -1
	_, err := New(cfg)
	if err == nil {
		t.Fatal("expected error for negative max_iterations")
	}
}

func TestNewRejectsNilProvider(t *testing.T) {
	cfg := Config{Name: "test-agent", Model: "fake-model"}
	_, err := New(cfg)
	if err == nil {
		t.Fatal("expected error for nil provider")
	}
}

func TestNewRejectsDuplicateToolNames(t *testing.T) {
	cfg := newTestConfig(&fakeProvider{name: "fake"}, searchWeb, searchWeb)
	_, err := New(cfg)
	if err == nil || !IsKind(err, KindDuplicateToolName) {
		t.Fatalf("expected DuplicateToolName, got %v", err)
	}
}

func TestInputSuccessPath(t *testing.T) {
	provider := &fakeProvider{
		name: "fake",
		responses: []*CompletionResponse{
			{Content: "hello there"},
		},
	}
	a, err := New(newTestConfig(provider))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	final, err := a.Input(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	if final != "hello there" {
		t.Errorf("final = %q, want %q", final, "hello there")
	}
	if a.CurrentSession() != nil {
		t.Error("CurrentSession should be nil after Input returns")
	}
}

func TestInputMaxIterationsPath(t *testing.T) {
	calls := models.ToolCall{ID: "1", Name: "noop", Arguments: json.RawMessage(`{}`)}
	provider := &fakeProvider{
		name: "fake",
		responses: []*CompletionResponse{
			{ToolCalls: []models.ToolCall{calls}},
		},
	}
	noop, err := NewTool("noop", "", nil, func(ctx context.Context, args json.RawMessage) (string, error) {
		return "did nothing", nil
	})
	if err != nil {
		t.Fatalf("NewTool: %v", err)
	}

	cfg := newTestConfig(provider, noop)
	cfg.MaxIterations = 2
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	final, err := a.Input(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	if !strings.Contains(final, "maximum iterations") {
		t.Errorf("final = %q, want mention of maximum iterations", final)
	}
}

func TestInputProviderErrorPath(t *testing.T) {
	provider := &fakeProvider{name: "fake", err: errors.New("rate limited")}
	a, err := New(newTestConfig(provider))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	final, err := a.Input(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Input should not surface provider errors: %v", err)
	}
	if !strings.Contains(final, "rate limited") {
		t.Errorf("final = %q, want mention of the provider error", final)
	}
}

func TestInputToolCallRoundTrip(t *testing.T) {
	call := models.ToolCall{ID: "1", Name: "echo", Arguments: json.RawMessage(`{}`)}
	provider := &fakeProvider{
		name: "fake",
		responses: []*CompletionResponse{
			{ToolCalls: []models.ToolCall{call}},
			{Content: "final answer"},
		},
	}
	echo, err := NewTool("echo", "", nil, func(ctx context.Context, args json.RawMessage) (string, error) {
		return "echoed", nil
	})
	if err != nil {
		t.Fatalf("NewTool: %v", err)
	}

	a, err := New(newTestConfig(provider, echo))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	final, err := a.Input(context.Background(), "use the tool")
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	if final != "final answer" {
		t.Errorf("final = %q, want %q", final, "final answer")
	}
	if provider.calls != 2 {
		t.Errorf("provider.calls = %d, want 2", provider.calls)
	}
}

func TestInputCancelledContext(t *testing.T) {
	provider := &fakeProvider{
		name: "fake",
		responses: []*CompletionResponse{
			{Content: "should not be reached"},
		},
	}
	a, err := New(newTestConfig(provider))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	final, err := a.Input(ctx, "hi")
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	if final != "Cancelled" {
		t.Errorf("final = %q, want Cancelled", final)
	}
}

func TestInputRejectsConcurrentSession(t *testing.T) {
	release := make(chan struct{})
	provider := &blockingProvider{release: release}
	a, err := New(newTestConfig(provider))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan struct{})
	go func() {
		a.Input(context.Background(), "first")
		close(done)
	}()

	// Give the goroutine a chance to register the in-flight session.
	time.Sleep(20 * time.Millisecond)

	_, err = a.Input(context.Background(), "second")
	if !errors.Is(err, ErrSessionInFlight) {
		t.Errorf("expected ErrSessionInFlight, got %v", err)
	}

	close(release)
	<-done
}

type blockingProvider struct {
	release chan struct{}
}

func (p *blockingProvider) Name() string { return "blocking" }

func (p *blockingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	<-p.release
	return &CompletionResponse{Content: "done"}, nil
}

func TestAddToolRejectsWhileBusy(t *testing.T) {
	release := make(chan struct{})
	provider := &blockingProvider{release: release}
	a, err := New(newTestConfig(provider))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan struct{})
	go func() {
		a.Input(context.Background(), "first")
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)

	if err := a.AddTool(searchWeb); !errors.Is(err, ErrMutateWhileBusy) {
		t.Errorf("AddTool while busy: expected ErrMutateWhileBusy, got %v", err)
	}
	if err := a.RemoveTool("anything"); !errors.Is(err, ErrMutateWhileBusy) {
		t.Errorf("RemoveTool while busy: expected ErrMutateWhileBusy, got %v", err)
	}

	close(release)
	<-done
}

func TestRunStatus(t *testing.T) {
	tests := []struct {
		name  string
		final string
		err   error
		want  string
	}{
		{"error takes priority", "anything", errors.New("boom"), "error"},
		{"max iterations", "Task incomplete: reached maximum iterations (5)", nil, "max_iterations"},
		{"success", "all done", nil, "success"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runStatus(tt.final, tt.err); got != tt.want {
				t.Errorf("runStatus(%q, %v) = %q, want %q", tt.final, tt.err, got, tt.want)
			}
		})
	}
}

func TestHashMessagesDeterministicAndSensitive(t *testing.T) {
	a := []models.Message{models.NewUserMessage("hi")}
	b := []models.Message{models.NewUserMessage("hi")}
	c := []models.Message{models.NewUserMessage("bye")}

	if hashMessages(a) != hashMessages(b) {
		t.Error("identical message logs should hash identically")
	}
	if hashMessages(a) == hashMessages(c) {
		t.Error("different message logs should hash differently")
	}
	if hashMessages(nil) == "" {
		t.Error("hashMessages(nil) should still produce a stable non-empty hash")
	}
}
