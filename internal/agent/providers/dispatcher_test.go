package providers

import (
	"context"
	"testing"

	"github.com/connectonion/connectonion-go/internal/agent"
)

func TestResolveRejectsEmptyModel(t *testing.T) {
	_, err := Resolve(context.Background(), "  ", DispatcherConfig{})
	if err == nil || !agent.IsKind(err, agent.KindUnknownModel) {
		t.Fatalf("expected UnknownModel, got %v", err)
	}
}

func TestResolveRoutesByPrefix(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"claude-sonnet-4-5", "anthropic"},
		{"co/gpt-5", "managed"},
		{"gpt-4o", "openai"},
		{"some-other-model", "openai"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p, err := Resolve(context.Background(), tt.model, DispatcherConfig{})
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.model, err)
			}
			if p.Name() != tt.want {
				t.Errorf("Resolve(%q).Name() = %q, want %q", tt.model, p.Name(), tt.want)
			}
		})
	}
}
