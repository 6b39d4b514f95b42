package providers

import (
	"context"
	"strings"

	"github.com/connectonion/connectonion-go/internal/agent"
)

// DispatcherConfig carries the per-provider credentials and gateway
// overrides the dispatcher needs to lazily construct an adapter.
type DispatcherConfig struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	ManagedAPIKey   string
	ManagedGateway  string
}

// Resolve selects an adapter for a model selector string per the prefix
// convention: "co/" routes to the managed gateway adapter, "claude-*" to
// Anthropic, "gemini-*" to Gemini, and everything else to OpenAI. This
// happens once, at agent construction, per §4.4 — the resolved Provider is
// then held for the agent's lifetime.
func Resolve(ctx context.Context, model string, cfg DispatcherConfig) (agent.Provider, error) {
	if strings.TrimSpace(model) == "" {
		return nil, agent.NewError(agent.KindUnknownModel, "model selector is required", nil)
	}

	switch {
	case strings.HasPrefix(model, "co/"):
		return NewManagedProvider(ManagedConfig{
			APIKey:     cfg.ManagedAPIKey,
			GatewayURL: cfg.ManagedGateway,
		}), nil

	case strings.HasPrefix(model, "claude-"):
		return NewAnthropicProvider(cfg.AnthropicAPIKey), nil

	case strings.HasPrefix(model, "gemini-"):
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey)

	default:
		return NewOpenAIProvider(cfg.OpenAIAPIKey), nil
	}
}
