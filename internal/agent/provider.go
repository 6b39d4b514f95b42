package agent

import (
	"context"
	"encoding/json"

	"github.com/connectonion/connectonion-go/pkg/models"
)

// CompletionRequest is the canonical request every Provider adapter
// translates into its own wire shape.
type CompletionRequest struct {
	Messages []models.Message
	Tools    []Tool

	Model       string
	Temperature float64
	MaxTokens   int

	// StructuredOutputSchema, when set, requests a JSON response conforming
	// to this JSON-Schema instead of free text or tool calls (the one-shot
	// helper's structured-output path). Tools and StructuredOutputSchema are
	// mutually exclusive in practice: the one-shot helper never sends tools.
	StructuredOutputSchema json.RawMessage
}

// CompletionResponse is the canonical synchronous result: `complete(messages,
// tools) -> {content, tool_calls, raw_response}`.
type CompletionResponse struct {
	Content     string
	ToolCalls   []models.ToolCall
	RawResponse any
	Usage       *models.Usage
}

// Provider is the minimal capability surface every LLM adapter implements.
// Adapters handle their own authentication via environment-provided
// credentials and retry transient failures internally (network/auth/rate
// limit) before returning a ProviderError.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
