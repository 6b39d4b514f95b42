package providers

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/connectonion/connectonion-go/internal/agent"
	"github.com/connectonion/connectonion-go/internal/agent/toolconv"
	"github.com/connectonion/connectonion-go/pkg/models"
)

// AnthropicProvider implements agent.Provider over the Anthropic messages
// API, synchronously: it always uses Messages.New rather than streaming,
// since the core's complete() contract is a single round trip per call.
type AnthropicProvider struct {
	BaseProvider
	client *anthropic.Client
}

// NewAnthropicProvider builds an adapter. apiKey falls back to
// ANTHROPIC_API_KEY when empty.
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{
		BaseProvider: NewBaseProvider("anthropic", 3, 250*time.Millisecond),
		client:       &client,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete sends one non-streaming request, retrying transient failures
// before surfacing a ProviderError, per the loop's "retried inside the
// adapter at most twice" failure semantics.
func (p *AnthropicProvider) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.CompletionResponse, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	var message *anthropic.Message
	retryErr := p.Retry(ctx, IsRetryable, func() error {
		m, callErr := p.client.Messages.New(ctx, params)
		if callErr != nil {
			return NewProviderError("anthropic", req.Model, callErr)
		}
		message = m
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return p.toResponse(message), nil
}

func (p *AnthropicProvider) buildParams(req agent.CompletionRequest) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokensOrDefault(req.MaxTokens),
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	messages, system, err := convertAnthropicMessages(req.Messages)
	if err != nil {
		return params, err
	}
	params.Messages = messages
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if len(req.Tools) > 0 {
		tools, err := toolconv.ToAnthropicTools(req.Tools)
		if err != nil {
			return params, err
		}
		params.Tools = tools
	}

	return params, nil
}

func maxTokensOrDefault(n int) int64 {
	if n > 0 {
		return int64(n)
	}
	return 4096
}

// convertAnthropicMessages translates the canonical Message log into
// Anthropic's request shape, pulling out a leading system message since
// Anthropic carries it as a top-level field rather than a message-log entry.
func convertAnthropicMessages(msgs []models.Message) ([]anthropic.MessageParam, string, error) {
	var system string
	result := make([]anthropic.MessageParam, 0, len(msgs))

	for _, m := range msgs {
		switch m.Role {
		case models.RoleSystem:
			system = m.Content

		case models.RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))

		case models.RoleAssistant:
			if len(m.ToolCalls) > 0 {
				blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolCalls))
				for _, tc := range m.ToolCalls {
					var input any
					if len(tc.Arguments) > 0 {
						if err := json.Unmarshal(tc.Arguments, &input); err != nil {
							return nil, "", err
						}
					}
					blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
				}
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			} else {
				result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			}

		case models.RoleTool:
			result = append(result, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		}
	}

	return result, system, nil
}

func (p *AnthropicProvider) toResponse(message *anthropic.Message) *agent.CompletionResponse {
	resp := &agent.CompletionResponse{RawResponse: message}
	if message == nil {
		return resp
	}

	resp.Usage = &models.Usage{
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}

	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content += variant.Text
		case anthropic.ToolUseBlock:
			resp.ToolCalls = append(resp.ToolCalls, models.ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: json.RawMessage(variant.Input),
			})
		}
	}

	return resp
}
