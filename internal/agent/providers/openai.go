package providers

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/connectonion/connectonion-go/internal/agent"
	"github.com/connectonion/connectonion-go/internal/agent/toolconv"
	"github.com/connectonion/connectonion-go/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements agent.Provider over OpenAI's chat completions
// API, via a single non-streaming CreateChatCompletion call per complete().
type OpenAIProvider struct {
	BaseProvider
	client *openai.Client
}

// NewOpenAIProvider builds an adapter. apiKey falls back to OPENAI_API_KEY
// when empty.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return &OpenAIProvider{
		BaseProvider: NewBaseProvider("openai", 3, 250*time.Millisecond),
		client:       openai.NewClient(apiKey),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete sends one non-streaming chat completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.CompletionResponse, error) {
	messages, err := convertOpenAIMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = toolconv.ToOpenAITools(req.Tools)
	}
	if len(req.StructuredOutputSchema) > 0 {
		var schema map[string]any
		if err := json.Unmarshal(req.StructuredOutputSchema, &schema); err == nil {
			chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   "structured_output",
					Schema: jsonSchemaDef(schema),
					Strict: true,
				},
			}
		}
	}

	var completion openai.ChatCompletionResponse
	retryErr := p.Retry(ctx, IsRetryable, func() error {
		c, callErr := p.client.CreateChatCompletion(ctx, chatReq)
		if callErr != nil {
			return NewProviderError("openai", req.Model, callErr)
		}
		completion = c
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return toOpenAIResponse(completion), nil
}

func convertOpenAIMessages(msgs []models.Message) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(msgs))

	for _, m := range msgs {
		switch m.Role {
		case models.RoleSystem:
			result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content})

		case models.RoleUser:
			result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})

		case models.RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			result = append(result, msg)

		case models.RoleTool:
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		}
	}

	return result, nil
}

func toOpenAIResponse(completion openai.ChatCompletionResponse) *agent.CompletionResponse {
	resp := &agent.CompletionResponse{
		RawResponse: completion,
		Usage: &models.Usage{
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
		},
	}
	if len(completion.Choices) == 0 {
		return resp
	}

	msg := completion.Choices[0].Message
	resp.Content = msg.Content
	for _, tc := range msg.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return resp
}

// jsonSchemaDef wraps a decoded JSON-Schema map as the go-openai library's
// expected marshaler for ResponseFormat.JSONSchema.Schema.
type jsonSchemaDef map[string]any

func (s jsonSchemaDef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(s))
}
