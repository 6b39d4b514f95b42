package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/connectonion/connectonion-go/internal/agent"
	"github.com/connectonion/connectonion-go/internal/agent/toolconv"
	"github.com/connectonion/connectonion-go/pkg/models"
	"google.golang.org/genai"
)

// GeminiProvider implements agent.Provider over Google's Gen AI SDK, via a
// single non-streaming GenerateContent call per Complete().
type GeminiProvider struct {
	BaseProvider
	client *genai.Client
}

// NewGeminiProvider builds an adapter. apiKey falls back to GEMINI_API_KEY
// when empty.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{
		BaseProvider: NewBaseProvider("gemini", 3, 250*time.Millisecond),
		client:       client,
	}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Complete sends one non-streaming generateContent request.
func (p *GeminiProvider) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.CompletionResponse, error) {
	contents, system := convertGeminiMessages(req.Messages)
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if len(req.Tools) > 0 {
		config.Tools = toolconv.ToGeminiTools(req.Tools)
	}

	var resp *genai.GenerateContentResponse
	retryErr := p.Retry(ctx, IsRetryable, func() error {
		r, callErr := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
		if callErr != nil {
			return NewProviderError("gemini", req.Model, callErr)
		}
		resp = r
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return toGeminiResponse(resp), nil
}

// convertGeminiMessages translates the canonical message log into Gemini's
// contents array, pulling a leading system message out since Gemini carries
// it via SystemInstruction rather than a message-log entry.
func convertGeminiMessages(msgs []models.Message) ([]*genai.Content, string) {
	var system string
	result := make([]*genai.Content, 0, len(msgs))

	for _, m := range msgs {
		switch m.Role {
		case models.RoleSystem:
			system = m.Content

		case models.RoleUser:
			result = append(result, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})

		case models.RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if len(m.ToolCalls) > 0 {
				for _, tc := range m.ToolCalls {
					var args map[string]any
					if len(tc.Arguments) > 0 {
						_ = json.Unmarshal(tc.Arguments, &args)
					}
					content.Parts = append(content.Parts, &genai.Part{
						FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args},
					})
				}
			} else {
				content.Parts = []*genai.Part{{Text: m.Content}}
			}
			result = append(result, content)

		case models.RoleTool:
			var response map[string]any
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil {
				response = map[string]any{"result": m.Content}
			}
			result = append(result, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{Name: m.Name, Response: response},
				}},
			})
		}
	}

	return result, system
}

func toGeminiResponse(resp *genai.GenerateContentResponse) *agent.CompletionResponse {
	out := &agent.CompletionResponse{RawResponse: resp}
	if resp == nil {
		return out
	}

	if resp.UsageMetadata != nil {
		out.Usage = &models.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				out.Content += part.Text
			}
			if part.FunctionCall != nil {
				argsJSON, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					argsJSON = []byte("{}")
				}
				out.ToolCalls = append(out.ToolCalls, models.ToolCall{
					ID:        generateGeminiCallID(part.FunctionCall.Name),
					Name:      part.FunctionCall.Name,
					Arguments: argsJSON,
				})
			}
		}
	}

	return out
}

// generateGeminiCallID synthesizes a call_id since Gemini function calls
// don't carry one of their own.
func generateGeminiCallID(name string) string {
	return fmt.Sprintf("call_%s_%d", name, time.Now().UnixNano())
}
