package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/connectonion/connectonion-go/internal/agent"
	"github.com/connectonion/connectonion-go/pkg/models"
)

// DefaultGatewayURL is the managed gateway's completion endpoint used when
// ManagedConfig.GatewayURL is empty.
const DefaultGatewayURL = "https://oo.openonion.ai/v1/complete"

// ManagedProvider implements agent.Provider for the "co/"-prefixed adapter:
// it proxies completion requests through a remote gateway, authenticating
// with a bearer token rather than holding a direct provider API key. This
// is the adapter a caller gets by naming a model "co/<anything>".
type ManagedProvider struct {
	BaseProvider
	httpClient *http.Client
	gatewayURL string
}

// ManagedConfig configures the managed adapter.
type ManagedConfig struct {
	// APIKey is the OpenOnion account token. Falls back to OPENONION_API_KEY.
	APIKey string
	// GatewayURL overrides the default gateway endpoint.
	GatewayURL string
}

// NewManagedProvider builds the managed adapter. The returned provider's
// http.Client is an oauth2 bearer-token client: every request carries
// "Authorization: Bearer <token>" automatically, which is the same
// static-token pattern x/oauth2 offers for service-to-service calls (as
// opposed to the three-legged browser flow the auth package uses for user
// login).
func NewManagedProvider(cfg ManagedConfig) *ManagedProvider {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENONION_API_KEY")
	}
	gatewayURL := cfg.GatewayURL
	if gatewayURL == "" {
		gatewayURL = DefaultGatewayURL
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey})
	return &ManagedProvider{
		BaseProvider: NewBaseProvider("managed", 3, 250*time.Millisecond),
		httpClient:   oauth2.NewClient(context.Background(), source),
		gatewayURL:   gatewayURL,
	}
}

func (p *ManagedProvider) Name() string { return "managed" }

// managedRequest is the gateway's wire envelope: a flattened OpenAI-style
// chat request, since the gateway fans out to whichever upstream model the
// "co/" alias actually resolves to.
type managedRequest struct {
	Model       string            `json:"model"`
	Messages    []managedMessage  `json:"messages"`
	Tools       []managedToolSpec `json:"tools,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

type managedMessage struct {
	Role       string             `json:"role"`
	Content    string             `json:"content,omitempty"`
	Name       string             `json:"name,omitempty"`
	ToolCallID string             `json:"tool_call_id,omitempty"`
	ToolCalls  []managedToolCall  `json:"tool_calls,omitempty"`
}

type managedToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type managedToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

type managedResponse struct {
	Content   string            `json:"content"`
	ToolCalls []managedToolCall `json:"tool_calls"`
	Usage     struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete posts the request to the gateway and decodes its response.
func (p *ManagedProvider) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.CompletionResponse, error) {
	body := managedRequest{
		Model:       strings.TrimPrefix(req.Model, "co/"),
		Messages:    toManagedMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, tool := range req.Tools {
		body.Tools = append(body.Tools, managedToolSpec{
			Name:        tool.Name(),
			Description: tool.Description(),
			Schema:      tool.Schema(),
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("managed: encode request: %w", err)
	}

	var decoded managedResponse
	retryErr := p.Retry(ctx, IsRetryable, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.gatewayURL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := p.httpClient.Do(httpReq)
		if err != nil {
			return NewProviderError("managed", req.Model, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return NewProviderError("managed", req.Model, err)
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			gatewayErr := fmt.Errorf("managed: gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
			providerErr := NewProviderError("managed", req.Model, gatewayErr).WithStatus(resp.StatusCode)
			return providerErr
		}

		return json.Unmarshal(data, &decoded)
	})
	if retryErr != nil {
		return nil, retryErr
	}

	out := &agent.CompletionResponse{
		Content:     decoded.Content,
		RawResponse: decoded,
		Usage: &models.Usage{
			InputTokens:  decoded.Usage.InputTokens,
			OutputTokens: decoded.Usage.OutputTokens,
		},
	}
	for _, tc := range decoded.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: tc.Arguments,
		})
	}
	return out, nil
}

func toManagedMessages(msgs []models.Message) []managedMessage {
	result := make([]managedMessage, 0, len(msgs))
	for _, m := range msgs {
		mm := managedMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			mm.ToolCalls = append(mm.ToolCalls, managedToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
		}
		result = append(result, mm)
	}
	return result
}
