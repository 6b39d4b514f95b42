// Package oneshot implements the stateless single-round completion helper
// (C5): one call out to a Provider, no tool schema, with optional coercion
// of the response into a caller-declared JSON-Schema.
package oneshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/connectonion/connectonion-go/internal/agent"
	"github.com/connectonion/connectonion-go/pkg/models"
)

// DefaultTemperature matches the agent's own default (§4.5: "Default
// temperature is 0.1").
const DefaultTemperature = 0.1

// Request is the one_shot(...) argument set.
type Request struct {
	Input        string
	SystemPrompt string // literal text, or a path to a file containing it
	Model        string
	Temperature  float64

	// OutputSchema, when set, requests structured output conforming to this
	// JSON-Schema and coerces the response into it.
	OutputSchema json.RawMessage
}

// Run executes one completion round trip. When req.OutputSchema is unset,
// the returned value is a string (the raw assistant text). When set, the
// returned value is the decoded JSON (map[string]any, []any, or a scalar)
// validated against the schema.
func Run(ctx context.Context, provider agent.Provider, req Request) (any, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	messages := buildMessages(ResolveSystemPrompt(req.SystemPrompt), req.Input)

	completionReq := agent.CompletionRequest{
		Messages:               messages,
		Model:                  req.Model,
		Temperature:            temperature,
		StructuredOutputSchema: req.OutputSchema,
	}

	resp, err := provider.Complete(ctx, completionReq)
	if err != nil {
		return nil, err
	}

	if len(req.OutputSchema) == 0 {
		return resp.Content, nil
	}

	return coerce(resp.Content, req.OutputSchema)
}

func buildMessages(systemPrompt, input string) []models.Message {
	messages := make([]models.Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, models.NewSystemMessage(systemPrompt))
	}
	messages = append(messages, models.NewUserMessage(input))
	return messages
}

// ResolveSystemPrompt treats systemPrompt as a path first: if it names a
// file that exists, its contents are loaded; otherwise it's used verbatim.
// Shared by the one-shot helper and Agent construction, since §4.12 gives
// system_prompt the same literal-or-path contract in both places.
func ResolveSystemPrompt(systemPrompt string) string {
	if systemPrompt == "" {
		return ""
	}
	if looksLikePath(systemPrompt) {
		if data, err := os.ReadFile(systemPrompt); err == nil {
			return string(data)
		}
	}
	return systemPrompt
}

func looksLikePath(s string) bool {
	if strings.ContainsAny(s, "\n") {
		return false
	}
	info, err := os.Stat(s)
	return err == nil && !info.IsDir()
}

// coerce parses content as JSON and validates it against schema, raising
// agent's StructuredOutputMismatch on any failure — invalid JSON or a
// schema violation are both the same failure mode from the caller's
// perspective.
func coerce(content string, schema json.RawMessage) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		return nil, mismatch(fmt.Errorf("response is not valid JSON: %w", err))
	}

	compiled, err := compileSchema(schema)
	if err != nil {
		return nil, mismatch(fmt.Errorf("invalid output_schema: %w", err))
	}

	if err := compiled.Validate(value); err != nil {
		return nil, mismatch(err)
	}

	return value, nil
}

func compileSchema(schema json.RawMessage) (*jsonschema.Schema, error) {
	const resourceName = "output_schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceName, strings.NewReader(string(schema))); err != nil {
		return nil, err
	}
	return compiler.Compile(resourceName)
}

func mismatch(cause error) error {
	return agent.NewError(agent.KindStructuredOutputMismatch, cause.Error(), cause)
}
