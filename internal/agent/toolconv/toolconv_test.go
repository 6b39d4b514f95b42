package toolconv

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/connectonion/connectonion-go/internal/agent"
)

func mustTool(t *testing.T, name, description string, schema json.RawMessage) agent.Tool {
	t.Helper()
	tool, err := agent.NewTool(name, description, schema, func(ctx context.Context, args json.RawMessage) (string, error) {
		return "", nil
	})
	if err != nil {
		t.Fatalf("NewTool(%q): %v", name, err)
	}
	return tool
}

func TestToOpenAIToolsConvertsShape(t *testing.T) {
	tool := mustTool(t, "search", "search the web", json.RawMessage(`{
		"type": "object",
		"properties": {"query": {"type": "string"}},
		"required": ["query"]
	}`))

	out := ToOpenAITools([]agent.Tool{tool})
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if out[0].Function.Name != "search" {
		t.Errorf("Function.Name = %q, want search", out[0].Function.Name)
	}
	if out[0].Function.Description != "search the web" {
		t.Errorf("Function.Description = %q, want %q", out[0].Function.Description, "search the web")
	}
	params, ok := out[0].Function.Parameters.(map[string]any)
	if !ok {
		t.Fatalf("Parameters type = %T, want map[string]any", out[0].Function.Parameters)
	}
	if params["type"] != "object" {
		t.Errorf("Parameters[type] = %v, want object", params["type"])
	}
}

func TestToOpenAIToolsFallsBackOnInvalidSchema(t *testing.T) {
	tool := mustTool(t, "broken", "", nil)
	// NewTool defaults a nil schema to a valid empty object already, so
	// force an invalid one directly through a hand-rolled Tool instead.
	badSchemaTool := rawSchemaTool{name: "broken", schema: json.RawMessage(`not json`)}

	out := ToOpenAITools([]agent.Tool{tool, badSchemaTool})
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	params, ok := out[1].Function.Parameters.(map[string]any)
	if !ok {
		t.Fatalf("Parameters type = %T", out[1].Function.Parameters)
	}
	if params["type"] != "object" {
		t.Errorf("fallback Parameters[type] = %v, want object", params["type"])
	}
}

type rawSchemaTool struct {
	name   string
	schema json.RawMessage
}

func (r rawSchemaTool) Name() string            { return r.name }
func (r rawSchemaTool) Description() string     { return "" }
func (r rawSchemaTool) Schema() json.RawMessage { return r.schema }
func (r rawSchemaTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	return "", nil
}

func TestToAnthropicToolsEmpty(t *testing.T) {
	out, err := ToAnthropicTools(nil)
	if err != nil {
		t.Fatalf("ToAnthropicTools(nil): %v", err)
	}
	if out != nil {
		t.Errorf("out = %v, want nil", out)
	}
}

func TestToAnthropicToolConvertsShape(t *testing.T) {
	tool := mustTool(t, "search", "search the web", json.RawMessage(`{
		"type": "object",
		"properties": {"query": {"type": "string"}},
		"required": ["query"]
	}`))

	param, err := ToAnthropicTool(tool)
	if err != nil {
		t.Fatalf("ToAnthropicTool: %v", err)
	}
	if param.OfTool == nil {
		t.Fatal("expected OfTool to be set")
	}
	if param.OfTool.Name != "search" {
		t.Errorf("Name = %q, want search", param.OfTool.Name)
	}
}

func TestToAnthropicToolRejectsInvalidSchema(t *testing.T) {
	tool := rawSchemaTool{name: "broken", schema: json.RawMessage(`not json`)}
	if _, err := ToAnthropicTool(tool); err == nil {
		t.Fatal("expected error for invalid schema")
	}
}

func TestToGeminiToolsConvertsShape(t *testing.T) {
	tool := mustTool(t, "search", "search the web", json.RawMessage(`{
		"type": "object",
		"properties": {"query": {"type": "string", "description": "the query"}},
		"required": ["query"]
	}`))

	out := ToGeminiTools([]agent.Tool{tool})
	if len(out) != 1 || len(out[0].FunctionDeclarations) != 1 {
		t.Fatalf("out = %+v, want 1 tool with 1 declaration", out)
	}
	decl := out[0].FunctionDeclarations[0]
	if decl.Name != "search" {
		t.Errorf("Name = %q, want search", decl.Name)
	}
	if decl.Parameters.Properties["query"] == nil {
		t.Error("expected query property to be present")
	}
}

func TestToGeminiToolsSkipsInvalidSchemaToolsAndReturnsNilWhenAllInvalid(t *testing.T) {
	tool := rawSchemaTool{name: "broken", schema: json.RawMessage(`not json`)}
	out := ToGeminiTools([]agent.Tool{tool})
	if out != nil {
		t.Errorf("out = %v, want nil when every tool's schema is invalid", out)
	}
}

func TestToGeminiSchemaNilInput(t *testing.T) {
	if got := ToGeminiSchema(nil); got != nil {
		t.Errorf("ToGeminiSchema(nil) = %v, want nil", got)
	}
}

func TestToGeminiSchemaConvertsNestedShape(t *testing.T) {
	schemaMap := map[string]any{
		"type":        "object",
		"description": "a thing",
		"required":    []any{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"enum": []any{"a", "b"},
	}

	schema := ToGeminiSchema(schemaMap)
	if schema == nil {
		t.Fatal("expected non-nil schema")
	}
	if string(schema.Type) != "OBJECT" {
		t.Errorf("Type = %q, want OBJECT", schema.Type)
	}
	if schema.Description != "a thing" {
		t.Errorf("Description = %q, want %q", schema.Description, "a thing")
	}
	if len(schema.Required) != 1 || schema.Required[0] != "name" {
		t.Errorf("Required = %v, want [name]", schema.Required)
	}
	if len(schema.Enum) != 2 {
		t.Errorf("Enum = %v, want 2 entries", schema.Enum)
	}
	nameProp, ok := schema.Properties["name"]
	if !ok || string(nameProp.Type) != "STRING" {
		t.Errorf("Properties[name] = %+v, want type STRING", nameProp)
	}
	tagsProp, ok := schema.Properties["tags"]
	if !ok || tagsProp.Items == nil || string(tagsProp.Items.Type) != "STRING" {
		t.Errorf("Properties[tags] = %+v, want array of string items", tagsProp)
	}
}
