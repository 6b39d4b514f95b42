package agent

import (
	"context"
	"encoding/json"
	"regexp"
)

// Tool is the uniform, invocable shape every tool takes once the factory has
// wrapped it: name, description, JSON-Schema parameters, and an invoker.
// Provider adapters only ever see this interface, never the original
// callable.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// toolNamePattern is the name validation rule: must start with a letter or
// underscore and contain only word characters and hyphens.
var toolNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// ValidateToolName reports InvalidToolName if name does not match the
// required pattern.
func ValidateToolName(name string) error {
	if !toolNamePattern.MatchString(name) {
		return NewError(KindInvalidToolName, "must match ^[a-zA-Z_][a-zA-Z0-9_-]*$", nil).WithTool(name)
	}
	return nil
}

// record is the concrete Tool implementation produced by the factory,
// wrapping a schema and an invoker derived from a Go function or method.
type record struct {
	name        string
	description string
	schema      json.RawMessage
	invoke      func(ctx context.Context, args json.RawMessage) (string, error)
}

func (r *record) Name() string               { return r.name }
func (r *record) Description() string        { return r.description }
func (r *record) Schema() json.RawMessage    { return r.schema }
func (r *record) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	return r.invoke(ctx, args)
}

// NewTool builds a Tool directly from its parts, bypassing reflection. Used
// for tools that are already pre-wrapped (e.g. by a plugin) and passed
// straight through Collect.
func NewTool(name, description string, schema json.RawMessage, invoke func(ctx context.Context, args json.RawMessage) (string, error)) (Tool, error) {
	if err := ValidateToolName(name); err != nil {
		return nil, err
	}
	if schema == nil {
		schema = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return &record{name: name, description: description, schema: schema, invoke: invoke}, nil
}
