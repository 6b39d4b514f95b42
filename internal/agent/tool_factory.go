package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/invopop/jsonschema"
)

// Go has no runtime names for a function's formal parameters, so the
// reflective "inspect formal parameters" language in the type mapper spec
// is realized the way struct-tag-driven schema generation already works in
// this codebase's config loader: a tool function takes exactly one
// args-struct parameter, and the Type Mapper (here, invopop/jsonschema)
// reflects that struct's exported fields into the JSON-Schema the spec
// describes. `json` struct tags name the parameters; a field is required
// unless its type is a pointer or it carries `jsonschema:"-"` to opt out
// entirely, mirroring the struct-required-if-no-default rule.
//
// Accepted function shapes:
//   func(ctx context.Context, args T) (string, error)
//   func(args T) (string, error)
// where T is a struct (or pointer to struct).

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// ToolOption customizes a tool produced by MakeTool.
type ToolOption func(*toolOptions)

type toolOptions struct {
	name        string
	description string
}

// WithName overrides the derived tool name.
func WithName(name string) ToolOption { return func(o *toolOptions) { o.name = name } }

// WithDescription overrides the derived tool description.
func WithDescription(desc string) ToolOption { return func(o *toolOptions) { o.description = desc } }

// MakeTool wraps an ordinary Go function into a Tool: reflects its args
// struct into a JSON-Schema via the Type Mapper, and builds an invoker that
// decodes arguments and dispatches the call.
func MakeTool(fn any, opts ...ToolOption) (Tool, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, NewError(KindInvalidToolName, "MakeTool requires a function", nil)
	}
	ft := fv.Type()

	argIndex, hasCtx, err := locateArgsParam(ft)
	if err != nil {
		return nil, err
	}
	if err := validateReturns(ft); err != nil {
		return nil, err
	}

	o := toolOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = funcName(fn)
	}
	if o.description == "" {
		o.description = "Execute " + o.name
	}
	if err := ValidateToolName(o.name); err != nil {
		return nil, err
	}

	argType := ft.In(argIndex)
	argIsPtr := argType.Kind() == reflect.Ptr
	structType := argType
	if argIsPtr {
		structType = argType.Elem()
	}

	schema := reflectSchema(structType)

	invoke := func(ctx context.Context, rawArgs json.RawMessage) (string, error) {
		argPtr := reflect.New(structType)
		if len(rawArgs) > 0 {
			dec := json.NewDecoder(strings.NewReader(string(rawArgs)))
			if err := dec.Decode(argPtr.Interface()); err != nil {
				return "", NewError(KindToolArgumentDecodeError, err.Error(), err).WithTool(o.name)
			}
		}

		var argVal reflect.Value
		if argIsPtr {
			argVal = argPtr
		} else {
			argVal = argPtr.Elem()
		}

		in := make([]reflect.Value, 0, 2)
		if hasCtx {
			in = append(in, reflect.ValueOf(ctx))
		}
		in = append(in, argVal)

		out := fv.Call(in)
		return interpretReturns(o.name, out)
	}

	return &record{name: o.name, description: o.description, schema: schema, invoke: invoke}, nil
}

// MakeToolsFromObject enumerates obj's exported methods matching the tool
// signature and wraps each, bound to the instance.
func MakeToolsFromObject(obj any) ([]Tool, error) {
	v := reflect.ValueOf(obj)
	t := v.Type()

	tools := make([]Tool, 0)
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		bound := v.Method(i)
		mt := bound.Type()

		if _, _, err := locateArgsParam(mt); err != nil {
			continue // not a tool-shaped method; skip silently
		}
		if err := validateReturns(mt); err != nil {
			continue
		}

		tool, err := MakeTool(bound.Interface(), WithName(m.Name))
		if err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// Collect normalizes a heterogeneous list of tools/callables/objects into a
// flat []Tool: a Tool passes through, a function is wrapped with MakeTool,
// anything else is treated as an object and expanded with
// MakeToolsFromObject.
func Collect(items ...any) ([]Tool, error) {
	var tools []Tool
	seen := make(map[string]bool)

	add := func(t Tool) error {
		if seen[t.Name()] {
			return NewError(KindDuplicateToolName, "tool name already registered", nil).WithTool(t.Name())
		}
		seen[t.Name()] = true
		tools = append(tools, t)
		return nil
	}

	for _, item := range items {
		switch v := item.(type) {
		case Tool:
			if err := add(v); err != nil {
				return nil, err
			}
			continue
		}

		rv := reflect.ValueOf(item)
		if rv.Kind() == reflect.Func {
			t, err := MakeTool(item)
			if err != nil {
				return nil, err
			}
			if err := add(t); err != nil {
				return nil, err
			}
			continue
		}

		objTools, err := MakeToolsFromObject(item)
		if err != nil {
			return nil, err
		}
		for _, t := range objTools {
			if err := add(t); err != nil {
				return nil, err
			}
		}
	}
	return tools, nil
}

func locateArgsParam(ft reflect.Type) (argIndex int, hasCtx bool, err error) {
	switch ft.NumIn() {
	case 1:
		if ft.In(0).Kind() != reflect.Struct && !(ft.In(0).Kind() == reflect.Ptr && ft.In(0).Elem().Kind() == reflect.Struct) {
			return 0, false, fmt.Errorf("tool function's sole parameter must be a struct or *struct")
		}
		return 0, false, nil
	case 2:
		if !ft.In(0).Implements(ctxType) {
			return 0, false, fmt.Errorf("tool function's first parameter must be context.Context")
		}
		if ft.In(1).Kind() != reflect.Struct && !(ft.In(1).Kind() == reflect.Ptr && ft.In(1).Elem().Kind() == reflect.Struct) {
			return 0, false, fmt.Errorf("tool function's second parameter must be a struct or *struct")
		}
		return 1, true, nil
	default:
		return 0, false, fmt.Errorf("tool function must take (args) or (ctx, args)")
	}
}

func validateReturns(ft reflect.Type) error {
	if ft.NumOut() != 2 {
		return fmt.Errorf("tool function must return (string, error) or (T, error)")
	}
	if !ft.Out(1).Implements(errType) {
		return fmt.Errorf("tool function's second return value must be error")
	}
	return nil
}

// interpretReturns coerces the function's first return value to a string
// per the executor's coercion rule: primitives use their textual form,
// mappings/sequences use canonical JSON, anything else falls back to
// fmt.Sprintf's default verb.
func interpretReturns(toolName string, out []reflect.Value) (string, error) {
	if errVal := out[1]; !errVal.IsNil() {
		err := errVal.Interface().(error)
		return "", NewError(KindToolRuntimeError, err.Error(), err).WithTool(toolName)
	}

	result := out[0].Interface()
	return CoerceToString(result), nil
}

// CoerceToString converts a tool's return value to the text the LLM sees:
// strings pass through, primitives use their textual form, everything else
// is marshaled to canonical JSON (falling back to fmt.Sprintf).
func CoerceToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case nil:
		return ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool:
		return fmt.Sprintf("%v", v)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func funcName(fn any) string {
	full := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	// runtime names look like "pkg/path.Type.Method-fm" or "pkg/path.funcName";
	// keep the last dotted segment and strip closure/method-value suffixes.
	if idx := strings.LastIndex(full, "."); idx >= 0 {
		full = full[idx+1:]
	}
	full = strings.TrimSuffix(full, "-fm")
	return full
}

// reflectSchema derives the spec's parameter_schema from a struct type via
// the Type Mapper (invopop/jsonschema's struct-tag reflection).
func reflectSchema(structType reflect.Type) json.RawMessage {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		RequiredFromJSONSchemaTags: false,
	}
	schema := r.ReflectFromType(structType)
	schema.Version = "" // the spec's schema has no top-level $schema field
	data, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return data
}
