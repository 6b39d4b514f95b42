package agent

import (
	"context"
	"encoding/json"
	"testing"
)

func mustTool(t *testing.T, name string) Tool {
	t.Helper()
	tool, err := NewTool(name, "", nil, func(ctx context.Context, args json.RawMessage) (string, error) {
		return name, nil
	})
	if err != nil {
		t.Fatalf("NewTool(%q): %v", name, err)
	}
	return tool
}

func TestToolRegistryPreservesOrder(t *testing.T) {
	reg, err := NewToolRegistry([]Tool{mustTool(t, "a"), mustTool(t, "b"), mustTool(t, "c")})
	if err != nil {
		t.Fatalf("NewToolRegistry: %v", err)
	}

	names := make([]string, 0, 3)
	for _, tool := range reg.List() {
		names = append(names, tool.Name())
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("List() = %v, want %v", names, want)
		}
	}
}

func TestToolRegistryRejectsDuplicateAtConstruction(t *testing.T) {
	_, err := NewToolRegistry([]Tool{mustTool(t, "a"), mustTool(t, "a")})
	if err == nil || !IsKind(err, KindDuplicateToolName) {
		t.Fatalf("expected DuplicateToolName, got %v", err)
	}
}

func TestToolRegistryAddRemove(t *testing.T) {
	reg, err := NewToolRegistry(nil)
	if err != nil {
		t.Fatalf("NewToolRegistry: %v", err)
	}

	if err := reg.Add(mustTool(t, "a")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := reg.Add(mustTool(t, "a")); err == nil || !IsKind(err, KindDuplicateToolName) {
		t.Fatalf("expected DuplicateToolName on re-add, got %v", err)
	}

	if _, ok := reg.Get("a"); !ok {
		t.Fatal("expected tool 'a' to be present")
	}

	reg.Remove("a")
	if _, ok := reg.Get("a"); ok {
		t.Fatal("expected tool 'a' to be removed")
	}
	reg.Remove("does-not-exist") // no-op, must not panic

	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}
