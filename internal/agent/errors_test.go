package agent

import (
	"errors"
	"testing"
)

func TestErrorMessageFormatting(t *testing.T) {
	plain := NewError(KindUnknownModel, "no such model", nil)
	if plain.Error() != "UnknownModel: no such model" {
		t.Errorf("Error() = %q", plain.Error())
	}

	withTool := NewError(KindToolNotFound, "not registered", nil).WithTool("search")
	if withTool.Error() != `ToolNotFound: tool "search": not registered` {
		t.Errorf("Error() = %q", withTool.Error())
	}

	withEvent := NewError(KindHookError, "panic: boom", nil).WithEvent("before_llm")
	if withEvent.Error() != `HookError: event "before_llm": panic: boom` {
		t.Errorf("Error() = %q", withEvent.Error())
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	wrapped := NewError(KindProviderError, "call failed", cause)
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should see through Unwrap to the cause")
	}
}

func TestIsKind(t *testing.T) {
	err := NewError(KindToolTimeout, "deadline exceeded", nil)
	if !IsKind(err, KindToolTimeout) {
		t.Error("IsKind should match the error's own kind")
	}
	if IsKind(err, KindToolRuntimeError) {
		t.Error("IsKind should not match a different kind")
	}
	if IsKind(errors.New("plain error"), KindToolTimeout) {
		t.Error("IsKind should return false for a non-*Error")
	}
}
