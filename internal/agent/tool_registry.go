package agent

import (
	"sync"
)

// ToolRegistry holds an agent's tool set: a name-unique collection of Tools,
// exclusively owned by the agent for its lifetime. Mutation (AddTool/
// RemoveTool) is only valid between input() calls; the loop itself only
// reads.
type ToolRegistry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

// NewToolRegistry builds a registry from an already-deduplicated tool list
// (e.g. the output of Collect).
func NewToolRegistry(tools []Tool) (*ToolRegistry, error) {
	r := &ToolRegistry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *ToolRegistry) add(t Tool) error {
	if err := ValidateToolName(t.Name()); err != nil {
		return err
	}
	if _, exists := r.tools[t.Name()]; exists {
		return NewError(KindDuplicateToolName, "tool already registered", nil).WithTool(t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Add registers a new tool. Returns DuplicateToolName if the name collides.
func (r *ToolRegistry) Add(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(t)
}

// Remove drops a tool by name. A no-op if the name is unknown.
func (r *ToolRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get looks up a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the tools in registration order.
func (r *ToolRegistry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.tools[n])
	}
	return out
}

// Len reports the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
