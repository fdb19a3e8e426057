// Package registry holds the built-in tool set: named, schema-described
// operations with declarative argument rules and an execution procedure.
// The registry is pure data and dispatch; it performs no I/O of its own.
package registry

import (
	"sync"

	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/service"
)

// Registry maps tool names to built-in definitions. Registration order
// is preserved and is the order List reports.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool, replacing any previous definition with the same
// name. A replaced tool keeps its original position in List.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}
	t := tool
	r.tools[tool.Name] = &t
}

// Lookup returns the definition for name, or false when unregistered.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// List returns public metadata for every registered tool, never the
// execution procedures.
func (r *Registry) List() []service.ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]service.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, r.tools[name].Info())
	}
	return infos
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
