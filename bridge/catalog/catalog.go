// Package catalog is the external tool map: tools contributed by
// collaborating components at runtime through an add/remove
// registration call. The bridge consults the live map on every
// tools/list and tools/call, so additions and disposals take effect on
// the next request with no reload step.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/service"
)

// ErrUnnamedTool is returned when a definition without a name is added.
var ErrUnnamedTool = errors.New("external tool requires a name")

// Definition describes an externally contributed tool: static metadata
// plus an invocation procedure supplied by the contributor.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Annotations map[string]any
	Execute     func(ctx context.Context, args map[string]any) (any, error)
}

// Info returns the definition's public metadata. A missing input schema
// defaults to an empty object so every listed tool carries one.
func (d *Definition) Info() service.ToolInfo {
	schema := any(d.InputSchema)
	if d.InputSchema == nil {
		schema = map[string]any{}
	}
	return service.ToolInfo{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: schema,
		Annotations: d.Annotations,
	}
}

// Invoke runs the contributed procedure.
func (d *Definition) Invoke(ctx context.Context, args map[string]any) (any, error) {
	if d.Execute == nil {
		return nil, fmt.Errorf("tool %s has no execution procedure", d.Name)
	}
	return d.Execute(ctx, args)
}

// Catalog holds the external tools. Safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]*Definition
	order []string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		tools: make(map[string]*Definition),
	}
}

// Add registers a definition, replacing any previous one with the same
// name, and returns a disposal handle that unregisters it. Disposal is
// idempotent and by name: disposing after a replacement removes the
// replacement too.
func (c *Catalog) Add(def Definition) (func(), error) {
	if def.Name == "" {
		return nil, ErrUnnamedTool
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[def.Name]; !exists {
		c.order = append(c.order, def.Name)
	}
	d := def
	c.tools[def.Name] = &d

	name := def.Name
	return func() { c.Remove(name) }, nil
}

// Remove unregisters a tool by name, reporting whether it was present.
func (c *Catalog) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[name]; !exists {
		return false
	}
	delete(c.tools, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Lookup returns the definition for name, or false when absent.
func (c *Catalog) Lookup(name string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.tools[name]
	return def, ok
}

// List returns public metadata for every external tool in registration
// order, with missing descriptions and schemas defaulted.
func (c *Catalog) List() []service.ToolInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	infos := make([]service.ToolInfo, 0, len(c.order))
	for _, name := range c.order {
		infos = append(infos, c.tools[name].Info())
	}
	return infos
}

// Count returns the number of registered external tools.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}
