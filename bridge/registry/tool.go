package registry

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/service"
)

// Handler is a tool's execution procedure. Returning false or nil (with
// a nil error) signals a logical failure: the executor reports it as an
// unsuccessful envelope even though nothing was thrown. Several built-in
// tools rely on this to say "no active editor" without an error value.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is a built-in tool definition. Immutable once registered.
type Tool struct {
	Name        string
	Description string
	InputSchema mcp.ToolInputSchema
	Annotations map[string]any

	// Rules are evaluated in order before the handler runs; the first
	// failing rule aborts the call with its message verbatim.
	Rules []Rule

	Handler Handler

	// Format reshapes the raw return value into envelope data. Nil
	// means identity. It runs after the success decision, never before.
	Format func(raw any) any
}

// Info returns the tool's public metadata.
func (t *Tool) Info() service.ToolInfo {
	return service.ToolInfo{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
		Annotations: t.Annotations,
	}
}

// Invoke validates the arguments against the declared rules and runs
// the handler.
func (t *Tool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	for _, rule := range t.Rules {
		if msg := rule.Apply(args); msg != "" {
			return nil, errors.New(msg)
		}
	}
	return t.Handler(ctx, args)
}

// FormatResult applies the tool's formatter, if any.
func (t *Tool) FormatResult(raw any) any {
	if t.Format == nil {
		return raw
	}
	return t.Format(raw)
}
