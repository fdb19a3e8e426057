package editor

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/registry"
)

// RegisterBuiltins registers the editor tool set against host. Tool
// names are PascalCase letters only, so every built-in is reachable via
// the REST route POST /tools/{name} as well as MCP tools/call.
func RegisterBuiltins(reg *registry.Registry, host Host) {
	reg.Register(registry.Tool{
		Name:        "GetText",
		Description: "Get the full text of the active editor",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
		Annotations: map[string]any{"readOnlyHint": true},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			text, ok := host.GetText()
			if !ok {
				return nil, nil
			}
			return text, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "SetText",
		Description: "Replace the entire text of the active editor",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Replacement text for the whole buffer",
				},
			},
			Required: []string{"text"},
		},
		Annotations: map[string]any{"destructiveHint": true},
		Rules:       []registry.Rule{registry.RequiredString("text")},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			text := args["text"].(string)
			return host.SetText(text), nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "InsertText",
		Description: "Insert text into the active editor at the cursor, beginning, or end",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Text to insert",
				},
				"position": map[string]any{
					"type":        "string",
					"enum":        []string{"beginning", "cursor", "end"},
					"description": "Where to insert (default: cursor)",
				},
			},
			Required: []string{"text"},
		},
		Rules: []registry.Rule{
			registry.RequiredString("text"),
			registry.Enum("position", "beginning", "cursor", "end"),
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			text := args["text"].(string)
			position := "cursor"
			if p, ok := args["position"].(string); ok && p != "" {
				position = p
			}
			return host.InsertText(text, position), nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "GetPath",
		Description: "Get the file path of the active editor",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
		Annotations: map[string]any{"readOnlyHint": true},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			path, ok := host.GetPath()
			if !ok {
				return nil, nil
			}
			return path, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "GetOpenFiles",
		Description: "List the paths of all open editors",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
		Annotations: map[string]any{"readOnlyHint": true},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return host.OpenPaths(), nil
		},
		Format: func(raw any) any {
			paths, _ := raw.([]string)
			return map[string]any{
				"files": paths,
				"count": len(paths),
			}
		},
	})

	reg.Register(registry.Tool{
		Name:        "Open",
		Description: "Open a file in the editor, creating an empty buffer when the file does not exist",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path of the file to open",
				},
			},
			Required: []string{"path"},
		},
		Rules: []registry.Rule{registry.RequiredString("path")},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			path := args["path"].(string)
			if err := host.Open(path); err != nil {
				return nil, err
			}
			return path, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "Save",
		Description: "Save the active editor to disk",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
		Annotations: map[string]any{"idempotentHint": true},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			path, err := host.Save()
			if err != nil {
				return nil, err
			}
			return path, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "Close",
		Description: "Close the active editor",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
		Annotations: map[string]any{"destructiveHint": true},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return host.Close(), nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "GetProjectPaths",
		Description: "List the project root paths",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
		Annotations: map[string]any{"readOnlyHint": true},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return host.ProjectPaths(), nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "AddProjectPath",
		Description: "Add a project root path",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to add as a project root",
				},
			},
			Required: []string{"path"},
		},
		Rules: []registry.Rule{registry.RequiredString("path")},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			host.AddProjectPath(args["path"].(string))
			return host.ProjectPaths(), nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "RemoveProjectPath",
		Description: "Remove a project root path",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Project root to remove",
				},
			},
			Required: []string{"path"},
		},
		Rules: []registry.Rule{registry.RequiredString("path")},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return host.RemoveProjectPath(args["path"].(string)), nil
		},
	})
}
