// Package executor resolves tool names and runs tool calls, normalizing
// every outcome into the CallResult envelope.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/catalog"
	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/registry"
	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/service"
	"github.com/asiloisad/pulsar-pulsar-mcp/logging"
)

// previewLimit caps the payload excerpt attached to debug log entries.
const previewLimit = 200

// Executor dispatches tool calls against the built-in registry first
// and the external catalog second. It implements service.BridgeService.
type Executor struct {
	builtins *registry.Registry
	external *catalog.Catalog
	events   service.ActivityPublisher
	log      *slog.Logger
}

var _ service.BridgeService = (*Executor)(nil)

// New wires an executor. events may be nil to disable the activity
// feed; log may be nil to discard diagnostics.
func New(builtins *registry.Registry, external *catalog.Catalog, events service.ActivityPublisher, log *slog.Logger) *Executor {
	if log == nil {
		log = logging.NewNop()
	}
	return &Executor{
		builtins: builtins,
		external: external,
		events:   events,
		log:      log,
	}
}

// ListTools returns built-in metadata followed by external metadata.
// The external catalog is consulted live, so disposals since the last
// call are already reflected.
func (e *Executor) ListTools(ctx context.Context) []service.ToolInfo {
	infos := e.builtins.List()
	return append(infos, e.external.List()...)
}

// Execute resolves name and runs the tool, producing an envelope.
//
// Resolution consults the built-in registry first and falls back to the
// external catalog only when the built-in lookup misses; a failure from
// a found built-in is returned as-is, never masked by an external tool
// of the same name. Success is decided by the falsy sentinel: a raw
// return of false or nil is a logical failure, anything else (zero,
// empty string, empty collection) succeeds.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) service.CallResult {
	start := time.Now()
	if args == nil {
		args = map[string]any{}
	}

	var invocable service.Invocable
	if tool, ok := e.builtins.Lookup(name); ok {
		invocable = tool
	} else if def, ok := e.external.Lookup(name); ok {
		invocable = def
	} else {
		result := service.Fail(fmt.Sprintf("Unknown tool: %s", name))
		e.finish(name, result, start)
		return result
	}

	raw, err := invocable.Invoke(ctx, args)

	var result service.CallResult
	switch {
	case err != nil:
		result = service.Fail(err.Error())
	case raw == nil:
		result = service.Fail("")
	default:
		if b, ok := raw.(bool); ok && !b {
			result = service.Fail("")
			break
		}
		data := raw
		if formatter, ok := invocable.(service.ResultFormatter); ok {
			data = formatter.FormatResult(raw)
		}
		result = service.OK(data)
	}

	e.finish(name, result, start)
	return result
}

// finish emits the per-call debug log entry and activity event. Both
// fire on success and failure alike.
func (e *Executor) finish(name string, result service.CallResult, start time.Time) {
	elapsed := time.Since(start)

	e.log.Debug("tool call",
		"tool", name,
		"success", result.Success,
		"duration", elapsed,
		"payload", preview(result),
	)

	if e.events != nil {
		e.events.PublishToolCall(service.ToolCallEvent{
			Tool:       name,
			Success:    result.Success,
			DurationMS: elapsed.Milliseconds(),
			Error:      result.Error,
			At:         time.Now(),
		})
	}
}

// preview renders a truncated excerpt of the envelope for logging.
func preview(result service.CallResult) string {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("<unencodable: %v>", err)
	}
	s := string(data)
	if len(s) > previewLimit {
		s = s[:previewLimit] + "..."
	}
	return s
}
