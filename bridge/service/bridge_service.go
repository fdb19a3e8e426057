package service

import (
	"context"
	"time"
)

// BridgeService is the operation surface the transports consume. The
// HTTP API, the MCP handler, and the tests all program against this
// interface rather than the concrete executor.
type BridgeService interface {
	// ListTools returns built-in tool metadata followed by external
	// tool metadata, in registration order.
	ListTools(ctx context.Context) []ToolInfo

	// Execute resolves a tool by name and runs it, normalizing every
	// outcome into a CallResult envelope. It never returns an error:
	// failures are envelope failures.
	Execute(ctx context.Context, name string, args map[string]any) CallResult
}

// Invocable is the capability shared by built-in and external tools: a
// named, schema-described operation that can be invoked with a map of
// arguments. The executor dispatches through this interface without
// caring where the tool came from.
type Invocable interface {
	Info() ToolInfo
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// ResultFormatter is an optional upgrade of Invocable: tools that shape
// their raw return value before it becomes envelope data implement it.
// The executor applies it after the success decision, so formatting can
// never turn a logical failure into a success or vice versa.
type ResultFormatter interface {
	FormatResult(raw any) any
}

// SessionStore tracks MCP sessions. Implementations must be safe for
// concurrent use.
type SessionStore interface {
	Create(protocolVersion string, clientInfo map[string]any) *Session
	Get(id string) (*Session, error)
	Delete(id string) error
	MarkInitialized(id string) error
	List() []*Session
	Count() int
	CleanupExpired(maxAge time.Duration) int
}

// ActivityPublisher receives one event per completed tool call. The
// websocket hub implements it; a nil publisher disables the feed.
type ActivityPublisher interface {
	PublishToolCall(event ToolCallEvent)
}
