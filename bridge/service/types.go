package service

import (
	"encoding/json"
	"time"
)

// ToolInfo is the public metadata of a tool as it appears on the wire,
// both in GET /tools and in MCP tools/list responses. It never carries
// the execution procedure.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema any            `json:"inputSchema"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

// CallResult is the normalized envelope produced by every tool
// invocation: {success:true,data} or {success:false,error}. Data is
// emitted on success even when it is a zero value, and the error field
// only exists on failure, so marshalling is done by hand.
type CallResult struct {
	Success bool
	Data    any
	Error   string
}

// OK returns a success envelope carrying data.
func OK(data any) CallResult {
	return CallResult{Success: true, Data: data}
}

// Fail returns a failure envelope carrying a message.
func Fail(message string) CallResult {
	return CallResult{Success: false, Error: message}
}

// MarshalJSON emits exactly one of data or error depending on Success.
func (r CallResult) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(struct {
			Success bool `json:"success"`
			Data    any  `json:"data"`
		}{true, r.Data})
	}
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}{false, r.Error})
}

// Session is the server-side record created by an MCP initialize call.
// Sessions carry no authority beyond existence: tool calls are not
// checked against them.
type Session struct {
	ID              string         `json:"id"`
	ProtocolVersion string         `json:"protocol_version"`
	ClientInfo      map[string]any `json:"client_info,omitempty"`
	Initialized     bool           `json:"initialized"`
	CreatedAt       time.Time      `json:"created_at"`
	LastAccessedAt  time.Time      `json:"last_accessed_at"`
}

// ToolCallEvent describes one completed tool invocation for the
// activity feed.
type ToolCallEvent struct {
	Tool       string    `json:"tool"`
	Success    bool      `json:"success"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}
