// Package mcp implements the bridge-side Model Context Protocol
// handler: JSON-RPC 2.0 dispatch for initialize, notifications/
// initialized, tools/list, tools/call and ping, plus batch semantics.
//
// The handler is transport-agnostic: it consumes a raw request body
// and produces a Reply that the HTTP layer turns into a response. MCP
// here is request-scoped, not connection-scoped, so there is no
// per-connection state beyond the session store.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/service"
	"github.com/asiloisad/pulsar-pulsar-mcp/logging"
)

const (
	// ServerName and ServerVersion identify the bridge in initialize
	// responses. The stdio relay reports the same identity so clients
	// see one server regardless of transport.
	ServerName    = "pulsar-mcp"
	ServerVersion = "1.0.0"

	// ProtocolVersion is offered when the client does not request one.
	ProtocolVersion = "2024-11-05"
)

// Reply is the transport-level outcome of handling one request body.
// A nil Body with StatusAccepted means "pure notification, no payload".
// SessionID, when non-empty, must be surfaced as the Mcp-Session-Id
// response header.
type Reply struct {
	Status    int
	Body      []byte
	SessionID string
}

// Handler dispatches JSON-RPC requests against the bridge service.
type Handler struct {
	svc      service.BridgeService
	sessions service.SessionStore
	info     mcp.Implementation
	log      *slog.Logger
}

// NewHandler wires a protocol handler to the tool service and session
// store. A nil logger disables protocol logging.
func NewHandler(svc service.BridgeService, sessions service.SessionStore, log *slog.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{
		svc:      svc,
		sessions: sessions,
		info:     mcp.Implementation{Name: ServerName, Version: ServerVersion},
		log:      log,
	}
}

// HandleBody processes one POST /mcp body, single object or batch.
// headerSession is the Mcp-Session-Id request header, empty if absent.
func (h *Handler) HandleBody(ctx context.Context, body []byte, headerSession string) Reply {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return h.parseErrorReply()
	}
	if trimmed[0] == '[' {
		return h.handleBatch(ctx, trimmed, headerSession)
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return h.parseErrorReply()
	}
	resp, sessionID := h.dispatch(ctx, &req, headerSession)
	if resp == nil {
		return Reply{Status: 202, SessionID: sessionID}
	}
	return Reply{Status: 200, Body: marshalReply(*resp), SessionID: sessionID}
}

// handleBatch dispatches every element concurrently and joins before
// replying. Response order matches input order; notifications produce
// no entry. When every element was a notification the reply is a bare
// 202. When several initialize calls share a batch, the last one's
// session id wins the header.
func (h *Handler) handleBatch(ctx context.Context, body []byte, headerSession string) Reply {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return h.parseErrorReply()
	}

	type slot struct {
		resp      *Response
		sessionID string
	}
	slots := make([]slot, len(raws))

	var wg sync.WaitGroup
	for i, raw := range raws {
		wg.Add(1)
		go func(i int, raw json.RawMessage) {
			defer wg.Done()
			var req Request
			if err := json.Unmarshal(raw, &req); err != nil {
				resp := NewError(nil, CodeInvalidRequest, "Invalid Request")
				slots[i] = slot{resp: &resp}
				return
			}
			resp, sessionID := h.dispatch(ctx, &req, headerSession)
			slots[i] = slot{resp: resp, sessionID: sessionID}
		}(i, raw)
	}
	wg.Wait()

	responses := make([]Response, 0, len(slots))
	sessionID := ""
	for _, s := range slots {
		if s.resp != nil {
			responses = append(responses, *s.resp)
		}
		if s.sessionID != "" {
			sessionID = s.sessionID
		}
	}
	if len(responses) == 0 {
		return Reply{Status: 202, SessionID: sessionID}
	}
	body, err := json.Marshal(responses)
	if err != nil {
		resp := NewError(nil, CodeInternalError, "Internal error")
		return Reply{Status: 200, Body: marshalReply(resp), SessionID: sessionID}
	}
	return Reply{Status: 200, Body: body, SessionID: sessionID}
}

// dispatch routes one request. A nil response means notification: the
// caller must not emit a body for it. The returned session id is
// non-empty only for initialize.
func (h *Handler) dispatch(ctx context.Context, req *Request, headerSession string) (*Response, string) {
	if req.JSONRPC != "2.0" {
		return respond(req, NewError(req.ID, CodeInvalidRequest, "Invalid Request")), ""
	}

	h.log.Debug("mcp request", "method", req.Method, "notification", req.Notification())

	switch req.Method {
	case "initialize":
		return h.initialize(req)
	case "notifications/initialized":
		if headerSession != "" {
			if err := h.sessions.MarkInitialized(headerSession); err != nil {
				h.log.Debug("initialized for unknown session", "session_id", headerSession)
			}
		}
		return nil, ""
	case "tools/list":
		result := map[string]any{"tools": h.svc.ListTools(ctx)}
		return respond(req, NewResult(req.ID, result)), ""
	case "tools/call":
		return respond(req, h.toolsCall(ctx, req)), ""
	case "ping":
		return respond(req, NewResult(req.ID, map[string]any{})), ""
	default:
		return respond(req, NewError(req.ID, CodeMethodNotFound, "Method not found")), ""
	}
}

func (h *Handler) initialize(req *Request) (*Response, string) {
	var params struct {
		ProtocolVersion string         `json:"protocolVersion"`
		ClientInfo      map[string]any `json:"clientInfo"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return respond(req, NewError(req.ID, CodeInvalidParams, "Invalid params")), ""
		}
	}
	version := params.ProtocolVersion
	if version == "" {
		version = ProtocolVersion
	}

	sess := h.sessions.Create(version, params.ClientInfo)
	h.log.Debug("session created", "session_id", sess.ID, "protocol_version", version)

	result := map[string]any{
		"protocolVersion": version,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": h.info,
	}
	return respond(req, NewResult(req.ID, result)), sess.ID
}

func (h *Handler) toolsCall(ctx context.Context, req *Request) Response {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return NewError(req.ID, CodeInvalidParams, "Invalid params")
		}
	}
	if params.Name == "" {
		return NewError(req.ID, CodeInvalidParams, "Invalid params")
	}

	res := h.svc.Execute(ctx, params.Name, params.Arguments)
	return NewResult(req.ID, ToolResult(res))
}

// ToolResult wraps an execution envelope into MCP's content format.
// Tool-level failures are never protocol errors: both outcomes become
// a single text content block with an explicit isError marker. Success
// data is pretty-printed JSON so agent clients get readable payloads.
func ToolResult(res service.CallResult) map[string]any {
	if res.Success {
		pretty, err := json.MarshalIndent(res.Data, "", "  ")
		if err != nil {
			pretty = []byte(fmt.Sprintf("%v", res.Data))
		}
		return map[string]any{
			"content": []map[string]any{{"type": "text", "text": string(pretty)}},
			"isError": false,
		}
	}
	msg := res.Error
	if msg == "" {
		msg = "Tool execution failed"
	}
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": msg}},
		"isError": true,
	}
}

// respond drops responses to notifications. Side effects (session
// creation, tool execution) still happen for them, there is just no
// body to return.
func respond(req *Request, resp Response) *Response {
	if req.Notification() {
		return nil
	}
	return &resp
}

func (h *Handler) parseErrorReply() Reply {
	resp := NewError(nil, CodeParseError, "Parse error")
	return Reply{Status: 400, Body: marshalReply(resp)}
}

func marshalReply(resp Response) []byte {
	body, err := json.Marshal(resp)
	if err != nil {
		// Responses are built from plain maps and strings, this is
		// unreachable in practice.
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"Internal error"}}`)
	}
	return body
}
