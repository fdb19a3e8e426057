// Package api exposes the bridge over HTTP: the MCP JSON-RPC endpoint,
// the REST convenience surface and the WebSocket activity feed.
//
// Endpoints:
//
// MCP:
//   - POST /mcp - JSON-RPC 2.0 endpoint, single request or batch
//   - DELETE /mcp - terminate the session named by Mcp-Session-Id (204 always)
//
// REST convenience surface:
//   - GET /health - liveness, {status:"ok", timestamp:<epoch ms>}
//   - GET /tools - built-in plus external tool metadata
//   - POST /tools/{ToolName} - direct execution, JSON body = arguments
//
// Activity feed:
//   - GET /ws?topic=tools - WebSocket upgrade
//
// Tool names on the REST route start with an uppercase letter followed
// by letters only; anything else is a 404.
//
// Request/Response Format:
//
// Direct tool execution returns the bridge's result envelope with the
// HTTP status tracking the outcome:
//
//	200 {"success": true, "data": ...}
//	400 {"success": false, "error": "message"}
//
// The MCP endpoint answers 200 with a JSON-RPC response (or array for
// batches), 202 with an empty body when every element was a
// notification, and 400 with a -32700 error when the body does not
// parse. An initialize call surfaces its new session id in the
// Mcp-Session-Id response header.
//
// Error Handling:
//
// Every response carries Access-Control-Allow-Origin: *, and OPTIONS
// preflights answer 204 for any path. A panic while routing becomes a
// 500 carrying the panic message:
//
//	{"error": "message"}
//
// Tool-level failures are never HTTP transport errors; they stay
// inside the result envelope.
package api
