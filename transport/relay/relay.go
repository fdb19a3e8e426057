// Package relay implements the stdio side of the bridge: newline
// delimited JSON-RPC 2.0 on standard input/output, with every tool
// call forwarded to the editor-side HTTP bridge over loopback.
//
// Standard output is a strict JSON-RPC channel. Diagnostics must go
// through the logger, which callers point at standard error.
package relay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/asiloisad/pulsar-pulsar-mcp/logging"
	"github.com/asiloisad/pulsar-pulsar-mcp/mcp"
)

const (
	// DefaultHost and DefaultPort locate the bridge when the
	// environment does not say otherwise.
	DefaultHost = "127.0.0.1"
	DefaultPort = 3000

	healthTimeout = 2 * time.Second

	// Longest accepted request line.
	maxLineBytes = 1024 * 1024
)

// Config locates the editor-side bridge.
type Config struct {
	Host string
	Port int
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	return c
}

func (c Config) baseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// Relay forwards stdio JSON-RPC traffic to the bridge.
type Relay struct {
	cfg         Config
	probeClient *http.Client
	callClient  *http.Client
	log         *slog.Logger
}

// New creates a relay against cfg. A nil logger discards diagnostics.
func New(cfg Config, log *slog.Logger) *Relay {
	if log == nil {
		log = logging.NewNop()
	}
	return &Relay{
		cfg:         cfg.withDefaults(),
		probeClient: &http.Client{Timeout: healthTimeout},
		// No timeout on forwarded calls: a tool call may block for as
		// long as the editor takes to complete it.
		callClient: &http.Client{},
		log:        log,
	}
}

// Run reads one JSON-RPC request per line from in until EOF, writing
// one response object per line to out. Requests without an id are
// notifications and produce no output at all.
func (r *Relay) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		resp := r.handleLine(ctx, line)
		if resp == nil {
			continue
		}
		if err := writeResponse(out, *resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (r *Relay) handleLine(ctx context.Context, line string) *mcp.Response {
	var req mcp.Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		r.log.Debug("unparseable request line", "error", err)
		resp := mcp.NewError(nil, mcp.CodeParseError, "Parse error")
		return &resp
	}

	if req.Notification() {
		// Fire and forget, even for methods we do not handle.
		return nil
	}

	r.log.Debug("relay request", "method", req.Method)

	var resp mcp.Response
	switch req.Method {
	case "initialize":
		resp = r.initialize(&req)
	case "tools/list":
		resp = r.toolsList(ctx, &req)
	case "tools/call":
		resp = r.toolsCall(ctx, &req)
	default:
		resp = mcp.NewError(req.ID, mcp.CodeMethodNotFound, "Method not found")
	}
	return &resp
}

// initialize answers statically, without contacting the bridge, so
// editors can finish their MCP handshake before the bridge is up.
func (r *Relay) initialize(req *mcp.Request) mcp.Response {
	result := map[string]any{
		"protocolVersion": mcp.ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": mcpgo.Implementation{Name: mcp.ServerName, Version: mcp.ServerVersion},
	}
	return mcp.NewResult(req.ID, result)
}

func (r *Relay) toolsList(ctx context.Context, req *mcp.Request) mcp.Response {
	if !r.bridgeReachable(ctx) {
		return r.unreachable(req.ID)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.baseURL()+"/tools", nil)
	if err != nil {
		return mcp.NewError(req.ID, mcp.CodeInternalError, err.Error())
	}
	resp, err := r.callClient.Do(httpReq)
	if err != nil {
		return r.unreachable(req.ID)
	}
	defer resp.Body.Close()

	// The bridge's list passes through verbatim.
	var payload struct {
		Tools json.RawMessage `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return mcp.NewError(req.ID, mcp.CodeInternalError, fmt.Sprintf("invalid tools response from bridge: %v", err))
	}
	tools := payload.Tools
	if tools == nil {
		tools = json.RawMessage("[]")
	}
	return mcp.NewResult(req.ID, map[string]any{"tools": tools})
}

func (r *Relay) toolsCall(ctx context.Context, req *mcp.Request) mcp.Response {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return mcp.NewError(req.ID, mcp.CodeInvalidParams, "Invalid params")
		}
	}
	if params.Name == "" {
		return mcp.NewError(req.ID, mcp.CodeInvalidParams, "Invalid params")
	}

	if !r.bridgeReachable(ctx) {
		return r.unreachable(req.ID)
	}

	data, err := r.callTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return mcp.NewError(req.ID, mcp.CodeInternalError, err.Error())
	}

	pretty, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		pretty = []byte(fmt.Sprintf("%v", data))
	}
	return mcp.NewResult(req.ID, mcpgo.NewToolResultText(string(pretty)))
}

// callTool forwards one execution to the bridge's REST surface. A
// non-2xx status or a {success:false} envelope surfaces as an error
// carrying the bridge's own message.
func (r *Relay) callTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/tools/%s", r.cfg.baseURL(), name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.callClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("bridge error: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("invalid response from bridge: %w", err)
	}

	if resp.StatusCode >= 400 || !envelope.Success {
		if envelope.Error != "" {
			return nil, fmt.Errorf("%s", envelope.Error)
		}
		return nil, fmt.Errorf("bridge error: %d", resp.StatusCode)
	}

	var data any
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, fmt.Errorf("invalid response from bridge: %w", err)
		}
	}
	return data, nil
}

// bridgeReachable probes GET /health before any forwarded call so a
// dead bridge yields one actionable error instead of a transport
// failure mid-request.
func (r *Relay) bridgeReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.baseURL()+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := r.probeClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

func (r *Relay) unreachable(id json.RawMessage) mcp.Response {
	msg := fmt.Sprintf(
		"Pulsar bridge is not reachable at %s:%d. Make sure the editor-side bridge is running and that PULSAR_MCP_HOST/PULSAR_MCP_PORT point at it.",
		r.cfg.Host, r.cfg.Port)
	return mcp.NewError(id, mcp.CodeInternalError, msg)
}

func writeResponse(out io.Writer, resp mcp.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}
