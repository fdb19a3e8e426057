// Command pulsar-mcp runs the MCP bridge for the Pulsar editor.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP bridge exposing the MCP
//     endpoint, the REST tool surface and the WebSocket activity feed
//  2. "stdio" – runs the stdio relay, reusing a running bridge when
//     one answers on the configured port and starting an internal one
//     otherwise
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/asiloisad/pulsar-pulsar-mcp/api"
	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/catalog"
	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/executor"
	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/registry"
	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/session"
	"github.com/asiloisad/pulsar-pulsar-mcp/editor"
	"github.com/asiloisad/pulsar-pulsar-mcp/logging"
	"github.com/asiloisad/pulsar-pulsar-mcp/mcp"
	"github.com/asiloisad/pulsar-pulsar-mcp/transport/relay"
	"github.com/asiloisad/pulsar-pulsar-mcp/transport/websocket"
)

func main() {
	// Load .env if present, matching how the editor package boots.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	root := &cli.Command{
		Name:    mcp.ServerName,
		Usage:   "MCP bridge between AI-agent clients and the Pulsar editor",
		Version: mcp.ServerVersion,
		Flags:   commonFlags(),
		Action:  runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP bridge (MCP endpoint, REST surface, activity feed)",
				Flags:  commonFlags(),
				Action: runServe,
			},
			{
				Name:   "stdio",
				Usage:  "run the stdio relay, starting an internal bridge when none is reachable",
				Flags:  commonFlags(),
				Action: runStdio,
			},
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   relay.DefaultHost,
			Usage:   "bridge host",
			Sources: cli.EnvVars("PULSAR_MCP_HOST"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   relay.DefaultPort,
			Usage:   "bridge port (serve probes upward from here)",
			Sources: cli.EnvVars("PULSAR_MCP_PORT"),
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "enable debug logging",
			Sources: cli.EnvVars("PULSAR_MCP_DEBUG"),
		},
		&cli.BoolFlag{
			Name:    "log-json",
			Usage:   "write logs as JSON instead of text",
			Sources: cli.EnvVars("PULSAR_MCP_LOG_JSON"),
		},
	}
}

// newLogger builds the process logger. Logs always go to stderr so
// stdio mode keeps stdout as a strict JSON-RPC channel.
func newLogger(cmd *cli.Command) *slog.Logger {
	level := "info"
	if cmd.Bool("debug") {
		level = "debug"
	}
	return logging.New(logging.Config{Level: level, JSON: cmd.Bool("log-json")})
}

// bridgeParts holds everything one bridge instance is wired from.
type bridgeParts struct {
	server   *api.Server
	sessions *session.Manager
	external *catalog.Catalog
	hub      *websocket.Hub
}

// buildBridge wires the built-in tool set over an in-process workspace,
// the external tool catalog, the executor and the HTTP surface.
func buildBridge(log *slog.Logger) *bridgeParts {
	builtins := registry.New()
	editor.RegisterBuiltins(builtins, editor.NewWorkspace())

	external := catalog.New()

	hub := websocket.NewHub(log)
	go hub.Run()

	sessions := session.NewManager()
	exec := executor.New(builtins, external, hub, log)
	server := api.NewServer(exec, sessions, hub, log)

	return &bridgeParts{server: server, sessions: sessions, external: external, hub: hub}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	log := newLogger(cmd)
	host := cmd.String("host")
	port := int(cmd.Int("port"))

	parts := buildBridge(log)
	go sessionCleanupRoutine(parts.sessions, log)

	bridge, err := api.Start(parts.server, host, port, api.DefaultMaxPortAttempts)
	if err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}

	log.Info("bridge ready",
		"mcp", fmt.Sprintf("http://%s:%d/mcp", bridge.Host, bridge.Port),
		"tools", fmt.Sprintf("http://%s:%d/tools", bridge.Host, bridge.Port),
		"feed", fmt.Sprintf("ws://%s:%d/ws", bridge.Host, bridge.Port))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := bridge.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("bridge shutdown: %w", err)
	}
	log.Info("bridge stopped")
	return nil
}

func runStdio(ctx context.Context, cmd *cli.Command) error {
	log := newLogger(cmd)
	host := cmd.String("host")
	port := int(cmd.Int("port"))

	cfg := relay.Config{Host: host, Port: port}

	// Reuse a running editor-side bridge when one answers; otherwise
	// start an internal one so the relay works standalone.
	if bridgeResponding(host, port) {
		log.Info("using running bridge", "host", host, "port", port)
	} else {
		log.Info("no bridge reachable, starting internal bridge", "host", host, "port", port)

		parts := buildBridge(log)
		go sessionCleanupRoutine(parts.sessions, log)

		bridge, err := api.Start(parts.server, host, port, api.DefaultMaxPortAttempts)
		if err != nil {
			return fmt.Errorf("failed to start internal bridge: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := bridge.Stop(shutdownCtx); err != nil {
				log.Warn("internal bridge shutdown", "error", err)
			}
		}()

		// The probe may have moved past the requested port.
		cfg.Host = bridge.Host
		cfg.Port = bridge.Port

		// Give the listener a moment before the first health probe.
		time.Sleep(100 * time.Millisecond)
	}

	log.Info("relay ready", "host", cfg.Host, "port", cfg.Port)
	return relay.New(cfg, log).Run(ctx, os.Stdin, os.Stdout)
}

// bridgeResponding mirrors the relay's health probe for startup.
func bridgeResponding(host string, port int) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s:%d/health", host, port))
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// sessionCleanupRoutine prunes sessions that have not been touched
// within the retention window.
func sessionCleanupRoutine(sessions *session.Manager, log *slog.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if removed := sessions.CleanupExpired(24 * time.Hour); removed > 0 {
			log.Info("cleaned up expired sessions", "count", removed)
		}
	}
}
