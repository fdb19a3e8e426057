package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Bridge is the handle for one running bridge listener. Exactly one
// bridge is expected per editor process; a bridge is never restarted
// in place, stopping it and starting again yields a fresh handle.
type Bridge struct {
	Port int
	Host string

	server *http.Server
}

// Start probes for a free port at or above port, binds the listener
// and begins serving in the background. A probe-to-bind race surfaces
// as an error from Start, not a crash.
func Start(server *Server, host string, port, maxAttempts int) (*Bridge, error) {
	boundPort, err := FindAvailablePort(port, host, maxAttempts)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(host, strconv.Itoa(boundPort))
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server,
		// No WriteTimeout: a tool call may block for as long as the
		// editor takes to complete it, and the request blocks with it.
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	b := &Bridge{
		Port:   boundPort,
		Host:   host,
		server: httpServer,
	}

	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			server.log.Error("bridge serve failed", "error", err)
		}
	}()

	server.log.Info("bridge listening", "host", host, "port", boundPort)
	return b, nil
}

// Stop closes the listener gracefully, waiting for in-flight requests
// to finish and propagating any close error to the caller.
func (b *Bridge) Stop(ctx context.Context) error {
	return b.server.Shutdown(ctx)
}
