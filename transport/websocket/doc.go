// Package websocket provides the bridge's activity feed.
//
// The package implements:
//   - Topic-keyed fan-out of bridge events to WebSocket subscribers
//   - One event per tool invocation on the "tools" topic
//   - Connection lifecycle management with ping/pong keepalive
//   - Slow-consumer eviction instead of backpressure
//
// Architecture:
//
// A central Hub owns the subscriber sets. Each connection gets a read
// and a write goroutine; all subscriber-map mutation happens on the
// hub's Run goroutine, so publishers never take a lock.
//
// Message Protocol:
//
// Events are JSON-encoded envelopes:
//
//	{"topic": "tools", "event": "tool_call", "data": {...}}
//
// For tool_call events, data carries the tool name, success flag,
// duration in milliseconds and the error message on failure.
//
// Subscribers never send anything the hub acts on; the feed is
// one-way diagnostics.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run()
//
//	// as service.ActivityPublisher, wired into the executor
//	exec := executor.New(builtins, external, hub, logger)
//
// Delivery:
//
// The feed is best-effort. Publishing never blocks a tool call:
// events beyond the backlog are dropped, and subscribers that stop
// reading are evicted.
package websocket
