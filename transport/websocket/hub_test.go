package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/service"
)

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	if hub.topics == nil {
		t.Error("Hub topics map is nil")
	}

	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}

	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}

	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)

	client := &Client{
		hub:   hub,
		topic: TopicTools,
		send:  make(chan []byte, 256),
	}

	hub.registerClient(client)

	if _, exists := hub.topics[TopicTools]; !exists {
		t.Error("Topic was not created")
	}

	if !hub.topics[TopicTools][client] {
		t.Error("Client was not registered on topic")
	}

	if len(hub.topics[TopicTools]) != 1 {
		t.Errorf("Expected 1 client on topic, got %d", len(hub.topics[TopicTools]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(nil)

	client := &Client{
		hub:   hub,
		topic: TopicTools,
		send:  make(chan []byte, 256),
	}

	hub.registerClient(client)
	hub.unregisterClient(client)

	// Last subscriber gone, topic entry removed entirely
	if _, exists := hub.topics[TopicTools]; exists {
		t.Error("Topic should have been cleaned up after last client unregistered")
	}

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("Expected send channel closed, got a message")
		}
	default:
		t.Error("Expected send channel closed, got open channel")
	}
}

func TestHubUnregisterUnknownClient(t *testing.T) {
	hub := NewHub(nil)

	client := &Client{
		hub:   hub,
		topic: TopicTools,
		send:  make(chan []byte, 256),
	}

	// Must not panic or close the channel of a client it never saw
	hub.unregisterClient(client)

	select {
	case <-client.send:
		t.Error("Send channel should still be open")
	default:
	}
}

func TestHubMultipleClientsOnTopic(t *testing.T) {
	hub := NewHub(nil)

	client1 := &Client{
		hub:   hub,
		topic: TopicTools,
		send:  make(chan []byte, 256),
	}
	client2 := &Client{
		hub:   hub,
		topic: TopicTools,
		send:  make(chan []byte, 256),
	}

	hub.registerClient(client1)
	hub.registerClient(client2)

	if len(hub.topics[TopicTools]) != 2 {
		t.Errorf("Expected 2 clients on topic, got %d", len(hub.topics[TopicTools]))
	}

	hub.unregisterClient(client1)

	if len(hub.topics[TopicTools]) != 1 {
		t.Errorf("Expected 1 client remaining on topic, got %d", len(hub.topics[TopicTools]))
	}

	if !hub.topics[TopicTools][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub(nil)

	client := &Client{
		hub:   hub,
		topic: TopicTools,
		send:  make(chan []byte, 256),
	}

	hub.registerClient(client)

	hub.broadcastEvent(&Event{
		Topic: TopicTools,
		Event: "tool_call",
		Data:  map[string]any{"tool": "GetText"},
	})

	select {
	case data := <-client.send:
		var event Event
		err := json.Unmarshal(data, &event)
		if err != nil {
			t.Fatalf("Failed to unmarshal event: %v", err)
		}

		if event.Topic != TopicTools {
			t.Errorf("Expected topic %s, got %s", TopicTools, event.Topic)
		}

		if event.Event != "tool_call" {
			t.Errorf("Expected event 'tool_call', got %s", event.Event)
		}

		payload, ok := event.Data.(map[string]any)
		if !ok || payload["tool"] != "GetText" {
			t.Errorf("Event data not correctly transmitted: %v", event.Data)
		}

	case <-time.After(100 * time.Millisecond):
		t.Error("No event received within timeout")
	}
}

func TestHubBroadcastSkipsOtherTopics(t *testing.T) {
	hub := NewHub(nil)

	toolsClient := &Client{
		hub:   hub,
		topic: TopicTools,
		send:  make(chan []byte, 256),
	}
	otherClient := &Client{
		hub:   hub,
		topic: "buffers",
		send:  make(chan []byte, 256),
	}

	hub.registerClient(toolsClient)
	hub.registerClient(otherClient)

	hub.broadcastEvent(&Event{Topic: TopicTools, Event: "tool_call"})

	select {
	case <-toolsClient.send:
	case <-time.After(100 * time.Millisecond):
		t.Error("Tools subscriber received nothing")
	}

	select {
	case data := <-otherClient.send:
		t.Errorf("Subscriber of another topic received %s", data)
	default:
	}
}

func TestHubEvictsSlowConsumer(t *testing.T) {
	hub := NewHub(nil)

	// No buffer and no reader, the first delivery cannot proceed
	slow := &Client{
		hub:   hub,
		topic: TopicTools,
		send:  make(chan []byte),
	}

	hub.registerClient(slow)
	hub.broadcastEvent(&Event{Topic: TopicTools, Event: "tool_call"})

	if _, exists := hub.topics[TopicTools]; exists {
		t.Error("Slow consumer should have been evicted")
	}

	select {
	case _, ok := <-slow.send:
		if ok {
			t.Error("Expected send channel closed, got a message")
		}
	default:
		t.Error("Expected send channel closed, got open channel")
	}
}

func TestPublishDoesNotBlockWhenBacklogFull(t *testing.T) {
	// The hub loop is deliberately not running, nothing drains broadcast
	hub := NewHub(nil)

	done := make(chan bool)
	go func() {
		for i := 0; i < backlog+10; i++ {
			hub.Publish(TopicTools, "tool_call", i)
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full backlog")
	}

	if len(hub.broadcast) != backlog {
		t.Errorf("Expected %d queued events, got %d", backlog, len(hub.broadcast))
	}
}

func TestPublishToolCall(t *testing.T) {
	hub := NewHub(nil)

	hub.PublishToolCall(service.ToolCallEvent{
		Tool:       "GetText",
		Success:    true,
		DurationMS: 3,
		At:         time.Now(),
	})

	select {
	case event := <-hub.broadcast:
		if event.Topic != TopicTools {
			t.Errorf("Expected topic %s, got %s", TopicTools, event.Topic)
		}
		if event.Event != "tool_call" {
			t.Errorf("Expected event 'tool_call', got %s", event.Event)
		}

		payload, ok := event.Data.(service.ToolCallEvent)
		if !ok {
			t.Fatalf("Expected ToolCallEvent data, got %T", event.Data)
		}
		if payload.Tool != "GetText" || !payload.Success {
			t.Errorf("Event payload not correctly transmitted: %+v", payload)
		}

	case <-time.After(100 * time.Millisecond):
		t.Error("No event queued within timeout")
	}
}

func TestWebSocketUpgrade(t *testing.T) {
	hub := NewHub(nil)

	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		topic := r.URL.Query().Get("topic")
		if topic == "" {
			topic = TopicTools
		}
		hub.ServeWS(w, r, topic)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?topic=feed-test"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	// Give some time for registration
	time.Sleep(50 * time.Millisecond)

	if len(hub.topics["feed-test"]) != 1 {
		t.Errorf("Expected 1 client on topic, got %d", len(hub.topics["feed-test"]))
	}

	conn.Close()

	// Give some time for unregistration
	time.Sleep(50 * time.Millisecond)

	if _, exists := hub.topics["feed-test"]; exists {
		t.Error("Topic should have been cleaned up after WebSocket close")
	}
}

func TestWebSocketEventDelivery(t *testing.T) {
	hub := NewHub(nil)

	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, TopicTools)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	// Give time for the connection to register
	time.Sleep(50 * time.Millisecond)

	hub.PublishToolCall(service.ToolCallEvent{
		Tool:       "Open",
		Success:    true,
		DurationMS: 12,
		At:         time.Now(),
	})

	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, messageData, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	var event Event
	if err := json.Unmarshal(messageData, &event); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}

	if event.Topic != TopicTools {
		t.Errorf("Expected topic %s, got %s", TopicTools, event.Topic)
	}
	if event.Event != "tool_call" {
		t.Errorf("Expected event 'tool_call', got %s", event.Event)
	}

	payload, ok := event.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected object data, got %T", event.Data)
	}
	if payload["tool"] != "Open" {
		t.Errorf("Expected tool 'Open', got %v", payload["tool"])
	}
	if payload["success"] != true {
		t.Errorf("Expected success true, got %v", payload["success"])
	}
}
