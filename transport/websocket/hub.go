package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/service"
	"github.com/asiloisad/pulsar-pulsar-mcp/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Pending events per topic before Publish starts dropping.
	backlog = 64
)

// TopicTools carries one event per tool invocation.
const TopicTools = "tools"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The bridge binds loopback and serves CORS *; the feed is
		// open to match.
		return true
	},
}

// Event is the envelope broadcast to feed subscribers.
type Event struct {
	Topic string `json:"topic"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client is one subscribed WebSocket connection.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic string
}

// Hub maintains the set of subscribers per topic and fans events out
// to them. All map mutation happens on the Run goroutine; Publish only
// ever touches the broadcast channel, so callers never race the loop.
type Hub struct {
	topics map[string]map[*Client]bool

	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client

	log *slog.Logger
}

var _ service.ActivityPublisher = (*Hub)(nil)

// NewHub creates an activity feed hub. Run must be started for events
// to flow.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = logging.NewNop()
	}
	return &Hub{
		topics:     make(map[string]map[*Client]bool),
		broadcast:  make(chan *Event, backlog),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// ServeWS upgrades an HTTP request into a feed subscription on topic.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, topic string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 256),
		topic: topic,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// Publish queues an event for every subscriber of topic. The feed is
// diagnostics, not a durable stream: when the backlog is full the
// event is dropped rather than blocking the caller.
func (h *Hub) Publish(topic, event string, data any) {
	msg := &Event{Topic: topic, Event: event, Data: data}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Debug("activity feed backlog full, dropping event", "topic", topic, "event", event)
	}
}

// PublishToolCall emits one entry on the tools topic per execution.
func (h *Hub) PublishToolCall(ev service.ToolCallEvent) {
	h.Publish(TopicTools, "tool_call", ev)
}

func (h *Hub) registerClient(client *Client) {
	if h.topics[client.topic] == nil {
		h.topics[client.topic] = make(map[*Client]bool)
	}
	h.topics[client.topic][client] = true

	h.log.Debug("feed client subscribed", "topic", client.topic, "subscribers", len(h.topics[client.topic]))
}

func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.topics[client.topic]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.topics, client.topic)
			}

			h.log.Debug("feed client unsubscribed", "topic", client.topic, "subscribers", len(clients))
		}
	}
}

func (h *Hub) broadcastEvent(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("failed to marshal feed event", "error", err)
		return
	}

	if clients, ok := h.topics[event.Topic]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				// Slow consumer, evict it.
				h.unregisterClient(client)
			}
		}
	}
}

// readPump drains the connection so pings and closes are processed.
// Subscribers never send anything the hub acts on.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("feed connection closed", "error", err)
			}
			break
		}
	}
}

// writePump pumps queued events to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Fold queued events into the current frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
