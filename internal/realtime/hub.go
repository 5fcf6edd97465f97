package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-app-server/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 45 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Hub owns the per-user connections and delivers push events. Notify is
// best-effort: no live entry, a full send buffer or a write failure all
// result in the event being dropped, never queued or retried. A client that
// misses events resynchronizes through the REST history fetch.
type Hub struct {
	registry Registry
	upgrader websocket.Upgrader
}

// NewHub creates a Hub on top of the given registry.
func NewHub(registry Registry) *Hub {
	return &Hub{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin access is governed by the token handshake, not by
			// the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Connect upgrades the request to a websocket for the authenticated user and
// starts the read/write pumps. If the user already has a live connection it is
// closed and replaced.
func (h *Hub) Connect(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		UserID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}

	if old := h.registry.Register(userID, client); old != nil {
		old.close()
	}
	metrics.Connections.Inc()
	log.Printf("websocket connected: user=%s", userID)

	go client.writePump()
	go client.readPump()
	return nil
}

// Notify pushes an event to userID's live connection, if any. Absence of a
// connection is a silent no-op.
func (h *Hub) Notify(userID string, event string, payload interface{}) {
	client, ok := h.registry.Lookup(userID)
	if !ok {
		metrics.PushDropped.Inc()
		return
	}

	msg, err := MarshalEnvelope(event, payload)
	if err != nil {
		log.Printf("failed to marshal %s event: %v", event, err)
		return
	}

	if !client.enqueue(msg) {
		// Slow or dead consumer: drop the connection so the user reconnects
		// with a clean slate instead of receiving a partial stream.
		metrics.PushDropped.Inc()
		client.close()
		return
	}
	metrics.PushEvents.WithLabelValues(event).Inc()
}

// Client is one live websocket connection for one user.
type Client struct {
	UserID string

	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()

		c.hub.registry.Unregister(c.UserID, c)
		metrics.Connections.Dec()
		c.conn.Close()
		log.Printf("websocket disconnected: user=%s", c.UserID)
	})
}

// readPump consumes client envelopes. Typing signals are the only thing a
// client sends over the socket; everything durable goes through REST. They are
// relayed straight to the receiver's connection with the sender identity
// swapped in, and are never persisted.
func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("invalid envelope from user %s: %v", c.UserID, err)
			continue
		}

		switch env.Event {
		case EventTyping, EventStopTyping:
			var req TypingRequest
			if err := json.Unmarshal(env.Data, &req); err != nil || req.ReceiverID == "" {
				continue
			}
			c.hub.Notify(req.ReceiverID, env.Event, TypingSignal{SenderID: c.UserID})
		default:
			log.Printf("ignoring unknown event %q from user %s", env.Event, c.UserID)
		}
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
