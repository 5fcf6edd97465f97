package chatsync

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"chat-app-server/internal/realtime"
)

// Handler consumes the raw payload of one push event.
type Handler func(data json.RawMessage)

// Feed is the push half of the protocol: at-most-once event delivery while
// connected, no replay after a reconnect. One handler per event name,
// mirroring the per-conversation subscription lifecycle.
type Feed interface {
	On(event string, h Handler)
	Off(event string)
	Emit(event string, payload interface{}) error
}

// WSFeed implements Feed over the server's /ws endpoint.
type WSFeed struct {
	conn *websocket.Conn

	mu       sync.Mutex
	handlers map[string]Handler

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// DialFeed connects to the server's realtime channel using the given access
// token and starts dispatching incoming events.
func DialFeed(ctx context.Context, baseURL, token string) (*WSFeed, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	f := &WSFeed{
		conn:     conn,
		handlers: make(map[string]Handler),
	}
	go f.readLoop()
	return f, nil
}

// On registers the handler for an event, replacing any previous one.
func (f *WSFeed) On(event string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = h
}

// Off removes the handler for an event.
func (f *WSFeed) Off(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, event)
}

// Emit sends an event to the server. Only ephemeral signals (typing) travel
// this way; durable operations go through the API.
func (f *WSFeed) Emit(event string, payload interface{}) error {
	msg, err := realtime.MarshalEnvelope(event, payload)
	if err != nil {
		return err
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	return f.conn.WriteMessage(websocket.TextMessage, msg)
}

// Close shuts the feed down. Pending handlers are not flushed; the caller is
// expected to resynchronize over REST when it reconnects.
func (f *WSFeed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		err = f.conn.Close()
	})
	return err
}

func (f *WSFeed) readLoop() {
	defer f.Close()
	for {
		_, raw, err := f.conn.ReadMessage()
		if err != nil {
			return
		}

		var env realtime.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("chatsync: dropping malformed event: %v", err)
			continue
		}

		f.mu.Lock()
		h := f.handlers[env.Event]
		f.mu.Unlock()
		if h != nil {
			h(env.Data)
		}
	}
}

var _ Feed = (*WSFeed)(nil)
