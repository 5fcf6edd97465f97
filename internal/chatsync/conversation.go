package chatsync

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"chat-app-server/internal/models"
	"chat-app-server/internal/realtime"
	"chat-app-server/internal/service"
)

// Conversation maintains the local view of one open two-party conversation:
// the ordered message list plus the peer's typing flag. It merges REST
// snapshots with pushed events, so the view is authoritative enough for
// rendering while the store stays canonical on the server.
//
// Local state only changes after server confirmation. There is no optimistic
// placeholder to roll back when a call fails.
type Conversation struct {
	api    API
	feed   Feed
	peerID string

	mu         sync.Mutex
	messages   []models.Message
	peerTyping bool
}

// OpenConversation fetches the full history with peerID and subscribes to the
// push events for it. The caller must Close before opening the next
// conversation so handlers never stack across switches.
func OpenConversation(ctx context.Context, api API, feed Feed, peerID string) (*Conversation, error) {
	c := &Conversation{api: api, feed: feed, peerID: peerID}
	if err := c.Resync(ctx); err != nil {
		return nil, err
	}
	c.subscribe()
	return c, nil
}

// Resync replaces local state wholesale with the server's history. This is
// the recovery point after a feed reconnect, since missed events are never
// replayed.
func (c *Conversation) Resync(ctx context.Context) error {
	messages, err := c.api.ListMessages(ctx, c.peerID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.messages = messages
	c.mu.Unlock()
	return nil
}

// subscribe tears down any previous handlers before establishing the new
// ones. Teardown-then-establish ordering keeps rapid conversation switches
// from double-handling events.
func (c *Conversation) subscribe() {
	c.unsubscribe()
	c.feed.On(realtime.EventMessageCreated, c.onCreated)
	c.feed.On(realtime.EventMessageUpdated, c.onUpdated)
	c.feed.On(realtime.EventMessageDeleted, c.onDeleted)
	c.feed.On(realtime.EventTyping, c.onTyping)
	c.feed.On(realtime.EventStopTyping, c.onStopTyping)
}

func (c *Conversation) unsubscribe() {
	c.feed.Off(realtime.EventMessageCreated)
	c.feed.Off(realtime.EventMessageUpdated)
	c.feed.Off(realtime.EventMessageDeleted)
	c.feed.Off(realtime.EventTyping)
	c.feed.Off(realtime.EventStopTyping)
}

// Close tears down all subscriptions and resets the typing flag. The
// conversation must not be used afterwards.
func (c *Conversation) Close() {
	c.unsubscribe()
	c.mu.Lock()
	c.peerTyping = false
	c.mu.Unlock()
}

// Messages returns a snapshot of the local message list, oldest first.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// PeerTyping reports whether the peer is currently typing.
func (c *Conversation) PeerTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerTyping
}

// Send posts a new message and appends the server-confirmed result. It also
// signals stopTyping immediately, matching the input box emptying.
func (c *Conversation) Send(ctx context.Context, content service.Content) (models.Message, error) {
	message, err := c.api.SendMessage(ctx, c.peerID, content)
	if err != nil {
		return models.Message{}, err
	}

	c.mu.Lock()
	c.messages = append(c.messages, message)
	c.mu.Unlock()

	if err := c.feed.Emit(realtime.EventStopTyping, realtime.TypingRequest{ReceiverID: c.peerID}); err != nil {
		log.Printf("chatsync: stopTyping after send: %v", err)
	}
	return message, nil
}

// Edit replaces a message's text on the server and folds the confirmed result
// into local state.
func (c *Conversation) Edit(ctx context.Context, messageID, text string) error {
	message, err := c.api.EditMessage(ctx, messageID, text)
	if err != nil {
		return err
	}
	c.merge(message)
	return nil
}

// Delete soft-deletes a message on the server and flags it locally. The entry
// keeps its position and timestamp so the layout stays stable.
func (c *Conversation) Delete(ctx context.Context, messageID string) error {
	if err := c.api.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	c.markDeleted(messageID)
	return nil
}

// onCreated appends a pushed message, but only when it comes from the open
// conversation's peer. The feed is per-user, so events for other
// conversations arrive here too and must not leak in.
func (c *Conversation) onCreated(data json.RawMessage) {
	var message models.Message
	if err := json.Unmarshal(data, &message); err != nil {
		log.Printf("chatsync: bad message-created payload: %v", err)
		return
	}
	if message.SenderID != c.peerID {
		return
	}
	c.mu.Lock()
	c.messages = append(c.messages, message)
	c.mu.Unlock()
}

func (c *Conversation) onUpdated(data json.RawMessage) {
	var message models.Message
	if err := json.Unmarshal(data, &message); err != nil {
		log.Printf("chatsync: bad message-updated payload: %v", err)
		return
	}
	c.merge(message)
}

func (c *Conversation) onDeleted(data json.RawMessage) {
	var signal realtime.DeletedSignal
	if err := json.Unmarshal(data, &signal); err != nil {
		log.Printf("chatsync: bad message-deleted payload: %v", err)
		return
	}
	c.markDeleted(signal.MessageID)
}

func (c *Conversation) onTyping(data json.RawMessage) {
	c.setTyping(data, true)
}

func (c *Conversation) onStopTyping(data json.RawMessage) {
	c.setTyping(data, false)
}

func (c *Conversation) setTyping(data json.RawMessage, typing bool) {
	var signal realtime.TypingSignal
	if err := json.Unmarshal(data, &signal); err != nil || signal.SenderID != c.peerID {
		return
	}
	c.mu.Lock()
	c.peerTyping = typing
	c.mu.Unlock()
}

// merge updates an existing entry in place by id: text and edited flag only,
// position and the other fields stay untouched. Updates for unknown ids are
// dropped; the next resync reconciles them.
func (c *Conversation) merge(updated models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].ID == updated.ID {
			c.messages[i].Text = updated.Text
			c.messages[i].Edited = updated.Edited
			return
		}
	}
}

func (c *Conversation) markDeleted(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].ID == messageID {
			c.messages[i].Deleted = true
			return
		}
	}
}
