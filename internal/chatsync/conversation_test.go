package chatsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-app-server/internal/models"
	"chat-app-server/internal/realtime"
	"chat-app-server/internal/service"
)

// fakeFeed dispatches events synchronously to whatever handler is registered,
// standing in for the websocket feed.
type fakeFeed struct {
	mu       sync.Mutex
	handlers map[string]Handler
	emitted  []realtime.Envelope
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{handlers: make(map[string]Handler)}
}

func (f *fakeFeed) On(event string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = h
}

func (f *fakeFeed) Off(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, event)
}

func (f *fakeFeed) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, realtime.Envelope{Event: event, Data: data})
	return nil
}

// push simulates a server event arriving on the feed.
func (f *fakeFeed) push(t *testing.T, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	f.mu.Lock()
	h := f.handlers[event]
	f.mu.Unlock()
	if h != nil {
		h(data)
	}
}

type fakeAPI struct {
	history  []models.Message
	sendErr  error
	sent     []models.Message
	nextID   int
	editErr  error
	deleted  []string
	listHits int
}

func (a *fakeAPI) ListPeers(ctx context.Context) ([]models.UserSanitized, error) {
	return nil, nil
}

func (a *fakeAPI) ListMessages(ctx context.Context, peerID string) ([]models.Message, error) {
	a.listHits++
	out := make([]models.Message, len(a.history))
	copy(out, a.history)
	return out, nil
}

func (a *fakeAPI) SendMessage(ctx context.Context, peerID string, content service.Content) (models.Message, error) {
	if a.sendErr != nil {
		return models.Message{}, a.sendErr
	}
	a.nextID++
	msg := models.Message{
		SenderID:   "self",
		ReceiverID: peerID,
		Text:       content.Text,
	}
	msg.ID = string(rune('a' + a.nextID - 1))
	a.sent = append(a.sent, msg)
	return msg, nil
}

func (a *fakeAPI) EditMessage(ctx context.Context, messageID, text string) (models.Message, error) {
	if a.editErr != nil {
		return models.Message{}, a.editErr
	}
	msg := models.Message{Text: text, Edited: true}
	msg.ID = messageID
	return msg, nil
}

func (a *fakeAPI) DeleteMessage(ctx context.Context, messageID string) error {
	a.deleted = append(a.deleted, messageID)
	return nil
}

func message(id, sender, text string) models.Message {
	m := models.Message{SenderID: sender, Text: text}
	m.ID = id
	return m
}

func openTestConversation(t *testing.T, api *fakeAPI) (*Conversation, *fakeFeed) {
	t.Helper()
	feed := newFakeFeed()
	conv, err := OpenConversation(context.Background(), api, feed, "peer")
	require.NoError(t, err)
	return conv, feed
}

func TestOpenReplacesLocalStateWithHistory(t *testing.T) {
	api := &fakeAPI{history: []models.Message{
		message("m1", "peer", "hello"),
		message("m2", "self", "hi back"),
	}}
	conv, _ := openTestConversation(t, api)

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, 1, api.listHits)
}

func TestPushedCreateAppendsOnlyFromOpenPeer(t *testing.T) {
	conv, feed := openTestConversation(t, &fakeAPI{})

	feed.push(t, realtime.EventMessageCreated, message("m1", "peer", "for you"))
	// The feed is per-user, not per-conversation: a message from someone else
	// must not leak into this view.
	feed.push(t, realtime.EventMessageCreated, message("m2", "somebody-else", "wrong chat"))

	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
}

func TestPushedUpdateMergesInPlace(t *testing.T) {
	api := &fakeAPI{history: []models.Message{
		message("m1", "peer", "first"),
		message("m2", "peer", "secnod"),
	}}
	conv, feed := openTestConversation(t, api)

	updated := message("m2", "peer", "second")
	updated.Edited = true
	feed.push(t, realtime.EventMessageUpdated, updated)

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[1].ID, "position must not change")
	assert.Equal(t, "second", msgs[1].Text)
	assert.True(t, msgs[1].Edited)
}

func TestPushedDeleteFlagsWithoutRemoving(t *testing.T) {
	api := &fakeAPI{history: []models.Message{
		message("m1", "peer", "one"),
		message("m2", "peer", "two"),
	}}
	conv, feed := openTestConversation(t, api)

	feed.push(t, realtime.EventMessageDeleted, realtime.DeletedSignal{MessageID: "m1"})

	msgs := conv.Messages()
	require.Len(t, msgs, 2, "deleted messages keep their slot")
	assert.True(t, msgs[0].Deleted)
	assert.False(t, msgs[1].Deleted)
}

func TestTypingFlagStateMachine(t *testing.T) {
	conv, feed := openTestConversation(t, &fakeAPI{})
	assert.False(t, conv.PeerTyping())

	feed.push(t, realtime.EventTyping, realtime.TypingSignal{SenderID: "peer"})
	assert.True(t, conv.PeerTyping())

	// No new message appeared, only the flag moved.
	assert.Empty(t, conv.Messages())

	feed.push(t, realtime.EventStopTyping, realtime.TypingSignal{SenderID: "peer"})
	assert.False(t, conv.PeerTyping())

	// Signals from other users never touch the flag.
	feed.push(t, realtime.EventTyping, realtime.TypingSignal{SenderID: "somebody-else"})
	assert.False(t, conv.PeerTyping())
}

func TestCloseTearsDownSubscriptionsAndTypingFlag(t *testing.T) {
	conv, feed := openTestConversation(t, &fakeAPI{})
	feed.push(t, realtime.EventTyping, realtime.TypingSignal{SenderID: "peer"})
	require.True(t, conv.PeerTyping())

	conv.Close()
	assert.False(t, conv.PeerTyping(), "switching away resets the flag")

	// Events after close go nowhere.
	feed.push(t, realtime.EventMessageCreated, message("m1", "peer", "late"))
	assert.Empty(t, conv.Messages())
}

func TestSwitchingConversationsDoesNotStackHandlers(t *testing.T) {
	feed := newFakeFeed()
	first, err := OpenConversation(context.Background(), &fakeAPI{}, feed, "peer")
	require.NoError(t, err)
	first.Close()

	second, err := OpenConversation(context.Background(), &fakeAPI{}, feed, "peer")
	require.NoError(t, err)

	feed.push(t, realtime.EventMessageCreated, message("m1", "peer", "once"))
	assert.Len(t, second.Messages(), 1, "exactly one handler may fire per event")
	assert.Empty(t, first.Messages())
}

func TestSendAppendsConfirmedMessageAndStopsTyping(t *testing.T) {
	api := &fakeAPI{}
	conv, feed := openTestConversation(t, api)

	sent, err := conv.Send(context.Background(), service.Content{Text: "hi"})
	require.NoError(t, err)

	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, sent.ID, msgs[0].ID)

	require.NotEmpty(t, feed.emitted)
	assert.Equal(t, realtime.EventStopTyping, feed.emitted[len(feed.emitted)-1].Event)
}

func TestFailedSendLeavesLocalStateUnchanged(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("boom")}
	conv, _ := openTestConversation(t, api)

	_, err := conv.Send(context.Background(), service.Content{Text: "hi"})
	require.Error(t, err)
	assert.Empty(t, conv.Messages(), "no optimistic state to roll back")
}

func TestLocalEditAndDeleteFoldIntoState(t *testing.T) {
	api := &fakeAPI{history: []models.Message{
		message("m1", "self", "tpyo"),
		message("m2", "self", "keep me"),
	}}
	conv, _ := openTestConversation(t, api)

	require.NoError(t, conv.Edit(context.Background(), "m1", "typo"))
	msgs := conv.Messages()
	assert.Equal(t, "typo", msgs[0].Text)
	assert.True(t, msgs[0].Edited)

	require.NoError(t, conv.Delete(context.Background(), "m2"))
	msgs = conv.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].Deleted)
	assert.Equal(t, []string{"m2"}, api.deleted)
}
