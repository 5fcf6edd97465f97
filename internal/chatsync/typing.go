package chatsync

import (
	"log"
	"sync"
	"time"

	"chat-app-server/internal/realtime"
)

// TypingIdleInterval is how long after the last keystroke the notifier emits
// stopTyping on its own.
const TypingIdleInterval = 1200 * time.Millisecond

// TypingNotifier debounces the sender side of the typing indicator. Every
// keystroke signals typing and re-arms the idle timer; the timer, a send, or
// an explicit Flush emit stopTyping. The receiving side has no timeout of its
// own, so this debounce is what keeps a peer from being stuck as "typing".
type TypingNotifier struct {
	feed   Feed
	peerID string
	idle   time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	active bool
}

// NewTypingNotifier creates a notifier for one conversation peer.
func NewTypingNotifier(feed Feed, peerID string) *TypingNotifier {
	return &TypingNotifier{feed: feed, peerID: peerID, idle: TypingIdleInterval}
}

// Keystroke signals that the user typed. It emits typing and (re)arms the
// idle timer that will emit stopTyping.
func (t *TypingNotifier) Keystroke() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.emit(realtime.EventTyping)
	t.active = true

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.idle, t.Flush)
}

// Flush emits stopTyping immediately if a typing signal is outstanding.
// Called on message send and by the idle timer.
func (t *TypingNotifier) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return
	}
	t.active = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.emit(realtime.EventStopTyping)
}

// Stop cancels the pending timer without emitting anything, for tearing the
// conversation down.
func (t *TypingNotifier) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.active = false
}

func (t *TypingNotifier) emit(event string) {
	if err := t.feed.Emit(event, realtime.TypingRequest{ReceiverID: t.peerID}); err != nil {
		// Typing is ephemeral and best-effort on this side too.
		log.Printf("chatsync: %s signal: %v", event, err)
	}
}
