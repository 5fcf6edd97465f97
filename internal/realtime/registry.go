package realtime

import "sync"

// Registry maps a user identity to its single live connection. A user opening
// a second connection replaces the first (last connection wins); there is only
// one notion of "the receiver's current socket".
type Registry interface {
	// Register stores the connection for userID and returns the connection it
	// replaced, if any. The caller is responsible for closing the old one.
	Register(userID string, c *Client) (replaced *Client)
	// Lookup returns the live connection for userID.
	Lookup(userID string) (*Client, bool)
	// Unregister removes the entry for userID, but only if it still points at
	// c. A connection that was already replaced must not evict its successor.
	Unregister(userID string, c *Client)
}

// MemoryRegistry is the single-process Registry used by the hub.
type MemoryRegistry struct {
	mu    sync.RWMutex
	conns map[string]*Client
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{conns: make(map[string]*Client)}
}

func (r *MemoryRegistry) Register(userID string, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.conns[userID]
	r.conns[userID] = c
	return old
}

func (r *MemoryRegistry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

func (r *MemoryRegistry) Unregister(userID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.conns[userID]; ok && current == c {
		delete(r.conns, userID)
	}
}
