package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterLookupUnregister(t *testing.T) {
	r := NewMemoryRegistry()

	_, ok := r.Lookup("alice")
	assert.False(t, ok)

	c1 := &Client{UserID: "alice"}
	assert.Nil(t, r.Register("alice", c1))

	got, ok := r.Lookup("alice")
	assert.True(t, ok)
	assert.Same(t, c1, got)

	r.Unregister("alice", c1)
	_, ok = r.Lookup("alice")
	assert.False(t, ok)
}

func TestRegistryLastConnectionWins(t *testing.T) {
	r := NewMemoryRegistry()

	c1 := &Client{UserID: "alice"}
	c2 := &Client{UserID: "alice"}
	assert.Nil(t, r.Register("alice", c1))

	// Second device replaces the entry and the old connection is handed back
	// to the caller for closing.
	replaced := r.Register("alice", c2)
	assert.Same(t, c1, replaced)

	got, ok := r.Lookup("alice")
	assert.True(t, ok)
	assert.Same(t, c2, got)
}

func TestRegistryUnregisterOfReplacedConnectionIsNoOp(t *testing.T) {
	r := NewMemoryRegistry()

	c1 := &Client{UserID: "alice"}
	c2 := &Client{UserID: "alice"}
	r.Register("alice", c1)
	r.Register("alice", c2)

	// The replaced connection tearing itself down must not evict its
	// successor.
	r.Unregister("alice", c1)
	got, ok := r.Lookup("alice")
	assert.True(t, ok)
	assert.Same(t, c2, got)
}
