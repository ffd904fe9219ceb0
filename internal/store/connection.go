package store

import (
	"context"
	"log"
	"sync"
)

// conn implements Connection for both adapters: disconnect writes are
// tracked in process memory and flushed as one patch on Close.
type conn struct {
	store  Store
	mu     sync.Mutex
	writes map[string]any
	closed bool
}

func newConn(s Store) *conn {
	return &conn{store: s, writes: make(map[string]any)}
}

func (c *conn) OnDisconnectSet(path string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.writes[path] = value
}

func (c *conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	writes := c.writes
	c.writes = nil
	c.mu.Unlock()

	if len(writes) == 0 {
		return
	}
	if err := c.store.Patch(context.Background(), writes); err != nil {
		log.Printf("[Store] disconnect writes failed: %v", err)
	}
}
