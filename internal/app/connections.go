package app

import (
	"sync"

	"github.com/dkeye/tandem/internal/core"
	"github.com/dkeye/tandem/internal/domain"
	"github.com/samber/lo"
)

// Connections is the set of every open connection, registered or not.
// Broadcasts fan out over it.
type Connections struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]core.Conn
}

func NewConnections() *Connections {
	return &Connections{conns: make(map[domain.ConnID]core.Conn)}
}

func (c *Connections) Add(conn core.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[conn.ID()] = conn
}

func (c *Connections) Remove(id domain.ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, id)
}

// Snapshot copies the set so callers can send without holding the lock.
func (c *Connections) Snapshot() []core.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lo.Values(c.conns)
}

func (c *Connections) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}
