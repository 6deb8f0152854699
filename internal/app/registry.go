package app

import (
	"sync"

	"github.com/dkeye/tandem/internal/core"
	"github.com/dkeye/tandem/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Registry maps a user to the connection it registered last.
// At most one connection per user; a later Register replaces the earlier one.
type Registry struct {
	mu    sync.RWMutex
	users map[domain.UserID]core.Conn
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[domain.UserID]core.Conn)}
}

// Register binds uid to conn in a single replace. The superseded connection,
// if any, is left open and simply stops being addressable.
func (r *Registry) Register(uid domain.UserID, conn core.Conn) {
	r.mu.Lock()
	prev, replaced := r.users[uid]
	r.users[uid] = conn
	r.mu.Unlock()

	ev := log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("conn", string(conn.ID()))
	if replaced && prev.ID() != conn.ID() {
		ev = ev.Str("superseded", string(prev.ID()))
	}
	ev.Msg("registered user")
}

func (r *Registry) Lookup(uid domain.UserID) (core.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.users[uid]
	return c, ok
}

// Unregister drops every user currently bound to connID and returns them.
// A connection already superseded by a newer registration removes nothing.
func (r *Registry) Unregister(connID domain.ConnID) []domain.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := lo.Keys(lo.PickBy(r.users, func(_ domain.UserID, c core.Conn) bool {
		return c.ID() == connID
	}))
	for _, uid := range removed {
		delete(r.users, uid)
		log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("conn", string(connID)).Msg("unregistered user")
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
