package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/tandem/internal/domain"
	"github.com/dkeye/tandem/internal/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newConn(ctrl *gomock.Controller, id string) *mocks.MockConn {
	c := mocks.NewMockConn(ctrl)
	c.EXPECT().ID().Return(domain.ConnID(id)).AnyTimes()
	return c
}

func TestRegistry_Register_And_Lookup(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	r := NewRegistry()
	h1 := newConn(ctrl, "h1")

	r.Register("alice", h1)

	conn, ok := r.Lookup("alice")
	req.True(ok)
	req.Equal(domain.ConnID("h1"), conn.ID())

	_, ok = r.Lookup("bob")
	req.False(ok)
}

func TestRegistry_Last_Registration_Wins(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	r := NewRegistry()
	h1 := newConn(ctrl, "h1")
	h2 := newConn(ctrl, "h2")

	// Given alice registered on h1 then on h2
	r.Register("alice", h1)
	r.Register("alice", h2)

	// When h1 closes
	removed := r.Unregister("h1")

	// Then nothing is removed and h2 is still the mapping
	req.Empty(removed)
	conn, ok := r.Lookup("alice")
	req.True(ok)
	req.Equal(domain.ConnID("h2"), conn.ID())
	req.Equal(1, r.Len())
}

func TestRegistry_Unregister_Removes_All_Users_On_Conn(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	r := NewRegistry()
	shared := newConn(ctrl, "h1")
	other := newConn(ctrl, "h2")

	r.Register("alice", shared)
	r.Register("alice-tab", shared)
	r.Register("bob", other)

	removed := r.Unregister("h1")

	req.ElementsMatch([]domain.UserID{"alice", "alice-tab"}, removed)
	req.Equal(1, r.Len())
	_, ok := r.Lookup("bob")
	req.True(ok)
}

func TestRegistry_Unregister_Unknown_Conn(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	req.Empty(r.Unregister("ghost"))
	req.Zero(r.Len())
}

func TestRegistry_Concurrent_Registration(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	r := NewRegistry()

	const n = 50
	conns := make([]*mocks.MockConn, n)
	for i := 0; i < n; i++ {
		conns[i] = newConn(ctrl, fmt.Sprintf("c%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Register(domain.UserID(fmt.Sprintf("u%d", i)), conns[i])
			r.Lookup("u0")
		}(i)
	}
	wg.Wait()

	req.Equal(n, r.Len())
	for i := 0; i < n; i++ {
		conn, ok := r.Lookup(domain.UserID(fmt.Sprintf("u%d", i)))
		req.True(ok)
		req.Equal(domain.ConnID(fmt.Sprintf("c%d", i)), conn.ID())
	}
}
