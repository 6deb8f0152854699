package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Window(t *testing.T) {
	req := require.New(t)
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	// Given two events inside the window
	req.True(rl.Allow("c1"))
	req.True(rl.Allow("c1"))

	// Then the third is rejected while other connections are unaffected
	req.False(rl.Allow("c1"))
	req.True(rl.Allow("c2"))

	// When the window slides past the first events
	now = now.Add(1100 * time.Millisecond)

	// Then the connection may send again
	req.True(rl.Allow("c1"))
}

func TestRateLimiter_Forget(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(1, time.Hour)

	req.True(rl.Allow("c1"))
	req.False(rl.Allow("c1"))

	rl.Forget("c1")

	req.True(rl.Allow("c1"))
}
