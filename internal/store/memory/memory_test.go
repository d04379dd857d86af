package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rzbill/bee/internal/store"
	"github.com/rzbill/bee/internal/store/storetest"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Harness {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		return storetest.Harness{Store: New(WithClock(clock.Now)), Advance: clock.Advance}
	})
}

func TestWrongType(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.RPush(ctx, "q", "A"))
	_, _, err := s.Get(ctx, "q")
	require.ErrorIs(t, err, store.ErrWrongType)

	require.NoError(t, s.SetTTL(ctx, "k", "v", 0))
	err = s.RPush(ctx, "k", "A")
	require.ErrorIs(t, err, store.ErrWrongType)
}

func TestClosed(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Ping(context.Background()), store.ErrClosed)
	_, _, err := s.LPop(context.Background(), "q")
	require.ErrorIs(t, err, store.ErrClosed)
}
