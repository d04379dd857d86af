// Package storetest holds a behavioural suite that every store backend must
// pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rzbill/bee/internal/store"
)

// Harness is a fresh store plus a way to move its clock forward.
type Harness struct {
	Store   store.Store
	Advance func(d time.Duration)
}

// Factory builds an isolated Harness for one subtest.
type Factory func(t *testing.T) Harness

// Run exercises the Store and Atomic contracts.
func Run(t *testing.T, newHarness Factory) {
	t.Run("GetAbsent", func(t *testing.T) {
		h := newHarness(t)
		_, ok, err := h.Store.Get(context.Background(), "missing")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("SetGetExpire", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		require.NoError(t, h.Store.SetTTL(ctx, "writer", "1_AAAAA", 5*time.Second))

		v, ok, err := h.Store.Get(ctx, "writer")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "1_AAAAA", v)

		h.Advance(4 * time.Second)
		_, ok, err = h.Store.Get(ctx, "writer")
		require.NoError(t, err)
		require.True(t, ok, "key should survive until its ttl")

		h.Advance(2 * time.Second)
		_, ok, err = h.Store.Get(ctx, "writer")
		require.NoError(t, err)
		require.False(t, ok, "key should be gone after its ttl")
	})

	t.Run("SetResetsTTL", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		require.NoError(t, h.Store.SetTTL(ctx, "k", "v", 5*time.Second))
		h.Advance(4 * time.Second)
		require.NoError(t, h.Store.SetTTL(ctx, "k", "v", 5*time.Second))
		h.Advance(4 * time.Second)
		_, ok, err := h.Store.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("ListFIFO", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		for _, m := range []string{"A", "B", "C"} {
			require.NoError(t, h.Store.RPush(ctx, "q", m))
		}
		n, err := h.Store.LLen(ctx, "q")
		require.NoError(t, err)
		require.EqualValues(t, 3, n)

		all, err := h.Store.LRange(ctx, "q")
		require.NoError(t, err)
		require.Equal(t, []string{"A", "B", "C"}, all)

		for _, want := range []string{"A", "B", "C"} {
			got, ok, err := h.Store.LPop(ctx, "q")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, want, got)
		}
		_, ok, err := h.Store.LPop(ctx, "q")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("LRangeAbsentIsEmpty", func(t *testing.T) {
		h := newHarness(t)
		all, err := h.Store.LRange(context.Background(), "nothing")
		require.NoError(t, err)
		require.Empty(t, all)
	})

	t.Run("DeleteList", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		require.NoError(t, h.Store.RPush(ctx, "err", "X"))
		require.NoError(t, h.Store.Delete(ctx, "err"))
		require.NoError(t, h.Store.Delete(ctx, "err"))
		all, err := h.Store.LRange(ctx, "err")
		require.NoError(t, err)
		require.Empty(t, all)
		// the list is reusable after deletion
		require.NoError(t, h.Store.RPush(ctx, "err", "Y"))
		all, err = h.Store.LRange(ctx, "err")
		require.NoError(t, err)
		require.Equal(t, []string{"Y"}, all)
	})

	t.Run("Atomic", func(t *testing.T) {
		h := newHarness(t)
		a, ok := h.Store.(store.Atomic)
		if !ok {
			t.Skip("backend is not atomic")
		}
		ctx := context.Background()

		won, err := a.SetNX(ctx, "writer", "A", 5*time.Second)
		require.NoError(t, err)
		require.True(t, won)

		won, err = a.SetNX(ctx, "writer", "B", 5*time.Second)
		require.NoError(t, err)
		require.False(t, won)

		refreshed, err := a.RefreshIfOwner(ctx, "writer", "B", 5*time.Second)
		require.NoError(t, err)
		require.False(t, refreshed)

		h.Advance(4 * time.Second)
		refreshed, err = a.RefreshIfOwner(ctx, "writer", "A", 5*time.Second)
		require.NoError(t, err)
		require.True(t, refreshed)
		h.Advance(4 * time.Second)
		v, ok, err := h.Store.Get(ctx, "writer")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "A", v)

		deleted, err := a.DeleteIfOwner(ctx, "writer", "B")
		require.NoError(t, err)
		require.False(t, deleted)
		deleted, err = a.DeleteIfOwner(ctx, "writer", "A")
		require.NoError(t, err)
		require.True(t, deleted)

		won, err = a.SetNX(ctx, "writer", "B", 5*time.Second)
		require.NoError(t, err)
		require.True(t, won)

		h.Advance(6 * time.Second)
		won, err = a.SetNX(ctx, "writer", "C", 5*time.Second)
		require.NoError(t, err)
		require.True(t, won, "expired key must be claimable")
	})
}
