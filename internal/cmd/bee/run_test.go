package beecmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/rzbill/bee/internal/config"
	"github.com/rzbill/bee/internal/identity"
)

func fastConfig(addr string) cfgpkg.Config {
	cfg := cfgpkg.Default()
	cfg.Store.Addr = addr
	cfg.Writer.DelayMs = 5
	cfg.Reader.DelayMs = 5
	return cfg
}

func TestRunProducesAndReleases(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, Run(ctx, Options{Config: fastConfig(mr.Addr())}))

	msgs, err := mr.List("bee_msgs")
	require.NoError(t, err)
	require.NotEmpty(t, msgs, "a lone process becomes the writer")
	for _, m := range msgs {
		require.Len(t, m, 5)
	}
	require.False(t, mr.Exists("writer"), "lease is released on shutdown")
}

func TestRunStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	err := Run(context.Background(), Options{Config: fastConfig(addr)})
	require.Error(t, err)
}

func TestSimulateSharesOneWriter(t *testing.T) {
	mr := miniredis.RunT(t)
	var out bytes.Buffer
	err := Simulate(context.Background(), SimulateOptions{
		Options:  Options{Config: fastConfig(mr.Addr()), Stdout: &out},
		Workers:  4,
		Duration: 300 * time.Millisecond,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out.String(), "run:     "))
	require.False(t, mr.Exists("writer"))
}

func TestDistinctTokens(t *testing.T) {
	// identical seeds draw the same first token; the second must be redrawn
	rngs := []identity.Rand{identity.NewRand(7), identity.NewRand(7), identity.NewRand(7)}
	tokens := distinctTokens(42, rngs)
	require.Len(t, tokens, 3)
	seen := map[string]bool{}
	for _, tok := range tokens {
		require.True(t, strings.HasPrefix(tok, "42_"))
		require.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
}
