package runtime

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/rzbill/bee/internal/config"
	"github.com/rzbill/bee/internal/identity"
	"github.com/rzbill/bee/internal/lease"
)

func TestOpenCloseHealthBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	tests := []struct {
		name   string
		mutate func(*cfgpkg.Config)
	}{
		{"memory", func(c *cfgpkg.Config) { c.Store.Backend = cfgpkg.BackendMemory }},
		{"pebble", func(c *cfgpkg.Config) {
			c.Store.Backend = cfgpkg.BackendPebble
			c.Store.DataDir = t.TempDir()
			c.Store.Fsync = "never"
		}},
		{"redis", func(c *cfgpkg.Config) { c.Store.Addr = mr.Addr() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cfgpkg.Default()
			tt.mutate(&cfg)
			rt, err := Open(context.Background(), Options{Config: cfg})
			require.NoError(t, err)
			defer rt.Close()
			require.NoError(t, rt.CheckHealth(context.Background()))
			require.Equal(t, lease.ModeAtomic, rt.LeaseMode())
		})
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Lease.TTLMs = 0
	_, err := Open(context.Background(), Options{Config: cfg})
	require.Error(t, err)
}

func TestOpenFailsWhenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := cfgpkg.Default()
	cfg.Store.Addr = addr
	_, err := Open(context.Background(), Options{Config: cfg})
	require.Error(t, err)
}

func TestLoopDrainAndStatus(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Store.Backend = cfgpkg.BackendMemory
	cfg.Keys.Prefix = "t:"
	cfg.Writer.DelayMs = 0
	cfg.Reader.DelayMs = 0
	ctx := context.Background()

	rt, err := Open(ctx, Options{Config: cfg})
	require.NoError(t, err)
	defer rt.Close()

	loop, err := rt.NewLoop("1_AAAAA", identity.NewRand(3))
	require.NoError(t, err)
	_, err = loop.Step(ctx)
	require.NoError(t, err)

	st, err := rt.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "1_AAAAA", st.Writer)
	require.EqualValues(t, 1, st.Pending)

	require.NoError(t, rt.Store().RPush(ctx, "t:err_msgs", "QQQQQ"))
	msgs, err := rt.DrainErrors(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"QQQQQ"}, msgs)
}
