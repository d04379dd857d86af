package hive

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/bee/internal/identity"
	"github.com/rzbill/bee/internal/lease"
	"github.com/rzbill/bee/internal/metrics"
	"github.com/rzbill/bee/internal/store"
	"github.com/rzbill/bee/internal/store/memory"
	redisstore "github.com/rzbill/bee/internal/store/redis"
)

const (
	msgKey = "bee_msgs"
	errKey = "err_msgs"
	wrKey  = "writer"
)

// scripted replays fixed draws, then repeats the last one.
type scripted struct {
	mu   sync.Mutex
	vals []int
}

func (s *scripted) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[0]
	if len(s.vals) > 1 {
		s.vals = s.vals[1:]
	}
	return v % n
}

// sleepRecorder records requested pauses without waiting.
type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.calls = append(r.calls, d)
	r.mu.Unlock()
	return ctx.Err()
}

type process struct {
	loop    *Loop
	lease   *lease.Manager
	sleeps  *sleepRecorder
	metrics *metrics.Metrics
}

func newProcess(t *testing.T, s store.Store, token string, rng identity.Rand, mode lease.Mode) *process {
	t.Helper()
	lm, err := lease.NewManager(s, lease.Options{Key: wrKey, Token: token, TTL: 5 * time.Second, Mode: mode})
	require.NoError(t, err)
	rec := &sleepRecorder{}
	m := metrics.New()
	loop, err := NewLoop(Options{
		Store:         s,
		Lease:         lm,
		MessagesKey:   msgKey,
		ErrorsKey:     errKey,
		WriteDelay:    500 * time.Millisecond,
		ReadDelay:     time.Second,
		MessageLength: 5,
		ErrorOneIn:    20,
		Rand:          rng,
		Sleep:         rec.Sleep,
		Metrics:       m,
	})
	require.NoError(t, err)
	return &process{loop: loop, lease: lm, sleeps: rec, metrics: m}
}

func runScenario(t *testing.T, s store.Store, mode lease.Mode) {
	ctx := context.Background()

	// A draws A,B,C,D,E for its message; B always draws 0, forcing the flag.
	a := newProcess(t, s, "100_AAAAA", &scripted{vals: []int{0, 1, 2, 3, 4}}, mode)
	b := newProcess(t, s, "200_BBBBB", &scripted{vals: []int{0}}, mode)

	role, err := a.loop.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, RoleWriter, role)
	queued, err := s.LRange(ctx, msgKey)
	require.NoError(t, err)
	require.Equal(t, []string{"ABCDE"}, queued)

	role, err = b.loop.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, RoleReader, role)

	queued, err = s.LRange(ctx, msgKey)
	require.NoError(t, err)
	require.Empty(t, queued)
	flagged, err := s.LRange(ctx, errKey)
	require.NoError(t, err)
	require.Equal(t, []string{"ABCDE"}, flagged)

	report, err := DrainErrors(ctx, s, errKey)
	require.NoError(t, err)
	require.Equal(t, []string{"ABCDE"}, report)
	require.Equal(t, "['ABCDE']", FormatReport(report))

	left, err := s.LLen(ctx, errKey)
	require.NoError(t, err)
	require.Zero(t, left)

	require.Equal(t, []time.Duration{500 * time.Millisecond}, a.sleeps.calls)
	require.Equal(t, []time.Duration{time.Second}, b.sleeps.calls)
}

func TestEndToEndScenario(t *testing.T) {
	t.Run("memory/atomic", func(t *testing.T) {
		runScenario(t, memory.New(), lease.ModeAtomic)
	})
	t.Run("memory/relaxed", func(t *testing.T) {
		runScenario(t, memory.New(), lease.ModeRelaxed)
	})
	t.Run("redis/atomic", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s := redisstore.Open(redisstore.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = s.Close() })
		runScenario(t, s, lease.ModeAtomic)
	})
}

func TestMessageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	writer := newProcess(t, s, "1_WRITE", identity.NewRand(1), lease.ModeAtomic)
	readers := []*process{
		newProcess(t, s, "2_READA", &scripted{vals: []int{1}}, lease.ModeAtomic),
		newProcess(t, s, "3_READB", &scripted{vals: []int{1}}, lease.ModeAtomic),
	}

	held, err := writer.lease.TryAcquireOrRenew(ctx)
	require.NoError(t, err)
	require.True(t, held.Held)

	var produced []string
	for i := 0; i < 50; i++ {
		msg, err := writer.loop.writer.Produce(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, msg)
		produced = append(produced, msg)
	}

	var consumed []string
	for i := 0; len(consumed) < len(produced); i++ {
		res, err := readers[i%2].loop.reader.Consume(ctx)
		require.NoError(t, err)
		require.True(t, res.Popped)
		require.False(t, res.Flagged)
		consumed = append(consumed, res.Message)
	}
	require.Equal(t, produced, consumed, "queue must be FIFO with no loss or duplication")

	res, err := readers[0].loop.reader.Consume(ctx)
	require.NoError(t, err)
	require.False(t, res.Popped)
}

func TestErrorRateConverges(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	const n = 4000
	for i := 0; i < n; i++ {
		require.NoError(t, s.RPush(ctx, msgKey, "MSG00"))
	}
	r := newProcess(t, s, "1_READR", identity.NewRand(12345), lease.ModeAtomic)

	flagged := 0
	for i := 0; i < n; i++ {
		res, err := r.loop.reader.Consume(ctx)
		require.NoError(t, err)
		require.True(t, res.Popped)
		if res.Flagged {
			flagged++
		}
	}
	got := float64(flagged) / n
	sigma := math.Sqrt(0.05 * 0.95 / n)
	require.InDelta(t, 0.05, got, 4*sigma)

	errs, err := s.LLen(ctx, errKey)
	require.NoError(t, err)
	require.EqualValues(t, flagged, errs)
}

func TestReaderWaitsOnEmptyQueue(t *testing.T) {
	s := memory.New()
	r := newProcess(t, s, "1_READR", identity.NewRand(1), lease.ModeAtomic)
	res, err := r.loop.reader.Consume(context.Background())
	require.NoError(t, err)
	require.False(t, res.Popped)
	require.Equal(t, []time.Duration{time.Second}, r.sleeps.calls)
}

func TestDrainIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	got, err := DrainErrors(ctx, s, errKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
	require.Equal(t, "[]", FormatReport(got))

	require.NoError(t, s.RPush(ctx, errKey, "AAAAA"))
	require.NoError(t, s.RPush(ctx, errKey, "BBBBB"))
	got, err = DrainErrors(ctx, s, errKey)
	require.NoError(t, err)
	require.Equal(t, []string{"AAAAA", "BBBBB"}, got)
	require.Equal(t, "['AAAAA', 'BBBBB']", FormatReport(got))

	got, err = DrainErrors(ctx, s, errKey)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStaleLeaseSkipsWrite(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	p := newProcess(t, s, "1_AAAAA", identity.NewRand(1), lease.ModeAtomic)

	role, err := p.loop.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, RoleWriter, role)

	// another process took the key between our claim and our write
	require.NoError(t, s.SetTTL(ctx, wrKey, "2_BBBBB", 5*time.Second))
	msg, err := p.loop.writer.Produce(ctx)
	require.NoError(t, err)
	require.Empty(t, msg)

	n, err := s.LLen(ctx, msgKey)
	require.NoError(t, err)
	require.EqualValues(t, 1, n, "only the first cycle's message is queued")
}

func TestRoleFlipsWhenLeaseChangesHands(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	a := newProcess(t, s, "1_AAAAA", identity.NewRand(1), lease.ModeAtomic)
	b := newProcess(t, s, "2_BBBBB", identity.NewRand(2), lease.ModeAtomic)

	role, err := a.loop.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, RoleWriter, role)
	role, err = b.loop.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, RoleReader, role)

	released, err := a.lease.Release(ctx)
	require.NoError(t, err)
	require.True(t, released)

	role, err = b.loop.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, RoleWriter, role)
	role, err = a.loop.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, RoleReader, role)
}

func TestRunStopsOnCancelAndReleases(t *testing.T) {
	s := memory.New()
	lm, err := lease.NewManager(s, lease.Options{Key: wrKey, Token: "1_AAAAA", TTL: 5 * time.Second, Mode: lease.ModeAtomic})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cycles := 0
	loop, err := NewLoop(Options{
		Store:       s,
		Lease:       lm,
		MessagesKey: msgKey,
		ErrorsKey:   errKey,
		Rand:        identity.NewRand(1),
		Sleep: func(ctx context.Context, d time.Duration) error {
			cycles++
			if cycles == 3 {
				cancel()
			}
			return ctx.Err()
		},
	})
	require.NoError(t, err)

	require.NoError(t, loop.Run(ctx))
	require.Equal(t, 3, cycles)

	n, err := s.LLen(context.Background(), msgKey)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	_, held, err := s.Get(context.Background(), wrKey)
	require.NoError(t, err)
	require.False(t, held, "graceful stop must release the lease")
}

func TestRunReturnsStoreErrors(t *testing.T) {
	s := memory.New()
	p := newProcess(t, s, "1_AAAAA", identity.NewRand(1), lease.ModeAtomic)
	require.NoError(t, s.Close())
	err := p.loop.Run(context.Background())
	require.ErrorIs(t, err, store.ErrClosed)
}

func TestReadStatus(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	p := newProcess(t, s, "1_AAAAA", identity.NewRand(1), lease.ModeAtomic)
	_, err := p.loop.Step(ctx)
	require.NoError(t, err)
	require.NoError(t, s.RPush(ctx, errKey, "ZZZZZ"))

	st, err := ReadStatus(ctx, s, wrKey, msgKey, errKey)
	require.NoError(t, err)
	require.True(t, st.HasWriter)
	require.Equal(t, "1_AAAAA", st.Writer)
	require.EqualValues(t, 1, st.Pending)
	require.EqualValues(t, 1, st.Errors)
}
