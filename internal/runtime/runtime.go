package runtime

import (
	"context"
	"errors"
	"fmt"

	cfgpkg "github.com/rzbill/bee/internal/config"
	"github.com/rzbill/bee/internal/hive"
	"github.com/rzbill/bee/internal/identity"
	"github.com/rzbill/bee/internal/lease"
	"github.com/rzbill/bee/internal/metrics"
	pebblestore "github.com/rzbill/bee/internal/storage/pebble"
	"github.com/rzbill/bee/internal/store"
	"github.com/rzbill/bee/internal/store/memory"
	pebblekv "github.com/rzbill/bee/internal/store/pebble"
	redisstore "github.com/rzbill/bee/internal/store/redis"
	logpkg "github.com/rzbill/bee/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
	// Metrics is optional; one is created when nil.
	Metrics *metrics.Metrics
	// Store overrides the configured backend, mainly for tests.
	Store store.Store
}

// Runtime wires config, the shared store, logging and metrics for one
// process.
type Runtime struct {
	store     store.Store
	config    cfgpkg.Config
	logger    logpkg.Logger
	metrics   *metrics.Metrics
	leaseMode lease.Mode
}

// Open validates the config, connects the store and checks it is reachable.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	rt := &Runtime{config: opts.Config, logger: opts.Logger, metrics: opts.Metrics}
	if rt.logger == nil {
		rt.logger = logpkg.NewNopLogger()
	}
	if rt.metrics == nil {
		rt.metrics = metrics.New()
	}

	s := opts.Store
	if s == nil {
		var err error
		if s, err = rt.openStore(); err != nil {
			return nil, err
		}
	}
	rt.store = s

	mode, err := lease.ResolveMode(opts.Config.Lease.Mode, s)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	rt.leaseMode = mode

	if err := rt.CheckHealth(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	rt.logger.Info("store ready",
		logpkg.Str("backend", opts.Config.Store.Backend),
		logpkg.Str("lease_mode", mode.String()),
	)
	return rt, nil
}

func (r *Runtime) openStore() (store.Store, error) {
	sc := r.config.Store
	switch sc.Backend {
	case cfgpkg.BackendRedis:
		r.logger.Debug("connecting to redis", logpkg.Str("addr", sc.Addr), logpkg.Int("db", sc.DB))
		return redisstore.Open(redisstore.Options{Addr: sc.Addr, Password: sc.Password, DB: sc.DB}), nil
	case cfgpkg.BackendPebble:
		fsync, err := pebblestore.ParseFsyncMode(sc.Fsync)
		if err != nil {
			return nil, err
		}
		return pebblekv.Open(pebblestore.Options{
			DataDir: r.config.ResolveDataDir(),
			Fsync:   fsync,
			Metrics: r.metrics,
		})
	case cfgpkg.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

// Close closes the store.
func (r *Runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// CheckHealth pings the store.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.store == nil {
		return errors.New("store not open")
	}
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	return nil
}

// NewLoop builds a process loop for token. rng drives both message content
// and the error draw.
func (r *Runtime) NewLoop(token string, rng identity.Rand) (*hive.Loop, error) {
	lm, err := lease.NewManager(r.store, lease.Options{
		Key:    r.config.WriterKey(),
		Token:  token,
		TTL:    r.config.LeaseTTL(),
		Mode:   r.leaseMode,
		Logger: r.logger.With(logpkg.Str(logpkg.TokenKey, token)).WithComponent("lease"),
	})
	if err != nil {
		return nil, err
	}
	return hive.NewLoop(hive.Options{
		Store:         r.store,
		Lease:         lm,
		MessagesKey:   r.config.MessagesKey(),
		ErrorsKey:     r.config.ErrorsKey(),
		WriteDelay:    r.config.WriteDelay(),
		ReadDelay:     r.config.ReadDelay(),
		MessageLength: r.config.Writer.MessageLength,
		ErrorOneIn:    r.config.Reader.ErrorOneIn,
		Rand:          rng,
		Logger:        r.logger,
		Metrics:       r.metrics,
	})
}

// DrainErrors empties the error queue and returns its contents.
func (r *Runtime) DrainErrors(ctx context.Context) ([]string, error) {
	msgs, err := hive.DrainErrors(ctx, r.store, r.config.ErrorsKey())
	if err != nil {
		return nil, err
	}
	r.metrics.Drained.Add(float64(len(msgs)))
	r.logger.Debug("drained error queue", logpkg.Int("count", len(msgs)))
	return msgs, nil
}

// Status samples the shared records.
func (r *Runtime) Status(ctx context.Context) (hive.Status, error) {
	return hive.ReadStatus(ctx, r.store, r.config.WriterKey(), r.config.MessagesKey(), r.config.ErrorsKey())
}

// Store exposes the underlying store (internal use only).
func (r *Runtime) Store() store.Store { return r.store }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Metrics returns the process metrics.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

// LeaseMode returns the resolved claim protocol.
func (r *Runtime) LeaseMode() lease.Mode { return r.leaseMode }
