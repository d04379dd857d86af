package hive

import (
	"context"
	"errors"
	"fmt"

	"github.com/rzbill/bee/internal/identity"
	"github.com/rzbill/bee/internal/lease"
	"github.com/rzbill/bee/internal/metrics"
	"github.com/rzbill/bee/internal/store"
	logpkg "github.com/rzbill/bee/pkg/log"
)

// Writer produces messages while the lease is held.
type Writer struct {
	store   store.Store
	lease   *lease.Manager
	key     string
	length  int
	rng     identity.Rand
	opts    Options
	logger  logpkg.Logger
	metrics *metrics.Metrics
}

// NewWriter builds a Writer from opts.
func NewWriter(opts Options) (*Writer, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	return &Writer{
		store:   opts.Store,
		lease:   opts.Lease,
		key:     opts.MessagesKey,
		length:  opts.MessageLength,
		rng:     opts.Rand,
		opts:    opts,
		logger:  opts.Logger.WithComponent("writer"),
		metrics: opts.Metrics,
	}, nil
}

// Produce re-claims the lease, pushes one random message and waits
// WriteDelay. It returns the pushed message, or "" when the lease turned out
// to be stale and nothing was written.
func (w *Writer) Produce(ctx context.Context) (string, error) {
	if _, err := w.lease.Refresh(ctx); err != nil {
		if !errors.Is(err, lease.ErrNotOwner) {
			return "", err
		}
		w.logger.Warn("lease lost before write; skipping", logpkg.Str("token", w.lease.Token()))
		if w.metrics != nil {
			w.metrics.StaleProduces.Inc()
		}
		return "", nil
	}

	msg := identity.RandomString(w.rng, w.length)
	if err := w.store.RPush(ctx, w.key, msg); err != nil {
		return "", fmt.Errorf("push message: %w", err)
	}
	if w.metrics != nil {
		w.metrics.Produced.Inc()
	}
	w.logger.Debug("produced", logpkg.Str("msg", msg))

	if err := pause(ctx, w.opts.Sleep, w.opts.WriteDelay); err != nil {
		return msg, err
	}
	return msg, nil
}
