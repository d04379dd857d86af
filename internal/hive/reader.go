package hive

import (
	"context"
	"fmt"

	"github.com/rzbill/bee/internal/identity"
	"github.com/rzbill/bee/internal/metrics"
	"github.com/rzbill/bee/internal/store"
	logpkg "github.com/rzbill/bee/pkg/log"
)

// ConsumeResult describes one reader cycle.
type ConsumeResult struct {
	Message string
	Popped  bool
	Flagged bool
}

// Reader consumes messages while another process holds the lease.
type Reader struct {
	store      store.Store
	msgKey     string
	errKey     string
	errorOneIn int
	rng        identity.Rand
	opts       Options
	logger     logpkg.Logger
	metrics    *metrics.Metrics
}

// NewReader builds a Reader from opts.
func NewReader(opts Options) (*Reader, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	return &Reader{
		store:      opts.Store,
		msgKey:     opts.MessagesKey,
		errKey:     opts.ErrorsKey,
		errorOneIn: opts.ErrorOneIn,
		rng:        opts.Rand,
		opts:       opts,
		logger:     opts.Logger.WithComponent("reader"),
		metrics:    opts.Metrics,
	}, nil
}

// Consume pops one message and, with probability 1/ErrorOneIn, appends it to
// the error queue. It waits ReadDelay whether or not a message was available.
func (r *Reader) Consume(ctx context.Context) (ConsumeResult, error) {
	var res ConsumeResult
	msg, ok, err := r.store.LPop(ctx, r.msgKey)
	if err != nil {
		return res, fmt.Errorf("pop message: %w", err)
	}
	if ok {
		res.Message, res.Popped = msg, true
		if r.metrics != nil {
			r.metrics.Consumed.Inc()
		}
		if r.rng.Intn(r.errorOneIn) == 0 {
			if err := r.store.RPush(ctx, r.errKey, msg); err != nil {
				return res, fmt.Errorf("push error message: %w", err)
			}
			res.Flagged = true
			if r.metrics != nil {
				r.metrics.Flagged.Inc()
			}
			r.logger.Info("flagged message", logpkg.Str("msg", msg))
		} else {
			r.logger.Debug("consumed", logpkg.Str("msg", msg))
		}
	} else if r.metrics != nil {
		r.metrics.EmptyPolls.Inc()
	}

	if err := pause(ctx, r.opts.Sleep, r.opts.ReadDelay); err != nil {
		return res, err
	}
	return res, nil
}
