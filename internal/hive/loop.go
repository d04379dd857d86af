package hive

import (
	"context"
	"time"

	"github.com/rzbill/bee/internal/lease"
	"github.com/rzbill/bee/internal/metrics"
	logpkg "github.com/rzbill/bee/pkg/log"
)

// releaseTimeout bounds the lease release on shutdown.
const releaseTimeout = 2 * time.Second

// Loop is the per-process state machine.
type Loop struct {
	lease   *lease.Manager
	writer  *Writer
	reader  *Reader
	logger  logpkg.Logger
	metrics *metrics.Metrics
	role    Role
}

// NewLoop builds a Loop and its writer and reader from opts.
func NewLoop(opts Options) (*Loop, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	w, err := NewWriter(opts)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(opts)
	if err != nil {
		return nil, err
	}
	return &Loop{
		lease:   opts.Lease,
		writer:  w,
		reader:  r,
		logger:  opts.Logger.With(logpkg.Component("loop"), logpkg.Str(logpkg.TokenKey, opts.Lease.Token())),
		metrics: opts.Metrics,
	}, nil
}

// Role returns the role taken in the most recent cycle.
func (l *Loop) Role() Role { return l.role }

// Step runs one cycle: claim or renew the lease, then produce or consume.
func (l *Loop) Step(ctx context.Context) (Role, error) {
	ls, err := l.lease.TryAcquireOrRenew(ctx)
	if err != nil {
		return l.role, err
	}
	role := RoleReader
	if ls.Held {
		role = RoleWriter
	}
	if role != l.role {
		l.logger.Info("role changed",
			logpkg.Str("from", l.role.String()),
			logpkg.Str(logpkg.RoleKey, role.String()),
			logpkg.Str("owner", ls.Owner),
		)
		if l.metrics != nil {
			l.metrics.SetLeader(role == RoleWriter)
		}
		l.role = role
	}

	if role == RoleWriter {
		_, err = l.writer.Produce(ctx)
	} else {
		_, err = l.reader.Consume(ctx)
	}
	return role, err
}

// Run steps until ctx is cancelled or a store call fails. On the way out it
// hands the lease back if this process was the writer.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("loop started", logpkg.Str("lease_mode", l.lease.Mode().String()))
	var runErr error
	for ctx.Err() == nil {
		if _, err := l.Step(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			runErr = err
			break
		}
	}

	if l.role == RoleWriter {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		released, err := l.lease.Release(rctx)
		cancel()
		if err != nil {
			l.logger.Warn("lease release failed", logpkg.Err(err))
		} else if released {
			l.logger.Info("lease released")
		}
		if l.metrics != nil {
			l.metrics.Leader.Set(0)
		}
	}

	if runErr != nil {
		l.logger.Error("loop stopped", logpkg.Err(runErr))
		return runErr
	}
	l.logger.Info("loop stopped")
	return nil
}
