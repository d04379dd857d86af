package hive

import (
	"context"
	"errors"
	"time"

	"github.com/rzbill/bee/internal/identity"
	"github.com/rzbill/bee/internal/lease"
	"github.com/rzbill/bee/internal/metrics"
	"github.com/rzbill/bee/internal/store"
	logpkg "github.com/rzbill/bee/pkg/log"
)

// Role is what a process did in one cycle.
type Role int

const (
	RoleUnknown Role = iota
	RoleReader
	RoleWriter
)

func (r Role) String() string {
	switch r {
	case RoleReader:
		return "reader"
	case RoleWriter:
		return "writer"
	default:
		return "unknown"
	}
}

// SleepFunc waits d or until ctx is done, returning ctx.Err() in the latter
// case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Options carries the store, lease, keys, timing and randomness for one
// process.
type Options struct {
	Store store.Store
	Lease *lease.Manager

	MessagesKey string
	ErrorsKey   string

	WriteDelay    time.Duration
	ReadDelay     time.Duration
	MessageLength int
	ErrorOneIn    int

	Rand    identity.Rand
	Sleep   SleepFunc
	Logger  logpkg.Logger
	Metrics *metrics.Metrics
}

func (o *Options) normalize() error {
	if o.Store == nil || o.Lease == nil {
		return errors.New("hive: store and lease manager are required")
	}
	if o.MessagesKey == "" || o.ErrorsKey == "" {
		return errors.New("hive: queue keys are required")
	}
	if o.MessageLength <= 0 {
		o.MessageLength = 5
	}
	if o.ErrorOneIn <= 0 {
		o.ErrorOneIn = 20
	}
	if o.Rand == nil {
		o.Rand = identity.NewRand(0)
	}
	if o.Sleep == nil {
		o.Sleep = Sleep
	}
	if o.Logger == nil {
		o.Logger = logpkg.NewNopLogger()
	}
	return nil
}

// pause waits between cycles. Cancellation is not an error here: the loop
// notices it on the next iteration.
func pause(ctx context.Context, sleep SleepFunc, d time.Duration) error {
	if err := sleep(ctx, d); err != nil && !errors.Is(err, ctx.Err()) {
		return err
	}
	return nil
}
