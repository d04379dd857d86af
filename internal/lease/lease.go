package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rzbill/bee/internal/config"
	"github.com/rzbill/bee/internal/store"
	logpkg "github.com/rzbill/bee/pkg/log"
)

// ErrNotOwner is returned by Refresh when the key is absent or held by
// another token.
var ErrNotOwner = errors.New("lease: not owner")

// Mode selects the claim protocol.
type Mode int

const (
	ModeRelaxed Mode = iota
	ModeAtomic
)

func (m Mode) String() string {
	if m == ModeAtomic {
		return config.LeaseModeAtomic
	}
	return config.LeaseModeRelaxed
}

// ResolveMode maps a config mode name to a Mode for the given store. "auto"
// picks atomic when the store supports it.
func ResolveMode(name string, s store.Store) (Mode, error) {
	_, atomic := s.(store.Atomic)
	switch name {
	case config.LeaseModeRelaxed:
		return ModeRelaxed, nil
	case config.LeaseModeAtomic:
		if !atomic {
			return ModeRelaxed, fmt.Errorf("atomic lease mode: %w", store.ErrUnsupported)
		}
		return ModeAtomic, nil
	case config.LeaseModeAuto, "":
		if atomic {
			return ModeAtomic, nil
		}
		return ModeRelaxed, nil
	default:
		return ModeRelaxed, fmt.Errorf("unknown lease mode %q", name)
	}
}

// Lease is the outcome of one claim attempt. Held is only meaningful until
// ExpiresAt; callers re-check every cycle.
type Lease struct {
	Owner     string
	Held      bool
	ExpiresAt time.Time
}

// Options configures a Manager.
type Options struct {
	Key   string
	Token string
	TTL   time.Duration
	Mode  Mode
	// Now is the local clock used only to estimate ExpiresAt.
	Now    func() time.Time
	Logger logpkg.Logger
}

// Manager claims and renews the writer key for one token.
type Manager struct {
	store  store.Store
	atomic store.Atomic
	key    string
	token  string
	ttl    time.Duration
	mode   Mode
	now    func() time.Time
	logger logpkg.Logger
}

// NewManager validates opts and returns a Manager bound to s.
func NewManager(s store.Store, opts Options) (*Manager, error) {
	if opts.Key == "" || opts.Token == "" {
		return nil, errors.New("lease: key and token are required")
	}
	if opts.TTL <= 0 {
		return nil, errors.New("lease: ttl must be positive")
	}
	m := &Manager{
		store:  s,
		key:    opts.Key,
		token:  opts.Token,
		ttl:    opts.TTL,
		mode:   opts.Mode,
		now:    opts.Now,
		logger: opts.Logger,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = logpkg.NewNopLogger()
	}
	if m.mode == ModeAtomic {
		a, ok := s.(store.Atomic)
		if !ok {
			return nil, fmt.Errorf("atomic lease mode: %w", store.ErrUnsupported)
		}
		m.atomic = a
	}
	return m, nil
}

func (m *Manager) Token() string      { return m.token }
func (m *Manager) Key() string        { return m.key }
func (m *Manager) Mode() Mode         { return m.mode }
func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) held() Lease {
	return Lease{Owner: m.token, Held: true, ExpiresAt: m.now().Add(m.ttl)}
}

// TryAcquireOrRenew reports whether this token is the writer after the call,
// claiming an absent key or refreshing our own.
func (m *Manager) TryAcquireOrRenew(ctx context.Context) (Lease, error) {
	if m.mode == ModeAtomic {
		return m.tryAtomic(ctx)
	}
	return m.tryRelaxed(ctx)
}

func (m *Manager) tryRelaxed(ctx context.Context) (Lease, error) {
	owner, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		return Lease{}, fmt.Errorf("read lease: %w", err)
	}
	if ok && owner != m.token {
		return Lease{Owner: owner}, nil
	}
	if err := m.store.SetTTL(ctx, m.key, m.token, m.ttl); err != nil {
		return Lease{}, fmt.Errorf("write lease: %w", err)
	}
	if !ok {
		m.logger.Debug("claimed vacant lease", logpkg.Str("key", m.key))
	}
	return m.held(), nil
}

func (m *Manager) tryAtomic(ctx context.Context) (Lease, error) {
	won, err := m.atomic.SetNX(ctx, m.key, m.token, m.ttl)
	if err != nil {
		return Lease{}, fmt.Errorf("claim lease: %w", err)
	}
	if won {
		m.logger.Debug("claimed vacant lease", logpkg.Str("key", m.key))
		return m.held(), nil
	}
	ours, err := m.atomic.RefreshIfOwner(ctx, m.key, m.token, m.ttl)
	if err != nil {
		return Lease{}, fmt.Errorf("renew lease: %w", err)
	}
	if ours {
		return m.held(), nil
	}
	owner, _, err := m.store.Get(ctx, m.key)
	if err != nil {
		return Lease{}, fmt.Errorf("read lease: %w", err)
	}
	return Lease{Owner: owner}, nil
}

// Refresh is the writer's per-message re-claim. Relaxed mode rewrites the
// key unconditionally; atomic mode only extends a lease we still hold and
// returns ErrNotOwner otherwise.
func (m *Manager) Refresh(ctx context.Context) (Lease, error) {
	if m.mode == ModeRelaxed {
		if err := m.store.SetTTL(ctx, m.key, m.token, m.ttl); err != nil {
			return Lease{}, fmt.Errorf("write lease: %w", err)
		}
		return m.held(), nil
	}
	ours, err := m.atomic.RefreshIfOwner(ctx, m.key, m.token, m.ttl)
	if err != nil {
		return Lease{}, fmt.Errorf("renew lease: %w", err)
	}
	if !ours {
		return Lease{}, ErrNotOwner
	}
	return m.held(), nil
}

// Release deletes the key if it still carries our token. It reports whether
// anything was deleted.
func (m *Manager) Release(ctx context.Context) (bool, error) {
	if a, ok := m.store.(store.Atomic); ok {
		released, err := a.DeleteIfOwner(ctx, m.key, m.token)
		if err != nil {
			return false, fmt.Errorf("release lease: %w", err)
		}
		return released, nil
	}
	owner, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		return false, fmt.Errorf("read lease: %w", err)
	}
	if !ok || owner != m.token {
		return false, nil
	}
	if err := m.store.Delete(ctx, m.key); err != nil {
		return false, fmt.Errorf("release lease: %w", err)
	}
	return true, nil
}

// Owner returns the token currently stored under the key.
func (m *Manager) Owner(ctx context.Context) (string, bool, error) {
	owner, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		return "", false, fmt.Errorf("read lease: %w", err)
	}
	return owner, ok, nil
}
