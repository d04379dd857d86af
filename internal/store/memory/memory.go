// Package memory is an in-process Store used by tests and single-process
// simulations.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rzbill/bee/internal/store"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Store keeps strings and lists in maps guarded by one mutex.
type Store struct {
	mu      sync.Mutex
	strings map[string]entry
	lists   map[string][]string
	now     func() time.Time
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, letting tests expire keys without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		strings: make(map[string]entry),
		lists:   make(map[string][]string),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Atomic = (*Store)(nil)
)

// live returns the unexpired entry for key, evicting it if stale.
// Caller holds s.mu.
func (s *Store) live(key string) (entry, bool) {
	e, ok := s.strings[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.strings, key)
		return entry{}, false
	}
	return e, true
}

func (s *Store) check() error {
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

func (s *Store) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return "", false, err
	}
	if _, isList := s.lists[key]; isList {
		return "", false, store.ErrWrongType
	}
	e, ok := s.live(key)
	return e.value, ok, nil
}

func (s *Store) SetTTL(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	delete(s.lists, key)
	s.strings[key] = entry{value: value, expiresAt: s.expiry(ttl)}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	delete(s.strings, key)
	delete(s.lists, key)
	return nil
}

func (s *Store) RPush(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	if _, ok := s.live(key); ok {
		return store.ErrWrongType
	}
	s.lists[key] = append(s.lists[key], value)
	return nil
}

func (s *Store) LPop(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return "", false, err
	}
	if _, ok := s.live(key); ok {
		return "", false, store.ErrWrongType
	}
	l := s.lists[key]
	if len(l) == 0 {
		return "", false, nil
	}
	v := l[0]
	if len(l) == 1 {
		delete(s.lists, key)
	} else {
		s.lists[key] = l[1:]
	}
	return v, true, nil
}

func (s *Store) LRange(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	if _, ok := s.live(key); ok {
		return nil, store.ErrWrongType
	}
	return append([]string{}, s.lists[key]...), nil
}

func (s *Store) LLen(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return 0, err
	}
	return int64(len(s.lists[key])), nil
}

func (s *Store) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return false, err
	}
	if _, ok := s.live(key); ok {
		return false, nil
	}
	if _, isList := s.lists[key]; isList {
		return false, nil
	}
	s.strings[key] = entry{value: value, expiresAt: s.expiry(ttl)}
	return true, nil
}

func (s *Store) RefreshIfOwner(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return false, err
	}
	e, ok := s.live(key)
	if !ok || e.value != value {
		return false, nil
	}
	s.strings[key] = entry{value: value, expiresAt: s.expiry(ttl)}
	return true, nil
}

func (s *Store) DeleteIfOwner(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return false, err
	}
	e, ok := s.live(key)
	if !ok || e.value != value {
		return false, nil
	}
	delete(s.strings, key)
	return true, nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
