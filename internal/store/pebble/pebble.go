// Package pebblekv implements store.Store on an embedded Pebble database.
//
// Keyspace:
//
//	s/{len}:{key}            - string value: [8B expires_at_ms][value]
//	l/{len}:{key}/m          - list bounds: [8B head][8B tail]
//	l/{len}:{key}/i/{seq 8B} - list item
//
// Expiry is enforced lazily on read. A single mutex serializes operations, so
// every method is atomic with respect to the others in this process. Pebble
// holds an exclusive lock on its directory, so only one process can open a
// given store.
package pebblekv

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/bee/internal/storage/pebble"
	"github.com/rzbill/bee/internal/store"
)

// Store is a store.Store over a pebblestore.DB.
type Store struct {
	mu     sync.Mutex
	db     *pebblestore.DB
	owned  bool
	now    func() time.Time
	closed bool
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Atomic = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens a Pebble database and wraps it. Close closes the database.
func Open(opts pebblestore.Options, options ...Option) (*Store, error) {
	db, err := pebblestore.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble store: %w", err)
	}
	s := New(db, options...)
	s.owned = true
	return s, nil
}

// New wraps an already open database. Close leaves db open.
func New(db *pebblestore.DB, options ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, o := range options {
		o(s)
	}
	return s
}

func stringKey(key string) []byte {
	return []byte(fmt.Sprintf("s/%d:%s", len(key), key))
}

func listPrefix(key string) string {
	return fmt.Sprintf("l/%d:%s/", len(key), key)
}

func listMetaKey(key string) []byte {
	return []byte(listPrefix(key) + "m")
}

func listItemPrefix(key string) []byte {
	return []byte(listPrefix(key) + "i/")
}

func listItemKey(key string, seq uint64) []byte {
	p := listItemPrefix(key)
	k := make([]byte, len(p)+8)
	copy(k, p)
	binary.BigEndian.PutUint64(k[len(p):], seq)
	return k
}

func encodeString(value string, expiresAt int64) []byte {
	b := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(b, uint64(expiresAt))
	copy(b[8:], value)
	return b
}

func decodeString(b []byte) (string, int64, error) {
	if len(b) < 8 {
		return "", 0, errors.New("pebblekv: corrupt string record")
	}
	return string(b[8:]), int64(binary.BigEndian.Uint64(b[:8])), nil
}

type bounds struct {
	head, tail uint64
}

func (b bounds) empty() bool { return b.head >= b.tail }

func (b bounds) encode() []byte {
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out[:8], b.head)
	binary.BigEndian.PutUint64(out[8:], b.tail)
	return out
}

func (s *Store) check() error {
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

func (s *Store) expiresAt(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return s.now().Add(ttl).UnixMilli()
}

// readString returns the live value at key. Caller holds s.mu.
func (s *Store) readString(key string) (string, bool, error) {
	raw, err := s.db.Get(stringKey(key))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	v, exp, err := decodeString(raw)
	if err != nil {
		return "", false, err
	}
	if exp != 0 && s.now().UnixMilli() >= exp {
		return "", false, nil
	}
	return v, true, nil
}

// readBounds returns the list bounds at key. Caller holds s.mu.
func (s *Store) readBounds(key string) (bounds, bool, error) {
	raw, err := s.db.Get(listMetaKey(key))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return bounds{}, false, nil
	}
	if err != nil {
		return bounds{}, false, err
	}
	if len(raw) != 16 {
		return bounds{}, false, errors.New("pebblekv: corrupt list bounds")
	}
	return bounds{head: binary.BigEndian.Uint64(raw[:8]), tail: binary.BigEndian.Uint64(raw[8:])}, true, nil
}

func (s *Store) isList(key string) (bool, error) {
	_, ok, err := s.readBounds(key)
	return ok, err
}

func (s *Store) writeString(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.db.Set(ctx, stringKey(key), encodeString(value, s.expiresAt(ttl)))
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return "", false, err
	}
	if list, err := s.isList(key); err != nil {
		return "", false, err
	} else if list {
		return "", false, store.ErrWrongType
	}
	return s.readString(key)
}

func (s *Store) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := s.deleteList(b, key); err != nil {
		return err
	}
	if err := b.Set(stringKey(key), encodeString(value, s.expiresAt(ttl)), nil); err != nil {
		return err
	}
	return s.db.CommitBatch(ctx, b)
}

func (s *Store) deleteList(b *pebble.Batch, key string) error {
	p := listItemPrefix(key)
	if err := b.DeleteRange(p, append(append([]byte{}, p...), 0xff), nil); err != nil {
		return err
	}
	return b.Delete(listMetaKey(key), nil)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	_, list, err := s.readBounds(key)
	if err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(stringKey(key), nil); err != nil {
		return err
	}
	if err := s.deleteList(b, key); err != nil {
		return err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return err
	}
	if !list {
		return nil
	}
	// drop the range tombstone and the items it covers
	p := []byte(listPrefix(key))
	return s.db.CompactRange(p, append(p, 0xff))
}

func (s *Store) RPush(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	if _, ok, err := s.readString(key); err != nil {
		return err
	} else if ok {
		return store.ErrWrongType
	}
	bd, _, err := s.readBounds(key)
	if err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(listItemKey(key, bd.tail), []byte(value), nil); err != nil {
		return err
	}
	bd.tail++
	if err := b.Set(listMetaKey(key), bd.encode(), nil); err != nil {
		return err
	}
	return s.db.CommitBatch(ctx, b)
}

func (s *Store) LPop(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return "", false, err
	}
	bd, ok, err := s.readBounds(key)
	if err != nil || !ok || bd.empty() {
		return "", false, err
	}
	item := listItemKey(key, bd.head)
	v, err := s.db.Get(item)
	if err != nil {
		return "", false, fmt.Errorf("pebblekv: read list head: %w", err)
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(item, nil); err != nil {
		return "", false, err
	}
	bd.head++
	if bd.empty() {
		err = b.Delete(listMetaKey(key), nil)
	} else {
		err = b.Set(listMetaKey(key), bd.encode(), nil)
	}
	if err != nil {
		return "", false, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return "", false, err
	}
	return string(v), true, nil
}

func (s *Store) LRange(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	p := listItemPrefix(key)
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: p,
		UpperBound: append(append([]byte{}, p...), 0xff),
	})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	out := []string{}
	for it.First(); it.Valid(); it.Next() {
		out = append(out, string(it.Value()))
	}
	return out, it.Error()
}

func (s *Store) LLen(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return 0, err
	}
	bd, _, err := s.readBounds(key)
	if err != nil {
		return 0, err
	}
	return int64(bd.tail - bd.head), nil
}

func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return false, err
	}
	if _, ok, err := s.readString(key); err != nil || ok {
		return false, err
	}
	if list, err := s.isList(key); err != nil || list {
		return false, err
	}
	if err := s.writeString(ctx, key, value, ttl); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) RefreshIfOwner(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return false, err
	}
	cur, ok, err := s.readString(key)
	if err != nil || !ok || cur != value {
		return false, err
	}
	if err := s.writeString(ctx, key, value, ttl); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) DeleteIfOwner(ctx context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return false, err
	}
	cur, ok, err := s.readString(key)
	if err != nil || !ok || cur != value {
		return false, err
	}
	if err := s.db.Delete(ctx, stringKey(key)); err != nil {
		return false, err
	}
	return true, nil
}

// Ping opens and closes an iterator to confirm the database is usable.
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	it, err := s.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		return s.db.Close()
	}
	return nil
}
