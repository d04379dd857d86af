package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
	// ErrUnsupported is returned when a backend lacks an optional capability.
	ErrUnsupported = errors.New("store: operation not supported")
	// ErrWrongType is returned when a string operation targets a list or the
	// other way round.
	ErrWrongType = errors.New("store: operation against a key holding the wrong kind of value")
)

// Store is the subset of a Redis-like key/value + list store that bee needs.
// Every method is a single atomic operation on one key.
type Store interface {
	// Get returns the string value of key. ok is false when the key is absent
	// or its TTL has lapsed.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// SetTTL writes value under key and (re)sets its expiry. A ttl <= 0 means
	// the key never expires.
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key of any type. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// RPush appends value to the tail of the list at key.
	RPush(ctx context.Context, key, value string) error
	// LPop removes and returns the head of the list at key. ok is false when
	// the list is empty or absent.
	LPop(ctx context.Context, key string) (value string, ok bool, err error)
	// LRange returns the whole list at key, head first. An absent key yields
	// an empty slice.
	LRange(ctx context.Context, key string) ([]string, error)
	// LLen reports the length of the list at key.
	LLen(ctx context.Context, key string) (int64, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	Close() error
}

// Atomic is implemented by stores that can claim and refresh a key without a
// separate read.
type Atomic interface {
	// SetNX writes value with ttl only if key is absent. It reports whether
	// the write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// RefreshIfOwner resets the TTL of key (and rewrites value) only if its
	// current value equals value.
	RefreshIfOwner(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// DeleteIfOwner removes key only if its current value equals value.
	DeleteIfOwner(ctx context.Context, key, value string) (bool, error)
}
