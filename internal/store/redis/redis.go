// Package redis adapts a Redis server to store.Store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rzbill/bee/internal/store"
)

// Options configures the Redis connection.
type Options struct {
	// Addr is host:port; defaults to localhost:6379.
	Addr     string
	Password string
	DB       int
	// DialTimeout bounds connection setup. Zero uses the client default.
	DialTimeout time.Duration
}

// refreshScript rewrites the value and resets its TTL only if the caller
// still owns the key.
var refreshScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2]) and 1 or 0
end
return 0
`)

var deleteScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store is a store.Store backed by a go-redis client.
type Store struct {
	client goredis.UniversalClient
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Atomic = (*Store)(nil)
)

// Open creates a client. It does not dial; call Ping to verify reachability.
func Open(opts Options) *Store {
	addr := opts.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	return New(goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	}))
}

// New wraps an existing client.
func New(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("get", key, err)
	}
	return v, true, nil
}

func (s *Store) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return wrap("set", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return wrap("del", key, err)
	}
	return nil
}

func (s *Store) RPush(ctx context.Context, key, value string) error {
	if err := s.client.RPush(ctx, key, value).Err(); err != nil {
		return wrap("rpush", key, err)
	}
	return nil
}

func (s *Store) LPop(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.LPop(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("lpop", key, err)
	}
	return v, true, nil
}

func (s *Store) LRange(ctx context.Context, key string) ([]string, error) {
	vs, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, wrap("lrange", key, err)
	}
	if vs == nil {
		vs = []string{}
	}
	return vs, nil
}

func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, wrap("llen", key, err)
	}
	return n, nil
}

func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, wrap("setnx", key, err)
	}
	return ok, nil
}

func (s *Store) RefreshIfOwner(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	n, err := refreshScript.Run(ctx, s.client, []string{key}, value, ttl.Milliseconds()).Int()
	if err != nil {
		return false, wrap("refresh", key, err)
	}
	return n == 1, nil
}

func (s *Store) DeleteIfOwner(ctx context.Context, key, value string) (bool, error) {
	n, err := deleteScript.Run(ctx, s.client, []string{key}, value).Int()
	if err != nil {
		return false, wrap("release", key, err)
	}
	return n == 1, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func wrap(op, key string, err error) error {
	if errors.Is(err, goredis.ErrClosed) {
		return fmt.Errorf("redis %s %s: %w", op, key, store.ErrClosed)
	}
	if strings.HasPrefix(err.Error(), "WRONGTYPE") {
		return fmt.Errorf("redis %s %s: %w", op, key, store.ErrWrongType)
	}
	return fmt.Errorf("redis %s %s: %w", op, key, err)
}
