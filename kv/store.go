package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps every infrastructure-level Redis failure so callers
// can tell a store outage apart from a plain missing key (redis.Nil).
var ErrUnavailable = errors.New("kv store unavailable")

// Store is a thin Redis adapter exposing exactly the capability the
// session-authority core consumes: string get/set-with-expiry/delete/exists
// plus publish/subscribe. Values are opaque strings; callers serialize
// structured data themselves.
type Store struct {
	redis redis.UniversalClient
}

// NewStore wraps an already-connected Redis client. The client's lifecycle
// stays with the caller; Store never closes it.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{redis: client}
}

// Get returns the value at key. A missing key is reported as redis.Nil,
// never as ErrUnavailable.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return val, nil
}

// Set writes value at key. A non-positive ttl stores the key without expiry.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Del removes key. Deleting a missing key is not an error.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Publish sends payload on channel. Delivery is fire-and-forget; a zero
// subscriber count is not an error.
func (s *Store) Publish(ctx context.Context, channel, payload string) error {
	if err := s.redis.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time availability check and its latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
