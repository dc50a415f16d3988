// Package session materializes authenticated sessions into the shared
// key-value store. A session is reachable two ways: directly by user ID, and
// indirectly through an access-token mapping, both written with the same TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/northmart/authkit/events"
	"github.com/northmart/authkit/kv"
)

// DefaultTTL is the session lifetime applied when callers pass a
// non-positive TTL.
const DefaultTTL = 24 * time.Hour

const (
	sessionKeyPrefix = "session:"
	tokenKeyPrefix   = "token:"
)

// Store reads and writes session snapshots and their token mappings.
type Store struct {
	kv     *kv.Store
	logger *slog.Logger
}

// NewStore returns a session Store over the given key-value store. logger
// may be nil, in which case slog.Default() is used.
func NewStore(store *kv.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: store, logger: logger}
}

func sessionKey(userID string) string { return sessionKeyPrefix + userID }
func tokenKey(token string) string    { return tokenKeyPrefix + token }

// Create persists the snapshot keyed by its user ID and maps token to that
// user, both with the same ttl. Creating over an existing session is an
// idempotent overwrite. A zero CreatedAt is stamped with the current time.
func (s *Store) Create(ctx context.Context, snap Snapshot, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	if snap.Permissions == nil {
		snap.Permissions = []string{}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	if err := s.kv.Set(ctx, sessionKey(snap.UserID), string(data), ttl); err != nil {
		return err
	}
	// Same TTL on both writes, by invariant: the token mapping must never
	// outlive the session it points at.
	return s.kv.Set(ctx, tokenKey(token), snap.UserID, ttl)
}

// Get returns the snapshot for userID, or nil when no session exists. A
// corrupt cached entry is logged and treated as absent; the next Create
// overwrites it.
func (s *Store) Get(ctx context.Context, userID string) (*Snapshot, error) {
	data, err := s.kv.Get(ctx, sessionKey(userID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		s.logger.Warn("discarding corrupt session entry", "user_id", userID, "error", err)
		return nil, nil
	}
	return &snap, nil
}

// GetByToken resolves token to its owner and returns that session, or nil
// when either hop is missing. Partial expiry of the two keys is tolerated.
func (s *Store) GetByToken(ctx context.Context, token string) (*Snapshot, error) {
	userID, err := s.kv.Get(ctx, tokenKey(token))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Refresh rewrites the existing snapshot with a renewed ttl and publishes a
// session-refreshed event. Without an existing session it is a no-op and no
// event is emitted.
func (s *Store) Refresh(ctx context.Context, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	snap, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, sessionKey(userID), string(data), ttl); err != nil {
		return err
	}

	s.publish(ctx, events.ChannelSessionRefreshed, events.SessionRefreshed{
		UserID:    userID,
		Timestamp: time.Now(),
		ExpiresIn: int64(ttl / time.Second),
	})
	return nil
}

// Delete removes the session for userID. The token mapping, if any, is left
// to expire on its own TTL.
func (s *Store) Delete(ctx context.Context, userID string) error {
	return s.kv.Del(ctx, sessionKey(userID))
}

// DeleteByToken removes both the session reached through token and the token
// mapping itself. A missing mapping is a no-op.
func (s *Store) DeleteByToken(ctx context.Context, token string) error {
	userID, err := s.kv.Get(ctx, tokenKey(token))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	if err := s.Delete(ctx, userID); err != nil {
		return err
	}
	return s.kv.Del(ctx, tokenKey(token))
}

// Permissions returns the cached permission strings for userID. A missing
// session yields an empty set: deny by default.
func (s *Store) Permissions(ctx context.Context, userID string) ([]string, error) {
	snap, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return []string{}, nil
	}
	return snap.Permissions, nil
}

// HasPermission reports whether the cached session grants permission.
func (s *Store) HasPermission(ctx context.Context, userID, permission string) (bool, error) {
	perms, err := s.Permissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

// HasAnyPermission reports whether the cached session grants at least one of
// the given permissions.
func (s *Store) HasAnyPermission(ctx context.Context, userID string, permissions []string) (bool, error) {
	perms, err := s.Permissions(ctx, userID)
	if err != nil {
		return false, err
	}
	granted := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		granted[p] = struct{}{}
	}
	for _, want := range permissions {
		if _, ok := granted[want]; ok {
			return true, nil
		}
	}
	return false, nil
}

// HasAllPermissions reports whether the cached session grants every one of
// the given permissions.
func (s *Store) HasAllPermissions(ctx context.Context, userID string, permissions []string) (bool, error) {
	perms, err := s.Permissions(ctx, userID)
	if err != nil {
		return false, err
	}
	granted := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		granted[p] = struct{}{}
	}
	for _, want := range permissions {
		if _, ok := granted[want]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// publish is best-effort: a failed event must not fail the operation that
// produced it.
func (s *Store) publish(ctx context.Context, channel string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("dropping session event", "channel", channel, "error", err)
		return
	}
	if err := s.kv.Publish(ctx, channel, string(data)); err != nil {
		s.logger.Warn("dropping session event", "channel", channel, "error", err)
	}
}
