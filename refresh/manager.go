package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/northmart/authkit/events"
	"github.com/northmart/authkit/identity"
	"github.com/northmart/authkit/jwt"
	"github.com/northmart/authkit/kv"
)

const (
	// DefaultTTL is the refresh-token lifetime applied when callers pass a
	// non-positive TTL.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultBlacklistTTL bounds how long a revoked token string stays
	// rejected. It must be at least the refresh TTL so a revoked token can
	// never outlive its blacklist entry.
	DefaultBlacklistTTL = 7 * 24 * time.Hour
)

const (
	userKeyPrefix      = "refresh_token:"
	sessionKeyPrefix   = "session_refresh:"
	blacklistKeyPrefix = "blacklist:"
	blacklistMarker    = "revoked"
)

// Result is the outcome of Validate. Invalid tokens are reported as values,
// never as errors; errors are reserved for store failures.
type Result struct {
	UserID    string
	SessionID string
	Valid     bool
}

// TokenPair is the credential pair returned by Exchange.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Manager implements the refresh credential lifecycle over the shared
// key-value store. It is safe for concurrent use.
type Manager struct {
	kv           *kv.Store
	codec        *jwt.Codec
	users        identity.Users
	logger       *slog.Logger
	blacklistTTL time.Duration
}

// NewManager returns a Manager. users is consulted only by Exchange, to
// re-resolve the current role before minting. logger may be nil.
func NewManager(store *kv.Store, codec *jwt.Codec, users identity.Users, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		kv:           store,
		codec:        codec,
		users:        users,
		logger:       logger,
		blacklistTTL: DefaultBlacklistTTL,
	}
}

func userKey(userID string) string       { return userKeyPrefix + userID }
func sessionKey(sessionID string) string { return sessionKeyPrefix + sessionID }
func blacklistKey(token string) string   { return blacklistKeyPrefix + token }

// Generate mints a user-scoped refresh token, stores it at the user key, and
// publishes a generated event. The new value overwrites whatever token was
// previously live for that user.
func (m *Manager) Generate(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token, err := m.codec.CreateRefresh(userID, "", ttl)
	if err != nil {
		return "", err
	}
	if err := m.kv.Set(ctx, userKey(userID), token, ttl); err != nil {
		return "", err
	}

	m.publish(ctx, events.ChannelRefreshTokenGenerated, events.RefreshTokenGenerated{
		UserID:    userID,
		Timestamp: time.Now(),
		ExpiresIn: int64(ttl / time.Second),
	})
	return token, nil
}

// GenerateWithSession mints a refresh token whose claims embed sessionID and
// stores it under both the session-scoped and the user-scoped key. The two
// writes are independent; a crash between them leaves one scope current,
// which the next successful mint repairs.
func (m *Manager) GenerateWithSession(ctx context.Context, userID, sessionID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token, err := m.codec.CreateRefresh(userID, sessionID, ttl)
	if err != nil {
		return "", err
	}
	if err := m.kv.Set(ctx, sessionKey(sessionID), token, ttl); err != nil {
		return "", err
	}
	if err := m.kv.Set(ctx, userKey(userID), token, ttl); err != nil {
		return "", err
	}

	m.publish(ctx, events.ChannelRefreshTokenGenerated, events.RefreshTokenGenerated{
		UserID:    userID,
		SessionID: sessionID,
		Timestamp: time.Now(),
		ExpiresIn: int64(ttl / time.Second),
	})
	return token, nil
}

// Validate checks a presented refresh token: blacklist first, then signature
// and expiry, then the refresh type marker, and finally exact string
// equality against the live value at its scope key. Session scope is
// authoritative whenever the claims carry a session id. The result never
// reveals which check failed.
func (m *Manager) Validate(ctx context.Context, token string) (Result, error) {
	blacklisted, err := m.kv.Exists(ctx, blacklistKey(token))
	if err != nil {
		return Result{}, err
	}
	if blacklisted {
		return Result{}, nil
	}

	claims, err := m.codec.Parse(token)
	if err != nil {
		// Expired, forged, and malformed tokens all collapse into the same
		// negative result.
		return Result{}, nil
	}
	if !claims.IsRefresh() {
		return Result{}, nil
	}

	scopeKey := userKey(claims.Subject)
	if claims.SessionID != "" {
		scopeKey = sessionKey(claims.SessionID)
	}

	stored, err := m.kv.Get(ctx, scopeKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Result{}, nil
		}
		return Result{}, err
	}
	// Equality, not mere presence: a stored token that differs from the
	// presented one means this credential was substituted or rotated away.
	if stored != token {
		return Result{}, nil
	}

	return Result{UserID: claims.Subject, SessionID: claims.SessionID, Valid: true}, nil
}

// Revoke blacklists the user-scoped live token, removes the user key, and
// publishes a revoked event. When no token is stored the blacklist step is
// skipped but the delete and the event still happen, keeping revocation
// idempotent.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if err := m.revokeStored(ctx, userKey(userID)); err != nil {
		return err
	}
	m.publish(ctx, events.ChannelRefreshTokenRevoked, events.RefreshTokenRevoked{
		UserID:    userID,
		Timestamp: time.Now(),
	})
	return nil
}

// RevokeBySession is Revoke for the session-scoped key.
func (m *Manager) RevokeBySession(ctx context.Context, sessionID string) error {
	if err := m.revokeStored(ctx, sessionKey(sessionID)); err != nil {
		return err
	}
	m.publish(ctx, events.ChannelRefreshTokenRevoked, events.RefreshTokenRevoked{
		SessionID: sessionID,
		Timestamp: time.Now(),
	})
	return nil
}

func (m *Manager) revokeStored(ctx context.Context, scopeKey string) error {
	stored, err := m.kv.Get(ctx, scopeKey)
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if err == nil && stored != "" {
		if err := m.kv.Set(ctx, blacklistKey(stored), blacklistMarker, m.blacklistTTL); err != nil {
			return err
		}
	}
	return m.kv.Del(ctx, scopeKey)
}

// Exchange validates a refresh token and, on success, rotates it: the old
// token is blacklisted and its scope key cleared before the replacement is
// stored, a new access token is minted from the identity's current role, and
// a token-refreshed event is published. Rotation is mandatory — the old
// refresh token never validates again. Returns (nil, nil) for any invalid
// token and for identities that vanished between issuance and exchange.
func (m *Manager) Exchange(ctx context.Context, refreshToken string) (*TokenPair, error) {
	res, err := m.Validate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, nil
	}

	user, err := m.users.FindByID(ctx, res.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if user.Role == nil {
		// An identity without a role cannot be re-issued claims.
		return nil, nil
	}

	accessToken, err := m.codec.CreateAccess(user.ID, user.Email, user.Role.Name)
	if err != nil {
		return nil, err
	}

	// Retire the old credential before the new one is stored. Blacklisting
	// the presented literal (rather than whatever the scope key holds at
	// revoke time) keeps the fresh token out of the blacklist.
	if err := m.kv.Set(ctx, blacklistKey(refreshToken), blacklistMarker, m.blacklistTTL); err != nil {
		return nil, err
	}
	scopeKey := userKey(res.UserID)
	revokedEvent := events.RefreshTokenRevoked{UserID: res.UserID, Timestamp: time.Now()}
	if res.SessionID != "" {
		scopeKey = sessionKey(res.SessionID)
		revokedEvent = events.RefreshTokenRevoked{SessionID: res.SessionID, Timestamp: time.Now()}
	}
	if err := m.kv.Del(ctx, scopeKey); err != nil {
		return nil, err
	}
	m.publish(ctx, events.ChannelRefreshTokenRevoked, revokedEvent)

	var newRefresh string
	if res.SessionID != "" {
		newRefresh, err = m.GenerateWithSession(ctx, res.UserID, res.SessionID, 0)
	} else {
		newRefresh, err = m.Generate(ctx, res.UserID, 0)
	}
	if err != nil {
		return nil, err
	}

	m.publish(ctx, events.ChannelTokenRefreshed, events.TokenRefreshed{
		UserID:         res.UserID,
		SessionID:      res.SessionID,
		Timestamp:      time.Now(),
		NewAccessToken: accessToken,
	})

	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// publish is best-effort: event failures are logged, never propagated.
func (m *Manager) publish(ctx context.Context, channel string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Warn("dropping token event", "channel", channel, "error", err)
		return
	}
	if err := m.kv.Publish(ctx, channel, string(data)); err != nil {
		m.logger.Warn("dropping token event", "channel", channel, "error", err)
	}
}
