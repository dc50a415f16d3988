// Package events names the pub/sub channels and JSON payloads through which
// backend processes learn about token and session lifecycle changes.
// Delivery is fire-and-forget and at-least-once; consumers must be
// idempotent.
package events

import "time"

const (
	// ChannelRefreshTokenGenerated announces a newly stored refresh token.
	ChannelRefreshTokenGenerated = "refresh_token:generated"
	// ChannelRefreshTokenRevoked announces a blacklisted refresh token.
	ChannelRefreshTokenRevoked = "refresh_token:revoked"
	// ChannelTokenRefreshed announces a completed access-token refresh.
	ChannelTokenRefreshed = "token:refreshed"
	// ChannelSessionRefreshed announces a session TTL renewal.
	ChannelSessionRefreshed = "session:refreshed"
)

// Channels returns every lifecycle channel, the set SubscribeEvents listens on.
func Channels() []string {
	return []string{
		ChannelRefreshTokenGenerated,
		ChannelRefreshTokenRevoked,
		ChannelTokenRefreshed,
		ChannelSessionRefreshed,
	}
}

// RefreshTokenGenerated is published on ChannelRefreshTokenGenerated.
type RefreshTokenGenerated struct {
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	ExpiresIn int64     `json:"expiresIn"`
}

// RefreshTokenRevoked is published on ChannelRefreshTokenRevoked. Exactly one
// of UserID or SessionID is set, matching the scope that was revoked.
type RefreshTokenRevoked struct {
	UserID    string    `json:"userId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TokenRefreshed is published on ChannelTokenRefreshed after a successful
// rotation.
type TokenRefreshed struct {
	UserID         string    `json:"userId"`
	SessionID      string    `json:"sessionId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	NewAccessToken string    `json:"newAccessToken"`
}

// SessionRefreshed is published on ChannelSessionRefreshed when a session's
// TTL is renewed in place.
type SessionRefreshed struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	ExpiresIn int64     `json:"expiresIn"`
}
