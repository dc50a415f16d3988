package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TypeRefresh is the claim value marking a token as a refresh credential.
const TypeRefresh = "refresh"

var (
	// ErrExpired is returned by Parse for a token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrSignature is returned by Parse when signature verification fails.
	ErrSignature = errors.New("token signature invalid")
	// ErrMalformed is returned by Parse for tokens that are not valid JWTs.
	ErrMalformed = errors.New("token malformed")
)

// Config holds the signing secret and default lifetimes for minted tokens.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims is the single claim set used for both access and refresh tokens.
// Access tokens carry Email and Role; refresh tokens carry Type and an
// optional SessionID. Subject is always the user ID.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Type      string `json:"typ,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	jwt.RegisteredClaims
}

// IsRefresh reports whether the claims describe a refresh credential.
func (c *Claims) IsRefresh() bool {
	return c.Type == TypeRefresh
}

// Codec mints and verifies tokens over a fixed HS256 secret. It performs
// no I/O and is safe for concurrent use.
type Codec struct {
	config Config
}

// NewCodec validates cfg and returns a Codec. The secret must be at least
// 32 bytes; both TTLs must be positive.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("jwt token lifetimes must be positive")
	}
	return &Codec{config: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.config.RefreshTTL }

// CreateAccess mints a short-lived access token for userID carrying the
// role claim. The jti is derived from the user ID and issue time; it is
// used for uniqueness and auditing only, never for revocation lookups.
func (c *Codec) CreateAccess(userID, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        fmt.Sprintf("%s-%d", userID, now.UnixMilli()),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.AccessTTL)),
			Issuer:    c.config.Issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.Secret)
}

// CreateRefresh mints a refresh token for userID. A non-empty sessionID is
// embedded in the claims so the validation path can resolve the
// session-scoped storage key. A non-positive ttl falls back to the
// configured refresh lifetime.
func (c *Codec) CreateRefresh(userID, sessionID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = c.config.RefreshTTL
	}
	now := time.Now()
	claims := Claims{
		Type:      TypeRefresh,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    c.config.Issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.Secret)
}

// Parse verifies signature and expiry and returns the claims. Failures are
// collapsed into ErrExpired, ErrSignature, or ErrMalformed.
func (c *Codec) Parse(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.config.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignature
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}

// Decode extracts claims without verifying the signature. It exists solely
// for best-effort extraction during logout cleanup and must never gate an
// authorization decision.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, ErrMalformed
	}
	return claims, nil
}
