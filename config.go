package authkit

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries every tunable of the engine. Zero values are filled in by
// DefaultConfig; ConfigFromEnv layers environment variables on top.
type Config struct {
	// JWTSecret signs both access and refresh tokens. Required, >= 32 bytes.
	JWTSecret string `env:"AUTHKIT_JWT_SECRET"`
	// Issuer is stamped into every minted token's iss claim.
	Issuer string `env:"AUTHKIT_JWT_ISSUER" envDefault:"authkit"`

	// AccessTokenTTL bounds access-token validity.
	AccessTokenTTL time.Duration `env:"AUTHKIT_ACCESS_TTL" envDefault:"15m"`
	// RefreshTokenTTL bounds refresh-token validity.
	RefreshTokenTTL time.Duration `env:"AUTHKIT_REFRESH_TTL" envDefault:"168h"`
	// SessionTTL bounds session snapshots and their token mappings; every
	// write renews it.
	SessionTTL time.Duration `env:"AUTHKIT_SESSION_TTL" envDefault:"24h"`
}

// DefaultConfig returns the documented defaults: 15-minute access tokens,
// 7-day refresh tokens, 24-hour sessions.
func DefaultConfig() Config {
	return Config{
		Issuer:          "authkit",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		SessionTTL:      24 * time.Hour,
	}
}

// ConfigFromEnv builds a Config from AUTHKIT_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("authkit: parse env: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("JWTSecret must be at least 32 bytes")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("AccessTokenTTL must be positive")
	}
	if c.RefreshTokenTTL <= 0 {
		return errors.New("RefreshTokenTTL must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SessionTTL must be positive")
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return errors.New("AccessTokenTTL must be shorter than RefreshTokenTTL")
	}
	return nil
}
