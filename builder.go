package authkit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/northmart/authkit/identity"
	authjwt "github.com/northmart/authkit/jwt"
	"github.com/northmart/authkit/kv"
	"github.com/northmart/authkit/password"
	"github.com/northmart/authkit/rbac"
	"github.com/northmart/authkit/refresh"
	"github.com/northmart/authkit/session"
)

// Builder wires an [Engine]. Required inputs: a Redis client and an
// identity store. The hasher defaults to Argon2id and the logger to
// slog.Default().
type Builder struct {
	config     Config
	redis      redis.UniversalClient
	identities identity.Store
	hasher     Hasher
	logger     *slog.Logger

	built bool
}

// New returns a Builder pre-loaded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the shared key-value store client. Its lifecycle stays
// with the caller.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentityStore sets the relational repository bundle.
func (b *Builder) WithIdentityStore(store identity.Store) *Builder {
	b.identities = store
	return b
}

// WithHasher overrides the password hashing capability.
func (b *Builder) WithHasher(h Hasher) *Builder {
	b.hasher = h
	return b
}

// WithLogger sets the structured logger shared by every component.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build assembles the engine and runs the role/permission reconciliation
// pass against the identity store. Reconciliation is idempotent, so
// restarting or running multiple processes is safe. A builder can be used
// once.
func (b *Builder) Build(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.identities == nil {
		return nil, errors.New("identity store required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	hasher := b.hasher
	if hasher == nil {
		argon, err := password.NewArgon2(password.DefaultConfig())
		if err != nil {
			return nil, err
		}
		hasher = argon
	}

	codec, err := authjwt.NewCodec(authjwt.Config{
		Secret:     []byte(b.config.JWTSecret),
		Issuer:     b.config.Issuer,
		AccessTTL:  b.config.AccessTokenTTL,
		RefreshTTL: b.config.RefreshTokenTTL,
	})
	if err != nil {
		return nil, err
	}

	store := kv.NewStore(b.redis)
	resolver := rbac.NewResolver(b.identities.Roles(), b.identities.Permissions(), logger)

	// Seeding runs here, in the composition root, never as ambient
	// package-load behavior.
	if err := resolver.Reconcile(ctx); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     b.config,
		codec:      codec,
		sessions:   session.NewStore(store, logger),
		tokens:     refresh.NewManager(store, codec, b.identities.Users(), logger),
		resolver:   resolver,
		identities: b.identities,
		hasher:     hasher,
		logger:     logger,
	}

	b.built = true
	return engine, nil
}
