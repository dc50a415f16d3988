package authkit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/northmart/authkit/identity"
	authjwt "github.com/northmart/authkit/jwt"
	"github.com/northmart/authkit/kv"
	"github.com/northmart/authkit/rbac"
	"github.com/northmart/authkit/refresh"
	"github.com/northmart/authkit/session"
)

// Engine is the authentication orchestrator. Construct it with [Builder];
// the zero value is not usable. All methods are safe for concurrent use.
type Engine struct {
	config     Config
	codec      *authjwt.Codec
	sessions   *session.Store
	tokens     *refresh.Manager
	resolver   *rbac.Resolver
	identities identity.Store
	hasher     Hasher
	logger     *slog.Logger
}

// Register creates a user under the requested role (default: the regular
// user role), materializes a session, and returns a full credential set.
// A taken email or username fails with ErrConflict; an unknown role name
// fails with ErrRoleNotFound before any row is written.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	roleName := input.Role
	if roleName == "" {
		roleName = rbac.RoleUser
	}
	role, err := e.resolver.RoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, roleName)
		}
		return nil, err
	}

	digest, err := e.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := e.identities.Users().Create(ctx, identity.User{
		Email:        input.Email,
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: digest,
		RoleID:       role.ID,
	})
	if err != nil {
		if errors.Is(err, identity.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, err
	}

	e.logger.Info("user registered", "userId", user.ID, "role", roleName)
	return e.mintSession(ctx, user)
}

// Login authenticates by email or username (an identifier containing "@"
// is treated as an email) and materializes a fresh session. Every failure
// mode — unknown identifier, wrong password — surfaces as
// ErrInvalidCredentials and leaves no trace in the session store.
func (e *Engine) Login(ctx context.Context, identifier, plaintext string) (*AuthResult, error) {
	var (
		user identity.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = e.identities.Users().FindByEmail(ctx, identifier)
	} else {
		user, err = e.identities.Users().FindByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		// A digest that cannot be parsed is a data fault, not a wrong
		// password.
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return e.mintSession(ctx, user)
}

// FederatedLogin resolves an externally-verified identity to a local user,
// provisioning one under the regular user role on first sight, and
// materializes a session. The caller has already completed the provider
// handshake; no password check happens here.
func (e *Engine) FederatedLogin(ctx context.Context, ident FederatedIdentity) (*AuthResult, error) {
	email := ident.Email
	if email == "" {
		email = fmt.Sprintf("%s@%s.local", ident.ProviderID, ident.Provider)
	}

	user, err := e.identities.Users().FindByEmail(ctx, email)
	if err == nil {
		return e.mintSession(ctx, user)
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return nil, err
	}
	if ident.Username != "" {
		user, err = e.identities.Users().FindByUsername(ctx, ident.Username)
		if err == nil {
			return e.mintSession(ctx, user)
		}
		if !errors.Is(err, identity.ErrNotFound) {
			return nil, err
		}
	}

	user, err = e.provisionFederated(ctx, ident, email)
	if err != nil {
		return nil, err
	}
	e.logger.Info("federated user provisioned",
		"userId", user.ID, "provider", ident.Provider)
	return e.mintSession(ctx, user)
}

func (e *Engine) provisionFederated(ctx context.Context, ident FederatedIdentity, email string) (identity.User, error) {
	role, err := e.resolver.RoleByName(ctx, rbac.RoleUser)
	if err != nil {
		return identity.User{}, err
	}

	// Federated accounts never authenticate by password; the stored digest
	// is of an unguessable throwaway so the column stays non-empty.
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return identity.User{}, err
	}
	digest, err := e.hasher.Hash(hex.EncodeToString(buf))
	if err != nil {
		return identity.User{}, err
	}

	username := ident.Username
	if username == "" {
		username = ident.Provider + "_" + ident.ProviderID
	}

	return e.identities.Users().Create(ctx, identity.User{
		Email:        email,
		Username:     username,
		FirstName:    ident.FirstName,
		LastName:     ident.LastName,
		PasswordHash: digest,
		RoleID:       role.ID,
	})
}

// Logout tears down the session behind an access token and revokes the
// refresh credential tied to it. The revocation scope comes from the cached
// session snapshot, so only the refresh token of that session is retired;
// other sessions of the same user keep theirs. It is idempotent: an
// already-expired or unknown token is not an error.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	snap, err := e.sessions.GetByToken(ctx, accessToken)
	if err != nil {
		return err
	}

	if snap != nil && snap.SessionID != "" {
		if err := e.tokens.RevokeBySession(ctx, snap.SessionID); err != nil {
			return err
		}
	} else {
		// No session left to read the scope from; fall back to the token's
		// subject. Decode skips signature verification so logout keeps
		// working after a signing-key rotation.
		claims, err := e.codec.Decode(accessToken)
		if err != nil {
			// Garbage in; nothing to tear down.
			return nil
		}
		if claims.Subject != "" {
			if err := e.tokens.Revoke(ctx, claims.Subject); err != nil {
				return err
			}
		}
	}

	if err := e.sessions.DeleteByToken(ctx, accessToken); err != nil {
		return err
	}
	if snap != nil {
		e.logger.Info("session terminated", "userId", snap.UserID, "sessionId", snap.SessionID)
	}
	return nil
}

// Refresh exchanges a live refresh token for a new token pair, rotating the
// refresh credential. A rejected token — expired, blacklisted, rotated, or
// forged — fails with ErrInvalidRefreshToken; the caller must re-authenticate.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*refresh.TokenPair, error) {
	pair, err := e.tokens.Exchange(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, ErrInvalidRefreshToken
	}
	return pair, nil
}

// VerifyAccess verifies an access token's signature and expiry and returns
// its claims without touching any store. Rejections map to ErrUnauthorized.
func (e *Engine) VerifyAccess(accessToken string) (*authjwt.Claims, error) {
	claims, err := e.codec.Parse(accessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if claims.IsRefresh() {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Profile verifies an access token and returns the current identity summary
// from the relational store. Any verification failure maps to
// ErrUnauthorized so callers never learn which check rejected the token.
func (e *Engine) Profile(ctx context.Context, accessToken string) (*UserSummary, error) {
	claims, err := e.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := e.identities.Users().FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	summary := summarize(user)
	return &summary, nil
}

// TouchSession extends a user's session lifetime by the configured session
// TTL. Missing sessions are a no-op.
func (e *Engine) TouchSession(ctx context.Context, userID string) error {
	return e.sessions.Refresh(ctx, userID, e.config.SessionTTL)
}

// Session returns the cached snapshot for a user, or nil when none exists.
func (e *Engine) Session(ctx context.Context, userID string) (*session.Snapshot, error) {
	return e.sessions.Get(ctx, userID)
}

// SessionByToken returns the cached snapshot bound to an access token, or
// nil when the token or session has expired.
func (e *Engine) SessionByToken(ctx context.Context, accessToken string) (*session.Snapshot, error) {
	return e.sessions.GetByToken(ctx, accessToken)
}

// Sessions exposes the session store for permission checks and middleware.
func (e *Engine) Sessions() *session.Store { return e.sessions }

// Tokens exposes the refresh credential manager.
func (e *Engine) Tokens() *refresh.Manager { return e.tokens }

// Roles exposes the role/permission resolver.
func (e *Engine) Roles() *rbac.Resolver { return e.resolver }

// SubscribeEvents streams credential lifecycle events to handler until ctx
// is cancelled or the subscription is closed.
func (e *Engine) SubscribeEvents(ctx context.Context, handler refresh.EventHandler) (*kv.Subscription, error) {
	return e.tokens.SubscribeEvents(ctx, handler)
}

// mintSession is the shared tail of Register, Login, and FederatedLogin:
// mint an access token, materialize the session snapshot, and issue a
// session-scoped refresh token.
func (e *Engine) mintSession(ctx context.Context, user identity.User) (*AuthResult, error) {
	if user.Role == nil {
		return nil, fmt.Errorf("%w: user %s has no role", ErrRoleNotFound, user.ID)
	}

	accessToken, err := e.codec.CreateAccess(user.ID, user.Email, user.Role.Name)
	if err != nil {
		return nil, err
	}

	sessionID := "session_" + uuid.NewString()
	snap := session.Snapshot{
		UserID:      user.ID,
		Email:       user.Email,
		Username:    user.Username,
		Role:        user.Role.Name,
		Permissions: user.Role.PermissionNames(),
		SessionID:   sessionID,
	}
	if err := e.sessions.Create(ctx, snap, accessToken, e.config.SessionTTL); err != nil {
		return nil, err
	}

	refreshToken, err := e.tokens.GenerateWithSession(ctx, user.ID, sessionID, e.config.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		User:         summarize(user),
	}, nil
}

func summarize(user identity.User) UserSummary {
	summary := UserSummary{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Permissions: []string{},
	}
	if user.Role != nil {
		summary.Role = user.Role.Name
		summary.Permissions = user.Role.PermissionNames()
	}
	return summary
}
