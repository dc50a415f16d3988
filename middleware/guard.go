package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/northmart/authkit"
	authjwt "github.com/northmart/authkit/jwt"
	"github.com/northmart/authkit/session"
)

type claimsContextKey struct{}
type snapshotContextKey struct{}

// ClaimsFromContext returns the verified token claims injected by a guard.
func ClaimsFromContext(ctx context.Context) (*authjwt.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authjwt.Claims)
	return claims, ok
}

// SnapshotFromContext returns the session snapshot injected by
// RequireSession.
func SnapshotFromContext(ctx context.Context) (*session.Snapshot, bool) {
	snap, ok := ctx.Value(snapshotContextKey{}).(*session.Snapshot)
	return snap, ok
}

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return header[len(prefix):]
}

// RequireAuth rejects requests without a valid access token. Verification is
// stateless; the session store is never consulted.
func RequireAuth(engine *authkit.Engine, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := engine.VerifyAccess(BearerToken(r))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession rejects requests whose token does not resolve to a live
// session, or whose session lacks one of the required roles or permissions.
// Empty requirements mean any authenticated session passes.
func RequireSession(engine *authkit.Engine, roles, permissions []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		claims, err := engine.VerifyAccess(token)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		snap, err := engine.SessionByToken(r.Context(), token)
		if err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if snap == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !authkit.Authorize(snap, roles, permissions) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		ctx = context.WithValue(ctx, snapshotContextKey{}, snap)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
