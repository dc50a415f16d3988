package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/northmart/authkit"
	sqlitestore "github.com/northmart/authkit/identity/sqlite"
)

func newTestEngine(t *testing.T) *authkit.Engine {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "guard.db"))
	if err != nil {
		t.Fatalf("sqlite.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := authkit.DefaultConfig()
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"

	engine, err := authkit.New().
		WithConfig(cfg).
		WithRedis(client).
		WithIdentityStore(store).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine
}

func login(t *testing.T, engine *authkit.Engine) *authkit.AuthResult {
	t.Helper()

	result, err := engine.Register(context.Background(), authkit.RegisterInput{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "correct-password-123",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return result
}

func do(t *testing.T, handler http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	engine := newTestEngine(t)
	result := login(t, engine)

	var sawClaims bool
	handler := RequireAuth(engine, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		sawClaims = ok && claims.Subject == result.User.ID
		w.WriteHeader(http.StatusOK)
	}))

	if rec := do(t, handler, result.AccessToken); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !sawClaims {
		t.Fatal("claims not injected into context")
	}

	if rec := do(t, handler, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header status = %d, want 401", rec.Code)
	}
	if rec := do(t, handler, "garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", rec.Code)
	}
	if rec := do(t, handler, result.RefreshToken); rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token status = %d, want 401", rec.Code)
	}
}

func TestRequireSessionEnforcesPermissions(t *testing.T) {
	engine := newTestEngine(t)
	result := login(t, engine)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, found := SnapshotFromContext(r.Context()); !found {
			t.Error("snapshot not injected into context")
		}
		w.WriteHeader(http.StatusOK)
	})

	allowed := RequireSession(engine, nil, []string{"products:read"}, ok)
	if rec := do(t, allowed, result.AccessToken); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	denied := RequireSession(engine, nil, []string{"system:admin"}, ok)
	if rec := do(t, denied, result.AccessToken); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	wrongRole := RequireSession(engine, []string{"admin"}, nil, ok)
	if rec := do(t, wrongRole, result.AccessToken); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireSessionRejectsAfterLogout(t *testing.T) {
	engine := newTestEngine(t)
	result := login(t, engine)

	handler := RequireSession(engine, nil, nil, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if rec := do(t, handler, result.AccessToken); rec.Code != http.StatusOK {
		t.Fatalf("pre-logout status = %d, want 200", rec.Code)
	}

	if err := engine.Logout(context.Background(), result.AccessToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// The signature is still valid; only the session is gone.
	if rec := do(t, handler, result.AccessToken); rec.Code != http.StatusUnauthorized {
		t.Fatalf("post-logout status = %d, want 401", rec.Code)
	}
}
