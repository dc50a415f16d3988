package authkit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/northmart/authkit/identity"
	sqlitestore "github.com/northmart/authkit/identity/sqlite"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	return cfg
}

func newTestEngine(t *testing.T) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	engine, mr, _ := newTestEngineStore(t)
	return engine, mr
}

func newTestEngineStore(t *testing.T) (*Engine, *miniredis.Miniredis, *sqlitestore.Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("sqlite.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(client).
		WithIdentityStore(store).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine, mr, store
}

func registerAlice(t *testing.T, engine *Engine) *AuthResult {
	t.Helper()

	result, err := engine.Register(context.Background(), RegisterInput{
		Email:     "alice@example.com",
		Username:  "alice",
		FirstName: "Alice",
		Password:  "correct-password-123",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return result
}

func TestRegisterIssuesFullCredentialSet(t *testing.T) {
	engine, _ := newTestEngine(t)
	result := registerAlice(t, engine)

	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("register returned empty credentials")
	}
	if result.SessionID == "" {
		t.Fatal("register returned no session id")
	}
	if result.User.Role != "user" {
		t.Fatalf("role = %q, want user", result.User.Role)
	}

	snap, err := engine.Session(context.Background(), result.User.ID)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if snap == nil {
		t.Fatal("no session materialized")
	}
	if snap.SessionID != result.SessionID {
		t.Fatalf("session id mismatch: %q vs %q", snap.SessionID, result.SessionID)
	}
	if !Authorize(snap, nil, []string{"products:read", "categories:read"}) {
		t.Fatalf("default role missing read grants: %v", snap.Permissions)
	}

	byToken, err := engine.SessionByToken(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("SessionByToken failed: %v", err)
	}
	if byToken == nil || byToken.UserID != result.User.ID {
		t.Fatal("access token does not resolve to the session")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	engine, _ := newTestEngine(t)
	registerAlice(t, engine)

	_, err := engine.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Username: "alice2",
		Password: "another-password-456",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestRegisterUnknownRole(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Register(context.Background(), RegisterInput{
		Email:    "bob@example.com",
		Username: "bob",
		Password: "a-password-123",
		Role:     "warlord",
	})
	if !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("err = %v, want ErrRoleNotFound", err)
	}
}

func TestLoginByEmailAndUsername(t *testing.T) {
	engine, _ := newTestEngine(t)
	registerAlice(t, engine)
	ctx := context.Background()

	byEmail, err := engine.Login(ctx, "alice@example.com", "correct-password-123")
	if err != nil {
		t.Fatalf("login by email failed: %v", err)
	}
	byUsername, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login by username failed: %v", err)
	}
	if byEmail.User.ID != byUsername.User.ID {
		t.Fatal("email and username logins resolved different users")
	}
}

func TestLoginFailureIsUninformative(t *testing.T) {
	engine, mr := newTestEngine(t)
	result := registerAlice(t, engine)
	ctx := context.Background()

	mr.FlushAll()

	if _, err := engine.Login(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := engine.Login(ctx, "nobody", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user err = %v, want ErrInvalidCredentials", err)
	}

	// A failed login leaves nothing behind in the session store.
	if mr.Exists("session:" + result.User.ID) {
		t.Fatal("failed login materialized a session")
	}
}

func TestRefreshRotatesExactlyOnce(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	registerAlice(t, engine)

	login, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Keep the rotated token's millisecond-stamped jti distinct.
	time.Sleep(2 * time.Millisecond)

	pair, err := engine.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("refresh returned empty credentials")
	}
	if pair.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	if _, err := engine.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("replay err = %v, want ErrInvalidRefreshToken", err)
	}

	time.Sleep(2 * time.Millisecond)
	if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("fresh token exchange failed: %v", err)
	}
}

func TestLogoutTearsDownAndIsIdempotent(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	result := registerAlice(t, engine)

	if err := engine.Logout(ctx, result.AccessToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	snap, err := engine.Session(ctx, result.User.ID)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if snap != nil {
		t.Fatal("session survived logout")
	}

	if _, err := engine.Refresh(ctx, result.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("refresh after logout err = %v, want ErrInvalidRefreshToken", err)
	}

	// Logging out again, or with garbage, succeeds quietly.
	if err := engine.Logout(ctx, result.AccessToken); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}
	if err := engine.Logout(ctx, "not-a-token"); err != nil {
		t.Fatalf("garbage Logout failed: %v", err)
	}
}

func TestLogoutRevokesOnlyItsOwnSession(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	registerAlice(t, engine)

	// Two concurrent sessions for the same user.
	sessionA, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login A failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	sessionB, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login B failed: %v", err)
	}
	if sessionA.SessionID == sessionB.SessionID {
		t.Fatal("logins share a session id")
	}

	// Rotate A's refresh token so its session-scoped key holds a live value.
	time.Sleep(2 * time.Millisecond)
	rotatedA, err := engine.Refresh(ctx, sessionA.RefreshToken)
	if err != nil {
		t.Fatalf("refresh A failed: %v", err)
	}

	if err := engine.Logout(ctx, sessionB.AccessToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// B's credential is the one that must be dead.
	if _, err := engine.Refresh(ctx, sessionB.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("refresh of logged-out session err = %v, want ErrInvalidRefreshToken", err)
	}
	// A's session was never logged out; its rotated token must still work.
	time.Sleep(2 * time.Millisecond)
	if _, err := engine.Refresh(ctx, rotatedA.RefreshToken); err != nil {
		t.Fatalf("refresh of untouched session failed: %v", err)
	}
}

func TestLoginMalformedDigestIsNotCredentialFailure(t *testing.T) {
	engine, _, store := newTestEngineStore(t)
	ctx := context.Background()

	role, err := store.Roles().FindByName(ctx, "user")
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	if _, err := store.Users().Create(ctx, identity.User{
		Email:        "mallory@example.com",
		Username:     "mallory",
		PasswordHash: "not-a-phc-digest",
		RoleID:       role.ID,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = engine.Login(ctx, "mallory", "whatever")
	if err == nil {
		t.Fatal("expected error for malformed stored digest")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("data fault reported as invalid credentials")
	}
}

func TestFederatedLoginProvisionsOnce(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	ident := FederatedIdentity{
		Provider:   "google",
		ProviderID: "g-123",
		Email:      "dana@example.com",
		Username:   "dana",
		FirstName:  "Dana",
	}

	first, err := engine.FederatedLogin(ctx, ident)
	if err != nil {
		t.Fatalf("first FederatedLogin failed: %v", err)
	}
	if first.User.Role != "user" {
		t.Fatalf("provisioned role = %q, want user", first.User.Role)
	}

	second, err := engine.FederatedLogin(ctx, ident)
	if err != nil {
		t.Fatalf("second FederatedLogin failed: %v", err)
	}
	if first.User.ID != second.User.ID {
		t.Fatal("federated login provisioned the same identity twice")
	}

	// No password login path exists for a federated account.
	if _, err := engine.Login(ctx, "dana@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("password login on federated account err = %v", err)
	}
}

func TestFederatedLoginWithoutEmail(t *testing.T) {
	engine, _ := newTestEngine(t)

	result, err := engine.FederatedLogin(context.Background(), FederatedIdentity{
		Provider:   "github",
		ProviderID: "7777",
	})
	if err != nil {
		t.Fatalf("FederatedLogin failed: %v", err)
	}
	if result.User.Email != "7777@github.local" {
		t.Fatalf("fallback email = %q", result.User.Email)
	}
}

func TestProfile(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	result := registerAlice(t, engine)

	profile, err := engine.Profile(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.Email != "alice@example.com" || profile.Role != "user" {
		t.Fatalf("profile = %+v", profile)
	}

	if _, err := engine.Profile(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("garbage token err = %v, want ErrUnauthorized", err)
	}
	if _, err := engine.Profile(ctx, result.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("refresh token err = %v, want ErrUnauthorized", err)
	}
}

func TestTouchSessionExtendsTTL(t *testing.T) {
	engine, mr := newTestEngine(t)
	ctx := context.Background()
	result := registerAlice(t, engine)

	mr.SetTTL("session:"+result.User.ID, time.Minute)

	if err := engine.TouchSession(ctx, result.User.ID); err != nil {
		t.Fatalf("TouchSession failed: %v", err)
	}
	if ttl := mr.TTL("session:" + result.User.ID); ttl <= time.Minute {
		t.Fatalf("session ttl = %v, want extended", ttl)
	}
}

func TestSubscribeEventsSeesLifecycle(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 16)
	sub, err := engine.SubscribeEvents(ctx, func(channel string, _ map[string]any) {
		got <- channel
	})
	if err != nil {
		t.Fatalf("SubscribeEvents failed: %v", err)
	}
	defer sub.Close()

	registerAlice(t, engine)

	select {
	case channel := <-got:
		if channel != "refresh_token:generated" {
			t.Fatalf("first event on %q, want refresh_token:generated", channel)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no lifecycle event observed")
	}
}
