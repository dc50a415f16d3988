package authkit

// Hasher is the one-way password capability consumed by the engine.
// password.Argon2 is the provided implementation.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

// RegisterInput is the input for [Engine.Register]. Role is a role name and
// optional; it defaults to the catalog's regular-user role.
type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
	Role      string
}

// FederatedIdentity is the resolved output of an external identity-provider
// handshake. The handshake itself happens outside this core.
type FederatedIdentity struct {
	Provider   string
	ProviderID string
	Email      string
	Username   string
	FirstName  string
	LastName   string
}

// UserSummary is the caller-facing identity shape embedded in every
// successful authentication result.
type UserSummary struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	FirstName   string   `json:"firstName,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// AuthResult is returned by Register, Login, and FederatedLogin.
type AuthResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	SessionID    string      `json:"session_id"`
	User         UserSummary `json:"user"`
}
