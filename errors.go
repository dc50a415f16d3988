package authkit

import "errors"

var (
	// ErrInvalidCredentials covers every login failure. It deliberately does
	// not distinguish "user not found" from "bad password".
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrConflict is returned by Register when the email or username is taken.
	ErrConflict = errors.New("account already exists")
	// ErrNotFound is returned when an identity disappeared between steps.
	ErrNotFound = errors.New("not found")
	// ErrRoleNotFound is returned when a referenced role does not exist or an
	// identity carries no role at session-mint time.
	ErrRoleNotFound = errors.New("role not found")
	// ErrInvalidRefreshToken covers expired, malformed, blacklisted, and
	// scope-mismatched refresh tokens, collapsed into one outward kind.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrUnauthorized is returned for a missing or garbled presented
	// credential at the boundary.
	ErrUnauthorized = errors.New("unauthorized")
)
