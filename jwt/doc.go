// Package jwt implements the credential codec: issuing and verifying the
// signed, time-bound access and refresh tokens that the rest of the engine
// treats as opaque strings.
//
// The codec is stateless. It holds only the configured HS256 signing secret
// and the default lifetimes; revocation, rotation, and storage live in the
// refresh and session packages.
package jwt
