// Package middleware adapts the authentication engine to net/http. Guards
// read the Authorization bearer header, validate it through the engine, and
// inject the result into the request context.
//
//   - [RequireAuth] verifies the token signature and expiry only; no store
//     round trip, no permission checks.
//   - [RequireSession] additionally resolves the cached session snapshot and
//     enforces role and permission requirements against it. A logged-out or
//     expired session is rejected even while the token itself is still valid.
//
// The guards translate HTTP into engine calls and nothing more; every
// authentication and authorization decision lives in the engine and its
// session store.
package middleware
