// Package authkit is the authentication and session authority for a
// multi-tenant application: it issues, validates, rotates, and revokes
// credentials, backed by a shared low-latency key-value store.
//
// The public surface is [Engine], configured through [Builder]. Callers
// invoke only the Engine; the mechanism lives in focused subpackages:
//
//   - jwt      — stateless credential codec (signed, time-bound tokens)
//   - session  — cached identity snapshots and access-token mappings
//   - refresh  — refresh-token lifecycle with mandatory rotation
//   - rbac     — role/permission catalog and idempotent seeding
//   - identity — relational records and repository interfaces
//   - kv       — the Redis boundary, including pub/sub
//   - events   — lifecycle channel names and payloads
//
// There is no in-process shared mutable state: each operation is an
// independent unit of work and all cross-request coordination happens
// through the key-value store, which provides per-key atomicity. None of
// the flows depend on multi-key atomicity. Engine methods are safe to call
// from multiple goroutines after Build.
package authkit
