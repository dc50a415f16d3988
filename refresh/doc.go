// Package refresh owns the long-lived credential lifecycle: generation,
// scoped storage, validation against a revocation blacklist, mandatory
// rotation on use, and revocation.
//
// A refresh token passes through four conceptual states, derived from store
// presence rather than stored explicitly:
//
//	LIVE     stored under its scope key, not blacklisted
//	ROTATED  superseded; the signature still verifies but the stored value
//	         no longer equals the presented token
//	REVOKED  blacklisted by literal value; terminal until the blacklist
//	         entry expires
//	EXPIRED  signature verification fails on the exp claim
//
// Tokens are stored under a user-scoped key and, when minted against a
// session, additionally under a session-scoped key. The two writes are not
// atomic: a crash between them leaves only one scope current. That window is
// accepted; per-key overwrites make every retry safe.
package refresh
