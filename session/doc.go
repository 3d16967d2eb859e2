// Package session implements the Redis-backed refresh session cache.
//
// Each refresh family is a single Redis value: a compact binary blob
// holding the family ID, the current session ID, the generation
// counter, a revocation flag, and lifetime bounds. Entries carry a TTL
// equal to the maximum refresh lifetime, so abandoned families are
// evicted by Redis rather than deleted explicitly.
//
// # Atomicity
//
// AdvanceGeneration is the store's one synchronization primitive. It
// runs as a single Lua script that compares the stored generation
// against the caller's claim and either advances the family by exactly
// one generation or, on mismatch, revokes the entire family in place.
// Because detection and revocation happen inside the same script, two
// concurrent rotations of the same credential can never both succeed
// and a detected replay can never race its own punishment.
//
// # What this package must NOT do
//
//   - Mint or verify tokens of any kind.
//   - Decide policy: callers map conflict/revoked/expired onto the
//     engine's error taxonomy.
package session
