// Package credlock provides a credential lifecycle engine with JWT access tokens,
// rotating opaque refresh credentials, generation-based replay detection, and
// Redis-backed session families.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// credlock is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (TokenPair, AuthResult, MetricsSnapshot, etc.). All internal coordination — flow
// orchestration, rate limiting, audit dispatch — lives under internal/ and is never
// exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports credlock (no import cycles).
//
// # Performance contract
//
// Validate is the hot path. It verifies the access token signature without any Redis
// round-trip. Refresh performs exactly one atomic Redis script call for the rotation
// decision; Login and account operations are allowed one store and one cache
// round-trip each.
package credlock
