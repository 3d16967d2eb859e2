// Package middleware exposes an HTTP middleware adapter for bearer-token
// enforcement built on top of credlock Engine validation.
//
// [Guard] reads the Authorization header, calls Engine.Validate, and injects
// the validated identity into the request context where handlers retrieve it
// with [AuthResultFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself — all decisions are delegated to Engine.Validate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.Validate.
package middleware
