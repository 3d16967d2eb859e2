// Package internal holds identifier generation and the refresh
// credential wire codec shared by the engine and its flows.
//
// # Architecture boundaries
//
// This package owns random ID material and the opaque credential
// encoding only. Rotation policy, generation comparison, and family
// revocation live in the session store and the flow layer.
//
// # What this package must NOT do
//
//   - Access Redis, Postgres, or any I/O besides crypto/rand.
//   - Import the root package, jwt, session, or userstore.
package internal
