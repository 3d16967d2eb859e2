// Package flows contains pure-function orchestrators for the rotation-critical
// Engine operations.
//
// Each flow function (RunRefresh, RunLogout, RunValidate) accepts a typed
// dependency struct and returns results without side-effects beyond those
// dependencies. This design enables exhaustive unit testing with mock
// dependencies and keeps the Engine type thin on its hottest paths.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, JWT manager, and rate
// limiter. They do NOT own any of these resources — ownership stays with the
// Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import credlock (to avoid import cycles).
//   - Perform I/O directly — all I/O is mediated through dependency interfaces.
package flows
