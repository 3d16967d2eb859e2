// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for security-sensitive credential workflows.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - cl:rl:li:  — login per-identifier
//   - cl:rl:lip: — login per-IP
//   - cl:rl:rf:  — refresh per-family
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/flows).
//   - Be imported outside the credlock module.
package rate
