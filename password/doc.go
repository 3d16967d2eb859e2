// Package password implements argon2id hashing and verification for
// stored credentials.
//
// Hashes are emitted in PHC string format with embedded salt and cost
// parameters, so verification never consults process configuration and
// cost upgrades can be detected per-hash. Verification compares derived
// keys with a constant-time comparison.
//
// The package also exposes a precomputed dummy hash so login flows can
// burn an equivalent verification cost when the identifier is unknown.
package password
