// Package jwt signs and verifies the stateless access tokens issued by
// the engine. Verification proves validity with signature and expiry
// alone; no store lookup is involved. Expired tokens and structurally
// or cryptographically invalid tokens surface as distinct errors so the
// caller can tell "re-authenticate" apart from tampering.
package jwt
