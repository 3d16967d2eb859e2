package session

// Session is one generation of a refresh family. At most one
// non-revoked, unexpired Session exists per family at any instant; the
// store's AdvanceGeneration primitive enforces it.
type Session struct {
	FamilyID  string
	SessionID string
	UserID    string

	// Generation increases by exactly 1 per successful rotation.
	Generation uint64

	// Revoked marks the family's absorbing terminal state. The record
	// stays in the cache until its TTL elapses so presenting a stale
	// credential after revocation is answered, not silently missed.
	Revoked bool

	CreatedAt int64
	ExpiresAt int64
}
