package flows

import "context"

type LogoutSessionStore interface {
	Revoke(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	DecodeCredential func(string) (familyID, sessionID string, generation uint64, err error)
	SessionStore     LogoutSessionStore
}

// LogoutResult reports the family acted on. Malformed marks credentials
// that failed structural decoding; the flow treats those as a successful
// no-op because logout is idempotent by contract.
type LogoutResult struct {
	FamilyID  string
	Malformed bool
	Err       error
}

// RunLogout revokes the family named by the credential. Unknown or
// already revoked families succeed; only infrastructure failures
// propagate through Err.
func RunLogout(ctx context.Context, credential string, deps LogoutDeps) LogoutResult {
	familyID, _, _, err := deps.DecodeCredential(credential)
	if err != nil {
		return LogoutResult{Malformed: true}
	}

	return LogoutResult{
		FamilyID: familyID,
		Err:      deps.SessionStore.Revoke(ctx, familyID),
	}
}

// RunLogoutAll revokes every family belonging to userID.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) error {
	return deps.SessionStore.RevokeAllForUser(ctx, userID)
}
