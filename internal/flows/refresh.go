package flows

import (
	"context"
	"errors"

	"github.com/credlock/credlock/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureRateLimited
	RefreshFailureNextSessionID
	RefreshFailureReplay
	RefreshFailureSessionInvalid
	RefreshFailureRotate
	RefreshFailureIssueAccess
	RefreshFailureEncode
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure           RefreshFailureKind
	Err               error
	FamilyID          string
	SessionID         string
	UserID            string
	Generation        uint64
	Session           *session.Session
	AccessToken       string
	RefreshCredential string
}

type RefreshRateLimiter interface {
	CheckRefresh(ctx context.Context, familyID string) error
}

type RefreshSessionStore interface {
	AdvanceGeneration(
		ctx context.Context,
		familyID string,
		expectedGeneration uint64,
		nextSessionID string,
	) (*session.Session, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	DecodeCredential func(string) (familyID, sessionID string, generation uint64, err error)
	NewSessionID     func() (string, error)
	IssueAccess      func(userID, familyID, sessionID string) (string, error)
	EncodeCredential func(familyID, sessionID string, generation uint64) (string, error)
	RateLimiter      RefreshRateLimiter
	SessionStore     RefreshSessionStore

	GenerationConflict error
	SessionNotFound    error
	SessionExpired     error
	SessionRevoked     error
}

// RunRefresh executes one generation advance and issuance without root
// package dependencies. The compare-and-advance inside SessionStore is
// the only atomicity boundary: by the time a conflict is reported here,
// the family has already been revoked.
func RunRefresh(ctx context.Context, credential string, deps RefreshDeps) RefreshResult {
	familyID, sessionID, generation, err := deps.DecodeCredential(credential)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureDecode,
			Err:     err,
		}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRefresh(ctx, familyID); err != nil {
			return RefreshResult{
				Failure:    RefreshFailureRateLimited,
				Err:        err,
				FamilyID:   familyID,
				SessionID:  sessionID,
				Generation: generation,
			}
		}
	}

	nextSessionID, err := deps.NewSessionID()
	if err != nil {
		return RefreshResult{
			Failure:    RefreshFailureNextSessionID,
			Err:        err,
			FamilyID:   familyID,
			SessionID:  sessionID,
			Generation: generation,
		}
	}

	sess, err := deps.SessionStore.AdvanceGeneration(ctx, familyID, generation, nextSessionID)
	if err != nil {
		switch {
		case deps.GenerationConflict != nil && errors.Is(err, deps.GenerationConflict):
			return RefreshResult{
				Failure:    RefreshFailureReplay,
				Err:        err,
				FamilyID:   familyID,
				SessionID:  sessionID,
				Generation: generation,
			}
		case (deps.SessionNotFound != nil && errors.Is(err, deps.SessionNotFound)) ||
			(deps.SessionExpired != nil && errors.Is(err, deps.SessionExpired)) ||
			(deps.SessionRevoked != nil && errors.Is(err, deps.SessionRevoked)):
			return RefreshResult{
				Failure:    RefreshFailureSessionInvalid,
				Err:        err,
				FamilyID:   familyID,
				SessionID:  sessionID,
				Generation: generation,
			}
		default:
			return RefreshResult{
				Failure:    RefreshFailureRotate,
				Err:        err,
				FamilyID:   familyID,
				SessionID:  sessionID,
				Generation: generation,
			}
		}
	}

	access, err := deps.IssueAccess(sess.UserID, sess.FamilyID, sess.SessionID)
	if err != nil {
		return RefreshResult{
			Failure:    RefreshFailureIssueAccess,
			Err:        err,
			FamilyID:   sess.FamilyID,
			SessionID:  sess.SessionID,
			UserID:     sess.UserID,
			Generation: sess.Generation,
			Session:    sess,
		}
	}

	credentialOut, err := deps.EncodeCredential(sess.FamilyID, sess.SessionID, sess.Generation)
	if err != nil {
		return RefreshResult{
			Failure:    RefreshFailureEncode,
			Err:        err,
			FamilyID:   sess.FamilyID,
			SessionID:  sess.SessionID,
			UserID:     sess.UserID,
			Generation: sess.Generation,
			Session:    sess,
		}
	}

	return RefreshResult{
		Failure:           RefreshFailureNone,
		FamilyID:          sess.FamilyID,
		SessionID:         sess.SessionID,
		UserID:            sess.UserID,
		Generation:        sess.Generation,
		Session:           sess,
		AccessToken:       access,
		RefreshCredential: credentialOut,
	}
}
