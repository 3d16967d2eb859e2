package credlock

import (
	"context"
	"errors"
	"log"
	"strings"
)

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, req CreateAccountRequest) (*CreateAccountResult, error) {
	if e == nil || e.userStore == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		return nil, ErrAccountCreationDisabled
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		return nil, ErrAccountCreationInvalid
	}
	if len(req.Password) < e.config.Password.MinLength {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "password_policy",
			}
		})
		return nil, ErrPasswordPolicy
	}

	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		return nil, ErrAccountCreationInvalid
	}

	user, err := e.userStore.Create(ctx, identifier, hash)
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricAccountCreationDuplicate)
			e.emitAudit(ctx, auditEventAccountCreationDuplicate, false, "", "", ErrAccountExists, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return nil, ErrAccountExists
		}
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "store_failure",
			}
		})
		return nil, ErrStoreUnavailable
	}

	e.metricInc(MetricAccountCreationSuccess)
	e.emitAudit(ctx, auditEventAccountCreationSuccess, true, user.UserID, "", nil, nil)

	result := &CreateAccountResult{UserID: user.UserID}
	if !e.config.Account.AutoLogin {
		return result, nil
	}

	pair, sessionID, err := e.createSession(ctx, user.UserID)
	if err != nil {
		// Account creation already succeeded; the caller can log in
		// through the normal path.
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, sessionID, err, func() map[string]string {
			return map[string]string{
				"reason": "auto_login_session",
			}
		})
		return result, nil
	}
	e.metricInc(MetricSessionCreated)

	result.AccessToken = pair.AccessToken
	result.RefreshCredential = pair.RefreshCredential
	return result, nil
}

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, identifier, oldPassword, newPassword string) error {
	if e == nil || e.userStore == nil {
		return ErrEngineNotReady
	}
	if identifier == "" || oldPassword == "" {
		return ErrInvalidCredentials
	}
	if len(newPassword) < e.config.Password.MinLength {
		return ErrPasswordPolicy
	}

	user, err := e.userStore.Lookup(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.passwordHash.VerifyDummy(oldPassword)
			return ErrInvalidCredentials
		}
		return ErrStoreUnavailable
	}

	ok, err := e.passwordHash.Verify(oldPassword, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeInvalidOld, false, user.UserID, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	if oldPassword == newPassword {
		e.metricInc(MetricPasswordChangeReuseRejected)
		e.emitAudit(ctx, auditEventPasswordChangeReuse, false, user.UserID, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return ErrPasswordPolicy
	}

	if err := e.userStore.UpdateHash(ctx, user.UserID, newHash); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.UserID, "", err, nil)
		return ErrStoreUnavailable
	}

	// Every outstanding family dies with the old password. A failure
	// here is surfaced so callers know stale sessions may linger.
	if err := e.sessionStore.RevokeAllForUser(ctx, user.UserID); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.UserID, "", ErrSessionInvalidationFailed, nil)
		return ErrSessionInvalidationFailed
	}
	e.metricInc(MetricFamilyRevoked)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, identifier, clientIPFromContext(ctx)); err != nil {
			log.Print("credlock: login counter reset failed")
		}
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, user.UserID, "", nil, nil)
	return nil
}

// DeleteAccount describes the deleteaccount operation and its observable behavior.
//
// DeleteAccount may return an error when input validation, dependency calls, or security checks fail.
// DeleteAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DeleteAccount(ctx context.Context, userID string) error {
	if e == nil || e.userStore == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}

	// Sessions go first. If the revocation sweep fails the account row
	// survives, so no orphaned family can outlive its user.
	if err := e.sessionStore.RevokeAllForUser(ctx, userID); err != nil {
		e.emitAudit(ctx, auditEventAccountDeletionFailure, false, userID, "", ErrSessionInvalidationFailed, nil)
		return ErrSessionInvalidationFailed
	}
	e.metricInc(MetricFamilyRevoked)

	if err := e.userStore.Delete(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventAccountDeletionFailure, false, userID, "", ErrUserNotFound, nil)
			return ErrUserNotFound
		}
		e.emitAudit(ctx, auditEventAccountDeletionFailure, false, userID, "", err, nil)
		return ErrStoreUnavailable
	}

	e.emitAudit(ctx, auditEventAccountDeletionSuccess, true, userID, "", nil, nil)
	return nil
}
