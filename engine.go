package credlock

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/credlock/credlock/internal"
	"github.com/credlock/credlock/internal/audit"
	"github.com/credlock/credlock/internal/flows"
	"github.com/credlock/credlock/internal/rate"
	"github.com/credlock/credlock/jwt"
	"github.com/credlock/credlock/password"
	"github.com/credlock/credlock/session"
)

// Engine defines a public type used by credlock APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	audit        *audit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager
	userStore    UserStore
	flows        flows.Deps
}

func (e *Engine) initFlows() {
	e.flows = flows.Deps{
		Refresh: flows.RefreshDeps{
			DecodeCredential: internal.DecodeCredential,
			NewSessionID:     newIDString,
			IssueAccess:      e.jwtManager.CreateAccess,
			EncodeCredential: internal.EncodeCredential,
			RateLimiter:      e.rateLimiter,
			SessionStore:     e.sessionStore,

			GenerationConflict: session.ErrGenerationConflict,
			SessionNotFound:    session.ErrSessionNotFound,
			SessionExpired:     session.ErrSessionExpired,
			SessionRevoked:     session.ErrSessionRevoked,
		},
		Logout: flows.LogoutDeps{
			DecodeCredential: internal.DecodeCredential,
			SessionStore:     e.sessionStore,
		},
		Validate: flows.ValidateDeps{
			ParseAccess:  e.jwtManager.ParseAccess,
			TokenExpired: jwt.ErrTokenExpired,
		},
	}
}

func newIDString() (string, error) {
	id, err := internal.NewID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) sessionLifetime() time.Duration {
	return e.config.Session.SessionLifetime
}

// Ping verifies session cache connectivity, for health endpoints.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if err := e.sessionStore.Ping(ctx); err != nil {
		return ErrCacheUnavailable
	}
	return nil
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, identifier, pass string) (*TokenPair, error) {
	if e == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
			if !errors.Is(err, rate.ErrRateLimited) {
				return nil, ErrCacheUnavailable
			}
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			e.emitRateLimit(ctx, "login", func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return nil, ErrLoginRateLimited
		}
	}

	if identifier == "" || pass == "" {
		return nil, e.failLogin(ctx, identifier, ip, "", "empty_input")
	}

	user, err := e.userStore.Lookup(ctx, identifier)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrStoreUnavailable, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
					"reason":     "store_unavailable",
				}
			})
			return nil, ErrStoreUnavailable
		}
		// Unknown identifier burns the same hashing cost as a wrong
		// password so the two are indistinguishable by timing.
		e.passwordHash.VerifyDummy(pass)
		return nil, e.failLogin(ctx, identifier, ip, "", "user_not_found")
	}

	ok, err := e.passwordHash.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.failLogin(ctx, identifier, ip, user.UserID, "password_mismatch")
	}

	if e.config.Password.UpgradeOnLogin {
		if needsUpgrade, err := e.passwordHash.NeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgradedHash, err := e.passwordHash.Hash(pass); err == nil {
				// Rehash update is best-effort and must not block successful login.
				if err := e.userStore.UpdateHash(ctx, user.UserID, upgradedHash); err != nil {
					log.Print("credlock: password hash upgrade update failed")
				} else {
					e.metricInc(MetricHashUpgrade)
				}
			} else {
				log.Print("credlock: password hash upgrade generation failed")
			}
		}
	}
	pass = ""

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, identifier, ip); err != nil {
			log.Print("credlock: login counter reset failed")
		}
	}

	pair, sessionID, err := e.createSession(ctx, user.UserID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, sessionID, err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "session_creation",
			}
		})
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, sessionID, nil, nil)

	return pair, nil
}

func (e *Engine) failLogin(ctx context.Context, identifier, ip, userID, reason string) error {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, identifier, ip); errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			e.emitRateLimit(ctx, "login", func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return ErrLoginRateLimited
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})
	return ErrInvalidCredentials
}

// createSession mints a fresh generation-zero family for userID and
// returns the issued token pair along with the new session ID.
func (e *Engine) createSession(ctx context.Context, userID string) (*TokenPair, string, error) {
	familyID, err := newIDString()
	if err != nil {
		return nil, "", err
	}
	sessionID, err := newIDString()
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	sess := &session.Session{
		FamilyID:   familyID,
		SessionID:  sessionID,
		UserID:     userID,
		Generation: 0,
		CreatedAt:  now.Unix(),
		ExpiresAt:  now.Add(e.sessionLifetime()).Unix(),
	}

	if err := e.sessionStore.Save(ctx, sess, e.sessionLifetime()); err != nil {
		return nil, sessionID, ErrSessionCreationFailed
	}

	access, err := e.jwtManager.CreateAccess(userID, familyID, sessionID)
	if err != nil {
		_ = e.sessionStore.Revoke(ctx, familyID)
		return nil, sessionID, ErrSessionCreationFailed
	}

	credential, err := internal.EncodeCredential(familyID, sessionID, 0)
	if err != nil {
		_ = e.sessionStore.Revoke(ctx, familyID)
		return nil, sessionID, ErrSessionCreationFailed
	}

	return &TokenPair{
		AccessToken:       access,
		RefreshCredential: credential,
	}, sessionID, nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, credential string) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, credential, e.flows.Refresh)
	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, res.SessionID, nil, nil)
		return &TokenPair{
			AccessToken:       res.AccessToken,
			RefreshCredential: res.RefreshCredential,
		}, nil

	case flows.RefreshFailureDecode:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrSessionInvalid, func() map[string]string {
			return map[string]string{
				"reason": "decode_failed",
			}
		})
		return nil, ErrSessionInvalid

	case flows.RefreshFailureRateLimited:
		if !errors.Is(res.Err, rate.ErrRateLimited) {
			return nil, ErrCacheUnavailable
		}
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, "", res.SessionID, ErrRefreshRateLimited, nil)
		e.emitRateLimit(ctx, "refresh", func() map[string]string {
			return map[string]string{
				"family_id": res.FamilyID,
			}
		})
		return nil, ErrRefreshRateLimited

	case flows.RefreshFailureReplay:
		// The family is already revoked by the atomic advance; the
		// caller learns only that the credential is burned.
		e.metricInc(MetricReplayDetected)
		e.metricInc(MetricFamilyRevoked)
		e.metricInc(MetricSessionInvalidated)
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, "", res.SessionID, ErrReplayDetected, func() map[string]string {
			return map[string]string{
				"family_id": res.FamilyID,
			}
		})
		return nil, ErrReplayDetected

	case flows.RefreshFailureSessionInvalid:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", res.SessionID, ErrSessionInvalid, func() map[string]string {
			return map[string]string{
				"family_id": res.FamilyID,
				"reason":    "session_invalid",
			}
		})
		return nil, ErrSessionInvalid

	case flows.RefreshFailureRotate:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", res.SessionID, res.Err, func() map[string]string {
			return map[string]string{
				"family_id": res.FamilyID,
				"reason":    "rotate_failed",
			}
		})
		return nil, ErrCacheUnavailable

	default:
		// Issuance failed after the generation already advanced. The
		// taxonomy stays closed: callers see a sentinel, not a signing
		// or encoding error.
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.SessionID, res.Err, func() map[string]string {
			return map[string]string{
				"family_id": res.FamilyID,
				"reason":    "issuance_failed",
			}
		})
		return nil, ErrSessionCreationFailed
	}
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, credential string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	res := flows.RunLogout(ctx, credential, e.flows.Logout)
	if res.Malformed {
		// Idempotent contract: a malformed credential has nothing to
		// revoke and logout still succeeds.
		e.metricInc(MetricLogout)
		return nil
	}
	if res.Err != nil {
		e.emitAudit(ctx, auditEventLogoutFamily, false, "", "", res.Err, func() map[string]string {
			return map[string]string{
				"family_id": res.FamilyID,
			}
		})
		return ErrCacheUnavailable
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventLogoutFamily, true, "", "", nil, func() map[string]string {
		return map[string]string{
			"family_id": res.FamilyID,
		}
	})
	return nil
}

// LogoutAll describes the logoutall operation and its observable behavior.
//
// LogoutAll may return an error when input validation, dependency calls, or security checks fail.
// LogoutAll does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}

	if err := flows.RunLogoutAll(ctx, userID, e.flows.Logout); err != nil {
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, "", err, nil)
		return ErrCacheUnavailable
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, nil)
	return nil
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Validate(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	res := flows.RunValidate(tokenStr, e.flows.Validate)
	switch res.Failure {
	case flows.ValidateFailureNone:
		return &AuthResult{
			UserID:    res.Claims.UID,
			FamilyID:  res.Claims.FID,
			SessionID: res.Claims.SID,
		}, nil
	case flows.ValidateFailureExpired:
		return nil, ErrTokenExpired
	default:
		return nil, ErrUnauthorized
	}
}
