package credlock

import "errors"

var (
	// ErrUnauthorized is an exported constant or variable used by the credential engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is an exported constant or variable used by the credential engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is an exported constant or variable used by the credential engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrLoginRateLimited is an exported constant or variable used by the credential engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is an exported constant or variable used by the credential engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrAccountExists is an exported constant or variable used by the credential engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountCreationDisabled is an exported constant or variable used by the credential engine.
	ErrAccountCreationDisabled = errors.New("account creation disabled")
	// ErrAccountCreationInvalid is an exported constant or variable used by the credential engine.
	ErrAccountCreationInvalid = errors.New("invalid account creation request")
	// ErrPasswordPolicy is an exported constant or variable used by the credential engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is an exported constant or variable used by the credential engine.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrSessionInvalid is an exported constant or variable used by the credential engine.
	ErrSessionInvalid = errors.New("refresh session invalid")
	// ErrSessionCreationFailed is an exported constant or variable used by the credential engine.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionInvalidationFailed is an exported constant or variable used by the credential engine.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrTokenInvalid is an exported constant or variable used by the credential engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is an exported constant or variable used by the credential engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrReplayDetected is an exported constant or variable used by the credential engine.
	ErrReplayDetected = errors.New("refresh credential replay detected")
	// ErrStoreUnavailable is an exported constant or variable used by the credential engine.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrCacheUnavailable is an exported constant or variable used by the credential engine.
	ErrCacheUnavailable = errors.New("session cache unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the credential engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
