package internaldefs

import (
	credlock "github.com/credlock/credlock"
)

// CounterDef defines a public type used by credlock APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   credlock.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by credlock APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   credlock.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the credential engine.
var CounterDefs = []CounterDef{
	{ID: credlock.MetricLoginSuccess, Name: "credlock_login_success_total", Help: "Successful login attempts."},
	{ID: credlock.MetricLoginFailure, Name: "credlock_login_failure_total", Help: "Failed login attempts."},
	{ID: credlock.MetricLoginRateLimited, Name: "credlock_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: credlock.MetricRefreshSuccess, Name: "credlock_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: credlock.MetricRefreshFailure, Name: "credlock_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: credlock.MetricRefreshRateLimited, Name: "credlock_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: credlock.MetricReplayDetected, Name: "credlock_replay_detected_total", Help: "Detected refresh credential replays."},
	{ID: credlock.MetricFamilyRevoked, Name: "credlock_family_revoked_total", Help: "Revoked refresh families."},
	{ID: credlock.MetricRateLimitHit, Name: "credlock_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: credlock.MetricSessionCreated, Name: "credlock_session_created_total", Help: "Created sessions."},
	{ID: credlock.MetricSessionInvalidated, Name: "credlock_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: credlock.MetricLogout, Name: "credlock_logout_total", Help: "Single-family logout operations."},
	{ID: credlock.MetricLogoutAll, Name: "credlock_logout_all_total", Help: "Logout-all operations."},
	{ID: credlock.MetricAccountCreationSuccess, Name: "credlock_account_creation_success_total", Help: "Successful account creations."},
	{ID: credlock.MetricAccountCreationDuplicate, Name: "credlock_account_creation_duplicate_total", Help: "Account creation attempts rejected as duplicate."},
	{ID: credlock.MetricPasswordChangeSuccess, Name: "credlock_password_change_success_total", Help: "Successful password changes."},
	{ID: credlock.MetricPasswordChangeInvalidOld, Name: "credlock_password_change_invalid_old_total", Help: "Password change attempts with invalid old password."},
	{ID: credlock.MetricPasswordChangeReuseRejected, Name: "credlock_password_change_reuse_rejected_total", Help: "Password change attempts rejected for reuse."},
	{ID: credlock.MetricHashUpgrade, Name: "credlock_hash_upgrade_total", Help: "Password hashes transparently upgraded on login."},
}

// HistogramDefs is an exported constant or variable used by the credential engine.
var HistogramDefs = []HistogramDef{
	{ID: credlock.MetricValidateLatency, Name: "credlock_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the credential engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the credential engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
