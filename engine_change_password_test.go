package credlock

import (
	"context"
	"errors"
	"testing"
)

func TestChangePasswordSuccessRevokesSessions(t *testing.T) {
	store := newMemUserStore()
	engine, _, done := newTestEngine(t, engineTestConfig(), store)
	defer done()
	store.seed(t, engine, "alice", "old-password-123")

	pair, err := engine.Login(context.Background(), "alice", "old-password-123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := engine.ChangePassword(context.Background(), "alice", "old-password-123", "new-password-456"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	// The pre-change refresh family is dead.
	if _, err := engine.Refresh(context.Background(), pair.RefreshCredential); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid after password change, got %v", err)
	}

	// Old password no longer works, new one does.
	if _, err := engine.Login(context.Background(), "alice", "old-password-123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice", "new-password-456"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestChangePasswordWrongOld(t *testing.T) {
	store := newMemUserStore()
	engine, _, done := newTestEngine(t, engineTestConfig(), store)
	defer done()
	store.seed(t, engine, "alice", "old-password-123")

	err := engine.ChangePassword(context.Background(), "alice", "not-the-password", "new-password-456")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricPasswordChangeInvalidOld] != 1 {
		t.Fatalf("expected invalid-old counter 1, got %d", snap.Counters[MetricPasswordChangeInvalidOld])
	}
}

func TestChangePasswordReuseRejected(t *testing.T) {
	store := newMemUserStore()
	engine, _, done := newTestEngine(t, engineTestConfig(), store)
	defer done()
	store.seed(t, engine, "alice", "old-password-123")

	err := engine.ChangePassword(context.Background(), "alice", "old-password-123", "old-password-123")
	if !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse, got %v", err)
	}
}

func TestChangePasswordPolicy(t *testing.T) {
	store := newMemUserStore()
	engine, _, done := newTestEngine(t, engineTestConfig(), store)
	defer done()
	store.seed(t, engine, "alice", "old-password-123")

	err := engine.ChangePassword(context.Background(), "alice", "old-password-123", "short")
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
}

func TestChangePasswordUnknownIdentifier(t *testing.T) {
	store := newMemUserStore()
	engine, _, done := newTestEngine(t, engineTestConfig(), store)
	defer done()

	err := engine.ChangePassword(context.Background(), "nobody", "old-password-123", "new-password-456")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestChangePasswordStoreFailure(t *testing.T) {
	store := newMemUserStore()
	engine, _, done := newTestEngine(t, engineTestConfig(), store)
	defer done()
	store.seed(t, engine, "alice", "old-password-123")

	store.updateErr = errors.New("connection refused")
	err := engine.ChangePassword(context.Background(), "alice", "old-password-123", "new-password-456")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
