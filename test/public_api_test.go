package test

import (
	"context"
	"net/http"
	"testing"

	credlock "github.com/credlock/credlock"
	"github.com/credlock/credlock/middleware"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = credlock.New

	var _ *credlock.Engine
	var _ credlock.Config
	var _ credlock.AuthResult
	var _ credlock.TokenPair
	var _ credlock.CreateAccountRequest
	var _ credlock.CreateAccountResult
	var _ credlock.UserStore
	var _ credlock.AuditSink

	var _ error = credlock.ErrUnauthorized
	var _ error = credlock.ErrInvalidCredentials
	var _ error = credlock.ErrReplayDetected
	var _ error = credlock.ErrSessionInvalid
	var _ error = credlock.ErrTokenInvalid
	var _ error = credlock.ErrTokenExpired

	var _ func(*credlock.Engine) func(http.Handler) http.Handler = middleware.Guard

	var _ func(*credlock.Engine, context.Context, string, string) (*credlock.TokenPair, error) = (*credlock.Engine).Login
	var _ func(*credlock.Engine, context.Context, string) (*credlock.TokenPair, error) = (*credlock.Engine).Refresh
	var _ func(*credlock.Engine, context.Context, string) (*credlock.AuthResult, error) = (*credlock.Engine).Validate
	var _ func(*credlock.Engine, context.Context, string) error = (*credlock.Engine).Logout
	var _ func(*credlock.Engine, context.Context, string) error = (*credlock.Engine).LogoutAll
	var _ func(*credlock.Engine, context.Context, string) error = (*credlock.Engine).DeleteAccount
}
