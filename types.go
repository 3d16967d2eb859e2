package credlock

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/credlock/credlock/internal/audit"
)

// UserRecord is the full account record returned by [UserStore]. It
// carries the stable user ID, the login identifier, and the PHC-encoded
// password hash.
type UserRecord struct {
	UserID       string
	Identifier   string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserStore is the interface that callers must implement to integrate
// credlock with their credential database. It covers identifier lookup,
// account creation, password hash updates, and account removal.
//
//	Docs: docs/engine.md, docs/usage.md
type UserStore interface {
	Lookup(ctx context.Context, identifier string) (UserRecord, error)
	Create(ctx context.Context, identifier, passwordHash string) (UserRecord, error)
	UpdateHash(ctx context.Context, userID, newHash string) error
	Delete(ctx context.Context, userID string) error
}

// TokenPair carries a freshly minted access token and the opaque
// refresh credential that can redeem the next generation.
type TokenPair struct {
	AccessToken       string
	RefreshCredential string
}

// AuthResult is returned by [Engine.Validate]. It contains the
// authenticated user's ID and the family and session the access token
// was minted for.
//
//	Docs: docs/jwt.md
type AuthResult struct {
	UserID    string
	FamilyID  string
	SessionID string
}

// CreateAccountRequest is the input for [Engine.Register]. Identifier
// and Password are required.
type CreateAccountRequest struct {
	Identifier string
	Password   string
}

// CreateAccountResult is returned by [Engine.Register]. It includes the
// new UserID and, when AutoLogin is enabled, access and refresh tokens.
type CreateAccountResult struct {
	UserID            string
	AccessToken       string
	RefreshCredential string
}

// AuditEvent is a structured audit record emitted by the engine.
//
//	Docs: docs/audit.md
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine’s audit dispatcher.
//
//	Docs: docs/audit.md
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
//
//	Docs: docs/audit.md
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
//
//	Docs: docs/audit.md
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
//
//	Docs: docs/audit.md
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
//
//	Docs: docs/audit.md
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
