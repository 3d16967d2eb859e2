package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	credlock "github.com/credlock/credlock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// Postgres implements [credlock.UserStore] on a relational credential
// store. All methods classify failures into the credlock sentinel
// errors so the engine never sees driver-level error types.
type Postgres struct {
	db        *sql.DB
	opTimeout time.Duration
}

// NewPostgres wraps an open database handle. The caller owns the
// handle's lifecycle and should run [RunMigrations] first. opTimeout
// bounds every query; zero disables the per-call deadline.
func NewPostgres(db *sql.DB, opTimeout time.Duration) *Postgres {
	return &Postgres{db: db, opTimeout: opTimeout}
}

func (p *Postgres) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.opTimeout)
}

// Lookup describes the lookup operation and its observable behavior.
//
// Lookup may return an error when input validation, dependency calls, or security checks fail.
// Lookup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Postgres) Lookup(ctx context.Context, identifier string) (credlock.UserRecord, error) {
	query := `SELECT id, identifier, password_hash, created_at, updated_at
	          FROM users
	          WHERE identifier = $1`

	opCtx, cancel := p.opContext(ctx)
	defer cancel()

	var rec credlock.UserRecord
	err := p.db.QueryRowContext(opCtx, query, identifier).Scan(
		&rec.UserID, &rec.Identifier, &rec.PasswordHash, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return credlock.UserRecord{}, credlock.ErrUserNotFound
		}
		return credlock.UserRecord{}, fmt.Errorf("%w: %v", credlock.ErrStoreUnavailable, err)
	}

	return rec, nil
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Postgres) Create(ctx context.Context, identifier, passwordHash string) (credlock.UserRecord, error) {
	query := `INSERT INTO users (id, identifier, password_hash, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $4)`

	now := time.Now().UTC()
	rec := credlock.UserRecord{
		UserID:       uuid.NewString(),
		Identifier:   identifier,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	opCtx, cancel := p.opContext(ctx)
	defer cancel()

	if _, err := p.db.ExecContext(opCtx, query, rec.UserID, rec.Identifier, rec.PasswordHash, now); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return credlock.UserRecord{}, credlock.ErrAccountExists
		}
		return credlock.UserRecord{}, fmt.Errorf("%w: %v", credlock.ErrStoreUnavailable, err)
	}

	return rec, nil
}

// UpdateHash describes the updatehash operation and its observable behavior.
//
// UpdateHash may return an error when input validation, dependency calls, or security checks fail.
// UpdateHash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Postgres) UpdateHash(ctx context.Context, userID, newHash string) error {
	query := `UPDATE users
	          SET password_hash = $2, updated_at = $3
	          WHERE id = $1`

	opCtx, cancel := p.opContext(ctx)
	defer cancel()

	res, err := p.db.ExecContext(opCtx, query, userID, newHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: %v", credlock.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", credlock.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return credlock.ErrUserNotFound
	}

	return nil
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Postgres) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM users WHERE id = $1`

	opCtx, cancel := p.opContext(ctx)
	defer cancel()

	res, err := p.db.ExecContext(opCtx, query, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", credlock.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", credlock.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return credlock.ErrUserNotFound
	}

	return nil
}

// Ping verifies database connectivity, for health endpoints.
func (p *Postgres) Ping(ctx context.Context) error {
	opCtx, cancel := p.opContext(ctx)
	defer cancel()

	if err := p.db.PingContext(opCtx); err != nil {
		return fmt.Errorf("%w: %v", credlock.ErrStoreUnavailable, err)
	}
	return nil
}
