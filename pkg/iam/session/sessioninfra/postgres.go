package sessioninfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam/session"
	"github.com/flagforge/flagforge/pkg/kernel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// placeholderHash marks a chain created but not yet finalized. It can never
// collide with a real SHA-256 hex digest.
const placeholderHash = "pending"

// PostgresSessionStore is the PostgreSQL implementation of session.Store.
type PostgresSessionStore struct {
	db *sqlx.DB
}

// NewPostgresSessionStore creates a new store instance.
func NewPostgresSessionStore(db *sqlx.DB) session.Store {
	return &PostgresSessionStore{db: db}
}

func (s *PostgresSessionStore) Create(ctx context.Context, userID kernel.UserID, orgID kernel.OrganizationID, expiresAt time.Time) (*session.RefreshSession, error) {
	now := time.Now().UTC()
	rec := &session.RefreshSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		OrganizationID: orgID,
		TokenHash:      placeholderHash,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	query := `
		INSERT INTO refresh_sessions (
			id, user_id, organization_id, token_hash, expires_at, created_at, updated_at
		) VALUES (
			:id, :user_id, :organization_id, :token_hash, :expires_at, :created_at, :updated_at
		)`

	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return nil, errx.Wrap(err, "failed to create refresh session", errx.TypeInternal)
	}
	return rec, nil
}

func (s *PostgresSessionStore) Finalize(ctx context.Context, id, tokenHash string) error {
	query := `UPDATE refresh_sessions SET token_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, tokenHash, time.Now().UTC(), id)
	if err != nil {
		return errx.Wrap(err, "failed to finalize refresh session", errx.TypeInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on finalize", errx.TypeInternal)
	}
	if rows == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *PostgresSessionStore) FindByID(ctx context.Context, id string) (*session.RefreshSession, error) {
	var rec session.RefreshSession
	query := `SELECT * FROM refresh_sessions WHERE id = $1`
	err := s.db.GetContext(ctx, &rec, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, errx.Wrap(err, "failed to find refresh session", errx.TypeInternal)
	}
	return &rec, nil
}

// Rotate advances a chain inside one transaction. The SELECT ... FOR UPDATE
// serializes concurrent rotations on the same chain: the loser blocks until
// the winner commits, then observes the already-advanced hash and fails with
// ErrHashMismatch.
func (s *PostgresSessionStore) Rotate(ctx context.Context, id, presentedHash, nextHash string, nextExpiresAt time.Time) (*session.RefreshSession, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errx.Wrap(err, "failed to begin rotate transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	var rec session.RefreshSession
	query := `SELECT * FROM refresh_sessions WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, errx.Wrap(err, "failed to lock refresh session", errx.TypeInternal)
	}

	if rec.IsExpired() {
		if _, err := tx.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE id = $1`, id); err != nil {
			return nil, errx.Wrap(err, "failed to delete expired refresh session", errx.TypeInternal)
		}
		if err := tx.Commit(); err != nil {
			return nil, errx.Wrap(err, "failed to commit expiry cleanup", errx.TypeInternal)
		}
		return nil, session.ErrExpired
	}

	if rec.TokenHash != presentedHash {
		return nil, session.ErrHashMismatch
	}

	now := time.Now().UTC()
	update := `UPDATE refresh_sessions SET token_hash = $1, expires_at = $2, updated_at = $3 WHERE id = $4`
	if _, err := tx.ExecContext(ctx, update, nextHash, nextExpiresAt, now, id); err != nil {
		return nil, errx.Wrap(err, "failed to rotate refresh session", errx.TypeInternal)
	}
	if err := tx.Commit(); err != nil {
		return nil, errx.Wrap(err, "failed to commit rotation", errx.TypeInternal)
	}

	rec.TokenHash = nextHash
	rec.ExpiresAt = nextExpiresAt
	rec.UpdatedAt = now
	return &rec, nil
}

func (s *PostgresSessionStore) DeleteByID(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE id = $1`, id); err != nil {
		return errx.Wrap(err, "failed to delete refresh session", errx.TypeInternal)
	}
	return nil
}

func (s *PostgresSessionStore) DeleteAllForUser(ctx context.Context, userID kernel.UserID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE user_id = $1`, userID.String()); err != nil {
		return errx.Wrap(err, "failed to delete user refresh sessions", errx.TypeInternal)
	}
	return nil
}

func (s *PostgresSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, errx.Wrap(err, "failed to sweep expired refresh sessions", errx.TypeInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errx.Wrap(err, "failed to get rows affected on sweep", errx.TypeInternal)
	}
	return rows, nil
}
