package userinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam/user"
	"github.com/flagforge/flagforge/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresUserRepository is the PostgreSQL implementation of user.Repository.
type PostgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository creates a new repository instance.
func NewPostgresUserRepository(db *sqlx.DB) user.Repository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	query := `SELECT * FROM users WHERE email = $1`
	if err := r.db.GetContext(ctx, &u, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by email", errx.TypeInternal)
	}
	return &u, nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id kernel.UserID) (*user.User, error) {
	var u user.User
	query := `SELECT * FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &u, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by id", errx.TypeInternal)
	}
	return &u, nil
}

func (r *PostgresUserRepository) UpdateLastLogin(ctx context.Context, id kernel.UserID, at time.Time) error {
	query := `UPDATE users SET last_login_at = $1, updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, at, id.String()); err != nil {
		return errx.Wrap(err, "failed to update last login", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresUserRepository) SetActive(ctx context.Context, id kernel.UserID, orgID kernel.OrganizationID, active bool) error {
	query := `UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2 AND organization_id = $3`
	result, err := r.db.ExecContext(ctx, query, active, id.String(), orgID.String())
	if err != nil {
		return errx.Wrap(err, "failed to update user active flag", errx.TypeInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rows == 0 {
		return user.ErrUserNotFound()
	}
	return nil
}
