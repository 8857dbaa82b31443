// Package authinfra provides the PostgreSQL registration store.
package authinfra

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam/auth"
	"github.com/flagforge/flagforge/pkg/iam/organization"
	"github.com/flagforge/flagforge/pkg/iam/user"
)

// uniqueViolation is the postgres error code for duplicate keys.
const uniqueViolation = "23505"

// PostgresRegistrationStore persists the registration aggregate.
type PostgresRegistrationStore struct {
	db *sqlx.DB
}

// NewPostgresRegistrationStore creates a new store instance.
func NewPostgresRegistrationStore(db *sqlx.DB) auth.RegistrationStore {
	return &PostgresRegistrationStore{db: db}
}

// CreateOrganization inserts the organization, its environments, and the
// founding admin inside one transaction. A duplicate email or slug surfaces
// as a conflict.
func (s *PostgresRegistrationStore) CreateOrganization(ctx context.Context, org organization.Organization, envs []organization.Environment, admin user.User) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin registration transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	orgQuery := `
		INSERT INTO organizations (id, name, slug, created_at, updated_at)
		VALUES (:id, :name, :slug, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, orgQuery, org); err != nil {
		return mapInsertError(err, "failed to insert organization")
	}

	envQuery := `
		INSERT INTO environments (id, name, key, description, sort_order, organization_id, created_at)
		VALUES (:id, :name, :key, :description, :sort_order, :organization_id, :created_at)`
	for _, env := range envs {
		if _, err := tx.NamedExecContext(ctx, envQuery, env); err != nil {
			return mapInsertError(err, "failed to insert environment")
		}
	}

	userQuery := `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name, role,
			organization_id, is_active, last_login_at, created_at, updated_at
		) VALUES (
			:id, :email, :password_hash, :first_name, :last_name, :role,
			:organization_id, :is_active, :last_login_at, :created_at, :updated_at
		)`
	if _, err := tx.NamedExecContext(ctx, userQuery, admin); err != nil {
		return mapInsertError(err, "failed to insert admin user")
	}

	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, "failed to commit registration", errx.TypeInternal)
	}
	return nil
}

func mapInsertError(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return auth.ErrEmailTaken()
	}
	return errx.Wrap(err, message, errx.TypeInternal)
}
