// Package apikeyinfra provides the PostgreSQL implementation of
// apikey.Repository.
package apikeyinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam/apikey"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// PostgresAPIKeyRepository is the PostgreSQL implementation of
// apikey.Repository.
type PostgresAPIKeyRepository struct {
	db *sqlx.DB
}

// NewPostgresAPIKeyRepository creates a new repository instance.
func NewPostgresAPIKeyRepository(db *sqlx.DB) apikey.Repository {
	return &PostgresAPIKeyRepository{db: db}
}

func (r *PostgresAPIKeyRepository) Create(ctx context.Context, key apikey.APIKey) error {
	query := `
		INSERT INTO api_keys (
			id, name, key_hash, key_prefix, organization_id, environment_id,
			created_by_id, status, usage_count, last_used_at, revoked_at,
			created_at, updated_at
		) VALUES (
			:id, :name, :key_hash, :key_prefix, :organization_id, :environment_id,
			:created_by_id, :status, :usage_count, :last_used_at, :revoked_at,
			:created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, key); err != nil {
		return errx.Wrap(err, "failed to insert API key", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresAPIKeyRepository) FindByID(ctx context.Context, id string, orgID kernel.OrganizationID) (*apikey.APIKey, error) {
	var key apikey.APIKey
	query := `SELECT * FROM api_keys WHERE id = $1 AND organization_id = $2`
	err := r.db.GetContext(ctx, &key, query, id, orgID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apikey.ErrAPIKeyNotFound()
		}
		return nil, errx.Wrap(err, "failed to find API key", errx.TypeInternal)
	}
	return &key, nil
}

func (r *PostgresAPIKeyRepository) FindByHash(ctx context.Context, keyHash string) (*apikey.APIKey, error) {
	var key apikey.APIKey
	query := `SELECT * FROM api_keys WHERE key_hash = $1`
	err := r.db.GetContext(ctx, &key, query, keyHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apikey.ErrAPIKeyNotFound()
		}
		return nil, errx.Wrap(err, "failed to find API key by hash", errx.TypeInternal)
	}
	return &key, nil
}

func (r *PostgresAPIKeyRepository) FindByOrganization(ctx context.Context, orgID kernel.OrganizationID) ([]*apikey.APIKey, error) {
	keys := []*apikey.APIKey{}
	query := `SELECT * FROM api_keys WHERE organization_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &keys, query, orgID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list API keys", errx.TypeInternal)
	}
	return keys, nil
}

func (r *PostgresAPIKeyRepository) MarkRevoked(ctx context.Context, id string, orgID kernel.OrganizationID, at time.Time) error {
	query := `
		UPDATE api_keys
		SET status = $1, revoked_at = $2, updated_at = $2
		WHERE id = $3 AND organization_id = $4`
	result, err := r.db.ExecContext(ctx, query, apikey.StatusRevoked, at, id, orgID.String())
	if err != nil {
		return errx.Wrap(err, "failed to revoke API key", errx.TypeInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on revoke", errx.TypeInternal)
	}
	if rows == 0 {
		return apikey.ErrAPIKeyNotFound()
	}
	return nil
}

func (r *PostgresAPIKeyRepository) Delete(ctx context.Context, id string, orgID kernel.OrganizationID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1 AND organization_id = $2`, id, orgID.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete API key", errx.TypeInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rows == 0 {
		return apikey.ErrAPIKeyNotFound()
	}
	return nil
}

// RecordUsage increments in SQL rather than read-modify-write, so concurrent
// verifications never lose counts.
func (r *PostgresAPIKeyRepository) RecordUsage(ctx context.Context, id string) error {
	query := `
		UPDATE api_keys
		SET usage_count = usage_count + 1, last_used_at = NOW(), updated_at = NOW()
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return errx.Wrap(err, "failed to record API key usage", errx.TypeInternal)
	}
	return nil
}
