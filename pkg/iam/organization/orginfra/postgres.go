package orginfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam/organization"
	"github.com/flagforge/flagforge/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresOrganizationRepository is the PostgreSQL implementation of
// organization.Repository.
type PostgresOrganizationRepository struct {
	db *sqlx.DB
}

// NewPostgresOrganizationRepository creates a new repository instance.
func NewPostgresOrganizationRepository(db *sqlx.DB) organization.Repository {
	return &PostgresOrganizationRepository{db: db}
}

func (r *PostgresOrganizationRepository) FindByID(ctx context.Context, id kernel.OrganizationID) (*organization.Organization, error) {
	var org organization.Organization
	query := `SELECT * FROM organizations WHERE id = $1`
	if err := r.db.GetContext(ctx, &org, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, organization.ErrOrgNotFound()
		}
		return nil, errx.Wrap(err, "failed to find organization", errx.TypeInternal)
	}
	return &org, nil
}

func (r *PostgresOrganizationRepository) FindByName(ctx context.Context, name string) (*organization.Organization, error) {
	var org organization.Organization
	query := `SELECT * FROM organizations WHERE LOWER(name) = LOWER($1)`
	if err := r.db.GetContext(ctx, &org, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, organization.ErrOrgNotFound()
		}
		return nil, errx.Wrap(err, "failed to find organization", errx.TypeInternal)
	}
	return &org, nil
}

func (r *PostgresOrganizationRepository) FindEnvironment(ctx context.Context, id kernel.EnvironmentID, orgID kernel.OrganizationID) (*organization.Environment, error) {
	var env organization.Environment
	query := `SELECT * FROM environments WHERE id = $1 AND organization_id = $2`
	if err := r.db.GetContext(ctx, &env, query, id.String(), orgID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, organization.ErrEnvNotFound()
		}
		return nil, errx.Wrap(err, "failed to find environment", errx.TypeInternal)
	}
	return &env, nil
}

func (r *PostgresOrganizationRepository) ListEnvironments(ctx context.Context, orgID kernel.OrganizationID) ([]*organization.Environment, error) {
	var envs []*organization.Environment
	query := `SELECT * FROM environments WHERE organization_id = $1 ORDER BY sort_order ASC`
	if err := r.db.SelectContext(ctx, &envs, query, orgID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list environments", errx.TypeInternal)
	}
	return envs, nil
}
