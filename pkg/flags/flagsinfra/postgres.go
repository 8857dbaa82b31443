// Package flagsinfra provides the PostgreSQL implementation of
// flags.Provider.
package flagsinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/flags"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// PostgresFlagProvider reads flag values from the flag_values view, which
// joins flag definitions with their per-environment state.
type PostgresFlagProvider struct {
	db *sqlx.DB
}

// NewPostgresFlagProvider creates a new provider instance.
func NewPostgresFlagProvider(db *sqlx.DB) flags.Provider {
	return &PostgresFlagProvider{db: db}
}

func (p *PostgresFlagProvider) ActiveFlagValues(ctx context.Context, orgID kernel.OrganizationID, envID kernel.EnvironmentID) ([]flags.Value, error) {
	values := []flags.Value{}
	query := `
		SELECT key, enabled, payload, updated_at
		FROM flag_values
		WHERE organization_id = $1 AND environment_id = $2 AND archived = false
		ORDER BY key`
	if err := p.db.SelectContext(ctx, &values, query, orgID.String(), envID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list flag values", errx.TypeInternal)
	}
	return values, nil
}

func (p *PostgresFlagProvider) FlagValue(ctx context.Context, orgID kernel.OrganizationID, envID kernel.EnvironmentID, key string) (*flags.Value, error) {
	var value flags.Value
	query := `
		SELECT key, enabled, payload, updated_at
		FROM flag_values
		WHERE organization_id = $1 AND environment_id = $2 AND key = $3 AND archived = false`
	err := p.db.GetContext(ctx, &value, query, orgID.String(), envID.String(), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, flags.ErrFlagNotFound()
		}
		return nil, errx.Wrap(err, "failed to load flag value", errx.TypeInternal)
	}
	return &value, nil
}
