package organization

import (
	"context"

	"github.com/flagforge/flagforge/pkg/kernel"
)

// Repository is the persistence contract for organizations and their
// environments. Environment lookups are always scoped by organization.
type Repository interface {
	FindByID(ctx context.Context, id kernel.OrganizationID) (*Organization, error)
	FindByName(ctx context.Context, name string) (*Organization, error)
	FindEnvironment(ctx context.Context, id kernel.EnvironmentID, orgID kernel.OrganizationID) (*Environment, error)
	ListEnvironments(ctx context.Context, orgID kernel.OrganizationID) ([]*Environment, error)
}
