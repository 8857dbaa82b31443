package auth

import (
	"context"

	"github.com/flagforge/flagforge/pkg/iam/organization"
	"github.com/flagforge/flagforge/pkg/iam/user"
)

// RegistrationStore persists the full registration aggregate in one
// transaction: the organization, its default environments, and the founding
// admin user. Either everything commits or nothing does.
type RegistrationStore interface {
	CreateOrganization(ctx context.Context, org organization.Organization, envs []organization.Environment, admin user.User) error
}
