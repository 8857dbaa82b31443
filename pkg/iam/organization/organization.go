// Package organization holds the tenant boundary: organizations and their
// environments. Every child entity in the system carries an organizationId
// and every query filters by it; crossing that boundary is a correctness
// violation, not a policy choice.
package organization

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// Organization is the tenant root. It owns users, environments, flags, API
// keys, and audit logs.
type Organization struct {
	ID        kernel.OrganizationID `db:"id" json:"id"`
	Name      string                `db:"name" json:"name"`
	Slug      string                `db:"slug" json:"slug"`
	CreatedAt time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt time.Time             `db:"updated_at" json:"updated_at"`
}

// Environment is one deployment stage inside an organization. Every
// organization gets the default three at registration.
type Environment struct {
	ID             kernel.EnvironmentID  `db:"id" json:"id"`
	Name           string                `db:"name" json:"name"`
	Key            string                `db:"key" json:"key"`
	Description    string                `db:"description" json:"description"`
	SortOrder      int                   `db:"sort_order" json:"sort_order"`
	OrganizationID kernel.OrganizationID `db:"organization_id" json:"organization_id"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
}

// DefaultEnvironments are created with every new organization.
func DefaultEnvironments() []Environment {
	return []Environment{
		{Name: "Development", Key: "dev", Description: "Development environment", SortOrder: 1},
		{Name: "Staging", Key: "staging", Description: "Staging environment", SortOrder: 2},
		{Name: "Production", Key: "prod", Description: "Production environment", SortOrder: 3},
	}
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from an organization name.
func Slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("ORG")

var (
	CodeOrgNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Organization not found")
	CodeEnvNotFound = ErrRegistry.Register("ENVIRONMENT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Environment not found")
)

func ErrOrgNotFound() *errx.Error {
	return ErrRegistry.New(CodeOrgNotFound)
}

func ErrEnvNotFound() *errx.Error {
	return ErrRegistry.New(CodeEnvNotFound)
}
