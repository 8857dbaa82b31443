package user

import (
	"net/http"
	"time"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// User is an organization member. Users are created at registration, mutated
// on login and deactivation, and never physically deleted.
type User struct {
	ID             kernel.UserID         `db:"id" json:"id"`
	Email          string                `db:"email" json:"email"`
	PasswordHash   string                `db:"password_hash" json:"-"`
	FirstName      string                `db:"first_name" json:"first_name"`
	LastName       string                `db:"last_name" json:"last_name"`
	Role           kernel.Role           `db:"role" json:"role"`
	OrganizationID kernel.OrganizationID `db:"organization_id" json:"organization_id"`
	IsActive       bool                  `db:"is_active" json:"is_active"`
	LastLoginAt    *time.Time            `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time             `db:"updated_at" json:"updated_at"`
}

// DTO is the external representation without credential material.
type DTO struct {
	ID             kernel.UserID         `json:"id"`
	Email          string                `json:"email"`
	FirstName      string                `json:"first_name"`
	LastName       string                `json:"last_name"`
	Role           kernel.Role           `json:"role"`
	OrganizationID kernel.OrganizationID `json:"organization_id"`
	IsActive       bool                  `json:"is_active"`
	LastLoginAt    *time.Time            `json:"last_login_at,omitempty"`
}

// ToDTO strips credential material.
func (u *User) ToDTO() DTO {
	return DTO{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
		IsActive:       u.IsActive,
		LastLoginAt:    u.LastLoginAt,
	}
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeUserNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
)

func ErrUserNotFound() *errx.Error {
	return ErrRegistry.New(CodeUserNotFound)
}
