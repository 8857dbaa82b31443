// Package audit defines the audit facts the IAM core emits. Persistence is
// an external concern; the core only produces facts and hands them to a
// Recorder.
package audit

import (
	"context"

	"github.com/flagforge/flagforge/pkg/kernel"
)

// Well-known actions.
const (
	ActionUserRegistered  = "USER_REGISTERED"
	ActionUserLogin       = "USER_LOGIN"
	ActionUserLoginFailed = "USER_LOGIN_FAILED"
	ActionUserLogout      = "USER_LOGOUT"
	ActionTokenReuse      = "REFRESH_TOKEN_REUSE_DETECTED"
	ActionAPIKeyCreated   = "API_KEY_CREATED"
	ActionAPIKeyRevoked   = "API_KEY_REVOKED"
	ActionAPIKeyDeleted   = "API_KEY_DELETED"
)

// Changes captures a before/after pair for mutating operations.
type Changes struct {
	Before any `json:"before,omitempty"`
	After  any `json:"after,omitempty"`
}

// Fact is one audit record.
type Fact struct {
	Action         string                `json:"action"`
	ResourceType   string                `json:"resource_type"`
	ResourceID     string                `json:"resource_id"`
	ResourceName   string                `json:"resource_name,omitempty"`
	OrganizationID kernel.OrganizationID `json:"organization_id"`
	UserID         kernel.UserID         `json:"user_id,omitempty"`
	IPAddress      string                `json:"ip_address,omitempty"`
	UserAgent      string                `json:"user_agent,omitempty"`
	Changes        *Changes              `json:"changes,omitempty"`
}

// Recorder consumes audit facts. Implementations must never fail the
// operation that emitted the fact.
type Recorder interface {
	Record(ctx context.Context, fact Fact)
}
