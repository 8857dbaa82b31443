package auditinfra

import (
	"context"
	"time"

	"github.com/flagforge/flagforge/pkg/iam/audit"
	"github.com/flagforge/flagforge/pkg/logx"
)

// LogxRecorder implements audit.Recorder with structured logx logging. The
// durable audit-log writer lives outside the core; this recorder is what
// ships until it is wired in, and stays useful as an operational trace.
type LogxRecorder struct{}

func NewLogxRecorder() *LogxRecorder {
	return &LogxRecorder{}
}

func (r *LogxRecorder) Record(_ context.Context, fact audit.Fact) {
	fields := logx.Fields{
		"audit_event":     fact.Action,
		"resource_type":   fact.ResourceType,
		"resource_id":     fact.ResourceID,
		"organization_id": fact.OrganizationID,
		"user_id":         fact.UserID,
		"ip":              fact.IPAddress,
		"user_agent":      fact.UserAgent,
		"timestamp":       time.Now(),
	}
	if fact.ResourceName != "" {
		fields["resource_name"] = fact.ResourceName
	}
	if fact.Changes != nil {
		fields["changes_before"] = fact.Changes.Before
		fields["changes_after"] = fact.Changes.After
	}
	logx.WithFields(fields).Info("Audit: " + fact.Action)
}
