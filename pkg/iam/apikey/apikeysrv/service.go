// Package apikeysrv implements the API key lifecycle: minting, verification
// on the ingest path, revocation and deletion.
package apikeysrv

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flagforge/flagforge/pkg/asyncx"
	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam/apikey"
	"github.com/flagforge/flagforge/pkg/iam/audit"
	"github.com/flagforge/flagforge/pkg/iam/credential"
	"github.com/flagforge/flagforge/pkg/iam/organization"
	"github.com/flagforge/flagforge/pkg/kernel"
	"github.com/flagforge/flagforge/pkg/logx"
)

const usageRecordTimeout = 5 * time.Second

type Service struct {
	keys     apikey.Repository
	orgs     organization.Repository
	recorder audit.Recorder
}

func NewService(keys apikey.Repository, orgs organization.Repository, recorder audit.Recorder) *Service {
	return &Service{keys: keys, orgs: orgs, recorder: recorder}
}

// CreateInput carries everything needed to mint a key.
type CreateInput struct {
	Name          string
	EnvironmentID kernel.EnvironmentID
	Meta          kernel.RequestMeta
}

// Created is the one response that ever contains the plaintext key.
type Created struct {
	Key       *apikey.APIKey `json:"key"`
	Plaintext string         `json:"plaintext"`
}

// Create mints a key for an environment belonging to the caller's
// organization. The plaintext is returned once and never stored.
func (s *Service) Create(ctx context.Context, auth kernel.AuthContext, in CreateInput) (*Created, error) {
	if in.Name == "" {
		return nil, errx.Validation("API key name is required")
	}
	if in.EnvironmentID.IsEmpty() {
		return nil, errx.Validation("environment_id is required")
	}

	env, err := s.orgs.FindEnvironment(ctx, in.EnvironmentID, auth.OrganizationID)
	if err != nil {
		if errx.IsCode(err, organization.CodeEnvNotFound) {
			return nil, err
		}
		return nil, errx.Wrap(err, "failed to load environment", errx.TypeInternal)
	}

	plaintext, err := apikey.Generate(env.Key)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	key := apikey.APIKey{
		ID:             uuid.NewString(),
		Name:           in.Name,
		KeyHash:        credential.HashAPIKeySecret(plaintext),
		KeyPrefix:      credential.DerivePrefix(plaintext),
		OrganizationID: auth.OrganizationID,
		EnvironmentID:  env.ID,
		CreatedByID:    auth.UserID,
		Status:         apikey.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.keys.Create(ctx, key); err != nil {
		return nil, errx.Wrap(err, "failed to store API key", errx.TypeInternal)
	}

	s.recorder.Record(ctx, audit.Fact{
		Action:         audit.ActionAPIKeyCreated,
		ResourceType:   "api_key",
		ResourceID:     key.ID,
		ResourceName:   key.Name,
		OrganizationID: auth.OrganizationID,
		UserID:         auth.UserID,
		IPAddress:      in.Meta.IPAddress,
		UserAgent:      in.Meta.UserAgent,
		Changes:        &audit.Changes{After: key},
	})

	return &Created{Key: &key, Plaintext: plaintext}, nil
}

// Verify authenticates a presented plaintext key. Format failures, unknown
// digests and revoked keys all surface as 401; the caller cannot distinguish
// them. Usage recording is fire-and-forget and never delays the request.
func (s *Service) Verify(ctx context.Context, presented string) (*kernel.APIKeyContext, error) {
	if presented == "" {
		return nil, apikey.ErrAPIKeyRequired()
	}
	if !apikey.ValidateFormat(presented) {
		return nil, apikey.ErrAPIKeyInvalid()
	}

	key, err := s.keys.FindByHash(ctx, credential.HashAPIKeySecret(presented))
	if err != nil {
		if errx.IsCode(err, apikey.CodeNotFound) {
			return nil, apikey.ErrAPIKeyInvalid()
		}
		return nil, errx.Wrap(err, "failed to look up API key", errx.TypeInternal)
	}
	if !key.IsActive() {
		return nil, apikey.ErrAPIKeyRevoked()
	}

	env, err := s.orgs.FindEnvironment(ctx, key.EnvironmentID, key.OrganizationID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to load key environment", errx.TypeInternal)
	}

	keyID := key.ID
	asyncx.Detach(usageRecordTimeout, func(ctx context.Context) {
		if err := s.keys.RecordUsage(ctx, keyID); err != nil {
			logx.WithError(err).WithField("api_key_id", keyID).Warn("failed to record API key usage")
		}
	})

	return &kernel.APIKeyContext{
		KeyID:          key.ID,
		OrganizationID: key.OrganizationID,
		EnvironmentID:  key.EnvironmentID,
		EnvironmentKey: env.Key,
	}, nil
}

// Revoke disables a key. Revoking an already revoked key is a client error,
// not a no-op.
func (s *Service) Revoke(ctx context.Context, auth kernel.AuthContext, id string, meta kernel.RequestMeta) (*apikey.APIKey, error) {
	key, err := s.keys.FindByID(ctx, id, auth.OrganizationID)
	if err != nil {
		return nil, err
	}
	if key.Status == apikey.StatusRevoked {
		return nil, apikey.ErrAPIKeyAlreadyRevoked()
	}

	before := *key
	key.Revoke()
	if err := s.keys.MarkRevoked(ctx, key.ID, auth.OrganizationID, *key.RevokedAt); err != nil {
		return nil, errx.Wrap(err, "failed to revoke API key", errx.TypeInternal)
	}

	s.recorder.Record(ctx, audit.Fact{
		Action:         audit.ActionAPIKeyRevoked,
		ResourceType:   "api_key",
		ResourceID:     key.ID,
		ResourceName:   key.Name,
		OrganizationID: auth.OrganizationID,
		UserID:         auth.UserID,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
		Changes:        &audit.Changes{Before: before, After: *key},
	})

	return key, nil
}

// Delete removes a key permanently. The key may be in any status.
func (s *Service) Delete(ctx context.Context, auth kernel.AuthContext, id string, meta kernel.RequestMeta) error {
	key, err := s.keys.FindByID(ctx, id, auth.OrganizationID)
	if err != nil {
		return err
	}

	if err := s.keys.Delete(ctx, key.ID, auth.OrganizationID); err != nil {
		return errx.Wrap(err, "failed to delete API key", errx.TypeInternal)
	}

	s.recorder.Record(ctx, audit.Fact{
		Action:         audit.ActionAPIKeyDeleted,
		ResourceType:   "api_key",
		ResourceID:     key.ID,
		ResourceName:   key.Name,
		OrganizationID: auth.OrganizationID,
		UserID:         auth.UserID,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
		Changes:        &audit.Changes{Before: *key},
	})

	return nil
}

// List returns every key in the caller's organization, hashes excluded by
// the model's marshalling.
func (s *Service) List(ctx context.Context, auth kernel.AuthContext) ([]*apikey.APIKey, error) {
	keys, err := s.keys.FindByOrganization(ctx, auth.OrganizationID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to list API keys", errx.TypeInternal)
	}
	return keys, nil
}
