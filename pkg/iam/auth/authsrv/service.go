// Package authsrv implements the authentication flows on top of the session
// store, the token codec, and the credential hasher.
package authsrv

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam/audit"
	"github.com/flagforge/flagforge/pkg/iam/auth"
	"github.com/flagforge/flagforge/pkg/iam/credential"
	"github.com/flagforge/flagforge/pkg/iam/organization"
	"github.com/flagforge/flagforge/pkg/iam/ratelimit"
	"github.com/flagforge/flagforge/pkg/iam/session"
	"github.com/flagforge/flagforge/pkg/iam/token"
	"github.com/flagforge/flagforge/pkg/iam/user"
	"github.com/flagforge/flagforge/pkg/kernel"
	"github.com/flagforge/flagforge/pkg/logx"
)

type Service struct {
	users    user.Repository
	regs     auth.RegistrationStore
	sessions session.Store
	codec    *token.Codec
	hasher   *credential.Hasher
	recorder audit.Recorder

	// limiter may be nil; login then runs unthrottled.
	limiter *ratelimit.Limiter
}

func NewService(
	users user.Repository,
	regs auth.RegistrationStore,
	sessions session.Store,
	codec *token.Codec,
	hasher *credential.Hasher,
	recorder audit.Recorder,
	limiter *ratelimit.Limiter,
) *Service {
	return &Service{
		users:    users,
		regs:     regs,
		sessions: sessions,
		codec:    codec,
		hasher:   hasher,
		recorder: recorder,
		limiter:  limiter,
	}
}

// RegisterInput carries a new organization and its founding admin.
type RegisterInput struct {
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
}

// LoginInput carries a password login attempt.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an organization with its three default environments and
// the founding ADMIN user, then signs the user in.
func (s *Service) Register(ctx context.Context, in RegisterInput, meta kernel.RequestMeta) (*auth.Result, error) {
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, errx.Wrap(err, "failed to hash password", errx.TypeInternal)
	}

	now := time.Now().UTC()
	org := organization.Organization{
		ID:        kernel.NewOrganizationID(uuid.NewString()),
		Name:      in.OrganizationName,
		Slug:      organization.Slugify(in.OrganizationName),
		CreatedAt: now,
		UpdatedAt: now,
	}

	envs := organization.DefaultEnvironments()
	for i := range envs {
		envs[i].ID = kernel.NewEnvironmentID(uuid.NewString())
		envs[i].OrganizationID = org.ID
		envs[i].CreatedAt = now
	}

	admin := user.User{
		ID:             kernel.NewUserID(uuid.NewString()),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:   passwordHash,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Role:           kernel.RoleAdmin,
		OrganizationID: org.ID,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.regs.CreateOrganization(ctx, org, envs, admin); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.Fact{
		Action:         audit.ActionUserRegistered,
		ResourceType:   "user",
		ResourceID:     admin.ID.String(),
		ResourceName:   admin.Email,
		OrganizationID: org.ID,
		UserID:         admin.ID,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
	})

	tokens, err := s.issueTokens(ctx, &admin)
	if err != nil {
		return nil, err
	}
	return &auth.Result{User: admin.ToDTO(), Tokens: *tokens}, nil
}

// Login verifies a password and issues a token pair. Unknown emails, wrong
// passwords, and deactivated accounts produce byte-identical failures so a
// caller can never enumerate accounts.
func (s *Service) Login(ctx context.Context, in LoginInput, meta kernel.RequestMeta) (*auth.Result, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	limiterKey := email + "|" + meta.IPAddress

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, limiterKey); err != nil {
			return nil, err
		}
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errx.IsCode(err, user.CodeUserNotFound) {
			// Burn a hash comparison so the miss costs as much as a mismatch.
			s.hasher.VerifyPassword(in.Password, "$2a$10$invalidsaltinvalidsaltinvalidsaltinvalidsalthash")
			return nil, s.loginFailure(ctx, email, meta)
		}
		return nil, errx.Wrap(err, "failed to load user", errx.TypeInternal)
	}

	if !s.hasher.VerifyPassword(in.Password, u.PasswordHash) {
		return nil, s.loginFailure(ctx, email, meta)
	}
	if !u.IsActive {
		return nil, s.loginFailure(ctx, email, meta)
	}

	if s.limiter != nil {
		s.limiter.Reset(ctx, limiterKey)
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		logx.WithError(err).WithField("user_id", u.ID.String()).Warn("failed to update last login")
	}
	u.LastLoginAt = &now

	s.recorder.Record(ctx, audit.Fact{
		Action:         audit.ActionUserLogin,
		ResourceType:   "user",
		ResourceID:     u.ID.String(),
		ResourceName:   u.Email,
		OrganizationID: u.OrganizationID,
		UserID:         u.ID,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
	})

	tokens, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, err
	}
	return &auth.Result{User: u.ToDTO(), Tokens: *tokens}, nil
}

// Refresh rotates a session chain and returns a fresh token pair. Presenting
// a superseded token is treated as credential theft: the whole chain set for
// that user is revoked and the caller gets a reuse error.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta kernel.RequestMeta) (*auth.TokenPair, error) {
	if s.limiter != nil && meta.IPAddress != "" {
		if err := s.limiter.Allow(ctx, "refresh:"+meta.IPAddress); err != nil {
			return nil, err
		}
	}

	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, mapTokenError(err)
	}

	nextRefresh, err := s.codec.SignRefresh(claims.UserID, claims.TokenID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to sign refresh token", errx.TypeInternal)
	}

	rec, err := s.sessions.Rotate(ctx,
		claims.TokenID,
		credential.HashTokenSecret(refreshToken),
		credential.HashTokenSecret(nextRefresh),
		time.Now().UTC().Add(s.codec.RefreshTTL()),
	)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrHashMismatch):
			return nil, s.onReuse(ctx, claims.UserID, claims.TokenID, meta)
		case errors.Is(err, session.ErrExpired):
			return nil, auth.ErrExpiredToken()
		case errors.Is(err, session.ErrNotFound):
			return nil, auth.ErrInvalidToken()
		default:
			return nil, errx.Wrap(err, "failed to rotate session", errx.TypeInternal)
		}
	}

	u, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil {
		return nil, auth.ErrInvalidToken()
	}
	if !u.IsActive {
		if err := s.sessions.DeleteAllForUser(ctx, u.ID); err != nil {
			logx.WithError(err).WithField("user_id", u.ID.String()).Warn("failed to revoke sessions of inactive user")
		}
		return nil, auth.ErrInvalidCredentials()
	}

	access, err := s.codec.SignAccess(u.ID, u.Role)
	if err != nil {
		return nil, errx.Wrap(err, "failed to sign access token", errx.TypeInternal)
	}

	return &auth.TokenPair{
		AccessToken:  access,
		RefreshToken: nextRefresh,
		ExpiresIn:    int64(s.codec.AccessTTL().Seconds()),
	}, nil
}

// Logout revokes the chain behind a refresh token. Unknown or already
// revoked tokens log out successfully; the end state is identical.
func (s *Service) Logout(ctx context.Context, refreshToken string, meta kernel.RequestMeta) error {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}

	if err := s.sessions.DeleteByID(ctx, claims.TokenID); err != nil {
		return errx.Wrap(err, "failed to delete session", errx.TypeInternal)
	}

	s.recorder.Record(ctx, audit.Fact{
		Action:       audit.ActionUserLogout,
		ResourceType: "user",
		ResourceID:   claims.UserID.String(),
		UserID:       claims.UserID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
	return nil
}

// LogoutEverywhere revokes every chain a user holds.
func (s *Service) LogoutEverywhere(ctx context.Context, userID kernel.UserID) error {
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return errx.Wrap(err, "failed to delete user sessions", errx.TypeInternal)
	}
	return nil
}

// Me returns the current profile of an authenticated user.
func (s *Service) Me(ctx context.Context, userID kernel.UserID) (*user.DTO, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := u.ToDTO()
	return &dto, nil
}

// issueTokens opens a new session chain. The chain row is created first with
// a placeholder because the refresh token must embed the chain's own ID; the
// real hash is attached once the token is signed.
func (s *Service) issueTokens(ctx context.Context, u *user.User) (*auth.TokenPair, error) {
	rec, err := s.sessions.Create(ctx, u.ID, u.OrganizationID, time.Now().UTC().Add(s.codec.RefreshTTL()))
	if err != nil {
		return nil, errx.Wrap(err, "failed to create session", errx.TypeInternal)
	}

	refresh, err := s.codec.SignRefresh(u.ID, rec.ID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to sign refresh token", errx.TypeInternal)
	}
	if err := s.sessions.Finalize(ctx, rec.ID, credential.HashTokenSecret(refresh)); err != nil {
		return nil, errx.Wrap(err, "failed to finalize session", errx.TypeInternal)
	}

	access, err := s.codec.SignAccess(u.ID, u.Role)
	if err != nil {
		return nil, errx.Wrap(err, "failed to sign access token", errx.TypeInternal)
	}

	return &auth.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.codec.AccessTTL().Seconds()),
	}, nil
}

// loginFailure records the attempt and returns the generic credentials
// error. All failed logins share this path so the responses stay
// byte-identical whatever went wrong.
func (s *Service) loginFailure(ctx context.Context, email string, meta kernel.RequestMeta) error {
	s.recorder.Record(ctx, audit.Fact{
		Action:       audit.ActionUserLoginFailed,
		ResourceType: "user",
		ResourceName: email,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
	return auth.ErrInvalidCredentials()
}

// onReuse handles a superseded refresh token: revoke everything the user
// holds, record the event, surface a dedicated error.
func (s *Service) onReuse(ctx context.Context, userID kernel.UserID, chainID string, meta kernel.RequestMeta) error {
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		logx.WithError(err).WithField("user_id", userID.String()).Error("failed to revoke sessions after token reuse")
	}

	s.recorder.Record(ctx, audit.Fact{
		Action:       audit.ActionTokenReuse,
		ResourceType: "refresh_session",
		ResourceID:   chainID,
		UserID:       userID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})

	logx.WithFields(logx.Fields{
		"user_id":  userID.String(),
		"chain_id": chainID,
	}).Warn("refresh token reuse detected, all sessions revoked")

	return auth.ErrReuseDetected()
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return auth.ErrExpiredToken()
	default:
		return auth.ErrInvalidToken()
	}
}

func validateRegistration(in RegisterInput) error {
	switch {
	case strings.TrimSpace(in.OrganizationName) == "":
		return auth.ErrRegistry.NewWithMessage(auth.CodeValidation, "organization_name is required")
	case strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@"):
		return auth.ErrRegistry.NewWithMessage(auth.CodeValidation, "a valid email is required")
	case len(in.Password) < 8:
		return auth.ErrRegistry.NewWithMessage(auth.CodeValidation, "password must be at least 8 characters")
	}
	return nil
}
