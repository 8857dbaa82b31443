// Package iamcontainer assembles the IAM module's dependency graph.
package iamcontainer

import (
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/flagforge/flagforge/pkg/config"
	"github.com/flagforge/flagforge/pkg/iam/apikey/apikeyapi"
	"github.com/flagforge/flagforge/pkg/iam/apikey/apikeyinfra"
	"github.com/flagforge/flagforge/pkg/iam/apikey/apikeysrv"
	"github.com/flagforge/flagforge/pkg/iam/audit/auditinfra"
	"github.com/flagforge/flagforge/pkg/iam/auth"
	"github.com/flagforge/flagforge/pkg/iam/auth/authapi"
	"github.com/flagforge/flagforge/pkg/iam/auth/authinfra"
	"github.com/flagforge/flagforge/pkg/iam/auth/authsrv"
	"github.com/flagforge/flagforge/pkg/iam/credential"
	"github.com/flagforge/flagforge/pkg/iam/organization/orginfra"
	"github.com/flagforge/flagforge/pkg/iam/ratelimit"
	"github.com/flagforge/flagforge/pkg/iam/session/sessioninfra"
	"github.com/flagforge/flagforge/pkg/iam/token"
	"github.com/flagforge/flagforge/pkg/iam/user/userinfra"
	"github.com/flagforge/flagforge/pkg/logx"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// No hidden globals, no ambient state — everything comes through here.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cfg   *config.Config
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// Only expose what other modules or cmd/ actually need.
// Internal repos, infra details, etc. stay private.
// ---------------------------------------------------------------------------

type Container struct {
	// Services — available for cross-module consumption
	AuthService   *authsrv.Service
	APIKeyService *apikeysrv.Service

	// Handlers — needed by cmd/ to register routes
	AuthHandlers   *authapi.AuthHandlers
	APIKeyHandlers *apikeyapi.APIKeyHandlers

	// Middleware — needed by cmd/ to protect route groups
	AuthMiddleware   *auth.TokenMiddleware
	APIKeyMiddleware *apikeyapi.Middleware

	// Background services
	CleanupService *sessioninfra.CleanupService
}

// ---------------------------------------------------------------------------
// New: constructs the entire IAM dependency graph.
// Order matters: infra → services → handlers → middleware.
// ---------------------------------------------------------------------------

func New(deps Deps) *Container {
	logx.Info("initializing IAM container")

	c := &Container{}

	// ── Repositories ─────────────────────────────────────────────────────

	userRepo := userinfra.NewPostgresUserRepository(deps.DB)
	orgRepo := orginfra.NewPostgresOrganizationRepository(deps.DB)
	sessionStore := sessioninfra.NewPostgresSessionStore(deps.DB)
	apiKeyRepo := apikeyinfra.NewPostgresAPIKeyRepository(deps.DB)
	regStore := authinfra.NewPostgresRegistrationStore(deps.DB)

	// ── Infrastructure services ──────────────────────────────────────────

	hasher := credential.NewHasher(deps.Cfg.Auth.BcryptCost)
	codec := token.NewCodec(
		deps.Cfg.Auth.AccessTokenSecret,
		deps.Cfg.Auth.RefreshTokenSecret,
		deps.Cfg.Auth.AccessTokenTTL,
		deps.Cfg.Auth.RefreshTokenTTL,
		deps.Cfg.Auth.Issuer,
	)
	recorder := auditinfra.NewLogxRecorder()
	loginLimiter := ratelimit.NewLimiter(
		deps.Redis,
		"login",
		deps.Cfg.Auth.LoginMaxAttempts,
		deps.Cfg.Auth.LoginWindow,
	)

	// ── Domain services ──────────────────────────────────────────────────

	c.AuthService = authsrv.NewService(userRepo, regStore, sessionStore, codec, hasher, recorder, loginLimiter)
	c.APIKeyService = apikeysrv.NewService(apiKeyRepo, orgRepo, recorder)

	// ── Handlers and middleware ──────────────────────────────────────────

	secureCookies := deps.Cfg.App.Environment != "development"
	c.AuthHandlers = authapi.NewAuthHandlers(
		c.AuthService,
		secureCookies,
		deps.Cfg.Auth.AccessTokenTTL,
		deps.Cfg.Auth.RefreshTokenTTL,
	)
	c.APIKeyHandlers = apikeyapi.NewAPIKeyHandlers(c.APIKeyService)
	c.AuthMiddleware = auth.NewTokenMiddleware(codec, userRepo)
	c.APIKeyMiddleware = apikeyapi.NewMiddleware(c.APIKeyService)

	// ── Background services ──────────────────────────────────────────────

	c.CleanupService = sessioninfra.NewCleanupService(sessionStore, deps.Cfg.Cleanup.Schedule)

	logx.Info("IAM container ready")
	return c
}
