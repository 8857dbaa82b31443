// Package authapi exposes the authentication endpoints over Fiber.
package authapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam"
	"github.com/flagforge/flagforge/pkg/iam/auth"
	"github.com/flagforge/flagforge/pkg/iam/auth/authsrv"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// AuthHandlers carries the HTTP handlers for the auth flows.
type AuthHandlers struct {
	service       *authsrv.Service
	secureCookies bool
	refreshTTL    time.Duration
	accessTTL     time.Duration
}

// NewAuthHandlers creates the handlers. secureCookies should be false only
// in local development over plain HTTP.
func NewAuthHandlers(service *authsrv.Service, secureCookies bool, accessTTL, refreshTTL time.Duration) *AuthHandlers {
	return &AuthHandlers{
		service:       service,
		secureCookies: secureCookies,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// RegisterRoutes mounts the auth endpoints. Only /auth/me requires an
// existing session.
func (h *AuthHandlers) RegisterRoutes(app *fiber.App, authenticate fiber.Handler) {
	g := app.Group("/auth")

	g.Post("/register", h.Register)
	g.Post("/login", h.Login)
	g.Post("/refresh", h.Refresh)
	g.Post("/logout", h.Logout)
	g.Get("/me", authenticate, h.Me)
}

func (h *AuthHandlers) Register(c *fiber.Ctx) error {
	var in authsrv.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return renderError(c, errx.Validation("invalid request body"))
	}

	result, err := h.service.Register(c.UserContext(), in, requestMeta(c))
	if err != nil {
		return renderError(c, errx.FromError(err))
	}

	h.setSessionCookies(c, result.Tokens)
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *AuthHandlers) Login(c *fiber.Ctx) error {
	var in authsrv.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return renderError(c, errx.Validation("invalid request body"))
	}

	result, err := h.service.Login(c.UserContext(), in, requestMeta(c))
	if err != nil {
		return renderError(c, errx.FromError(err))
	}

	h.setSessionCookies(c, result.Tokens)
	return c.JSON(result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandlers) Refresh(c *fiber.Ctx) error {
	refresh := h.extractRefreshToken(c)
	if refresh == "" {
		return renderError(c, auth.ErrInvalidToken())
	}

	tokens, err := h.service.Refresh(c.UserContext(), refresh, requestMeta(c))
	if err != nil {
		h.clearSessionCookies(c)
		return renderError(c, errx.FromError(err))
	}

	h.setSessionCookies(c, *tokens)
	return c.JSON(tokens)
}

func (h *AuthHandlers) Logout(c *fiber.Ctx) error {
	if refresh := h.extractRefreshToken(c); refresh != "" {
		if err := h.service.Logout(c.UserContext(), refresh, requestMeta(c)); err != nil {
			return renderError(c, errx.FromError(err))
		}
	}

	h.clearSessionCookies(c)
	return c.JSON(fiber.Map{"message": "logged out"})
}

func (h *AuthHandlers) Me(c *fiber.Ctx) error {
	authCtx, ok := c.Locals(string(kernel.AuthContextKey)).(*kernel.AuthContext)
	if !ok || authCtx == nil {
		return renderError(c, iam.ErrUnauthorized())
	}

	profile, err := h.service.Me(c.UserContext(), authCtx.UserID)
	if err != nil {
		return renderError(c, errx.FromError(err))
	}
	return c.JSON(profile)
}

func (h *AuthHandlers) extractRefreshToken(c *fiber.Ctx) string {
	var req refreshRequest
	if err := c.BodyParser(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return c.Cookies("refresh_token")
}

func (h *AuthHandlers) setSessionCookies(c *fiber.Ctx, tokens auth.TokenPair) {
	c.Cookie(h.cookie("access_token", tokens.AccessToken, h.accessTTL))
	c.Cookie(h.cookie("refresh_token", tokens.RefreshToken, h.refreshTTL))
}

func (h *AuthHandlers) clearSessionCookies(c *fiber.Ctx) {
	c.Cookie(h.cookie("access_token", "", -time.Hour))
	c.Cookie(h.cookie("refresh_token", "", -time.Hour))
}

func (h *AuthHandlers) cookie(name, value string, ttl time.Duration) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	}
}

func requestMeta(c *fiber.Ctx) kernel.RequestMeta {
	return kernel.RequestMeta{IPAddress: c.IP(), UserAgent: c.Get("User-Agent")}
}

func renderError(c *fiber.Ctx, e *errx.Error) error {
	return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
}
