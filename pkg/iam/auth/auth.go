// Package auth implements session authentication: registration, password
// login, refresh-token rotation with reuse detection, and logout.
package auth

import (
	"net/http"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam/user"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	// CodeInvalidCredentials is deliberately shared by unknown-email and
	// wrong-password failures so responses never reveal which one happened.
	CodeInvalidCredentials = ErrRegistry.Register("INVALID_CREDENTIALS", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid credentials")
	CodeAccountInactive    = ErrRegistry.Register("ACCOUNT_INACTIVE", errx.TypeAuthorization, http.StatusUnauthorized, "Account is deactivated")
	CodeInvalidToken       = ErrRegistry.Register("INVALID_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or malformed token")
	CodeExpiredToken       = ErrRegistry.Register("EXPIRED_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Token has expired")
	CodeReuseDetected      = ErrRegistry.Register("TOKEN_REUSE_DETECTED", errx.TypeAuthorization, http.StatusUnauthorized, "Refresh token reuse detected")
	CodeEmailTaken         = ErrRegistry.Register("EMAIL_TAKEN", errx.TypeConflict, http.StatusConflict, "Email is already registered")
	CodeValidation         = ErrRegistry.Register("VALIDATION", errx.TypeValidation, http.StatusBadRequest, "Invalid registration data")
)

func ErrInvalidCredentials() *errx.Error {
	return ErrRegistry.New(CodeInvalidCredentials)
}

func ErrAccountInactive() *errx.Error {
	return ErrRegistry.New(CodeAccountInactive)
}

func ErrInvalidToken() *errx.Error {
	return ErrRegistry.New(CodeInvalidToken)
}

func ErrExpiredToken() *errx.Error {
	return ErrRegistry.New(CodeExpiredToken)
}

func ErrReuseDetected() *errx.Error {
	return ErrRegistry.New(CodeReuseDetected)
}

func ErrEmailTaken() *errx.Error {
	return ErrRegistry.New(CodeEmailTaken)
}

// ============================================================================
// Results
// ============================================================================

// TokenPair is what every successful authentication hands back: a signed
// access token and the refresh token that can mint the next pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Result couples the authenticated user with a fresh token pair.
type Result struct {
	User   user.DTO  `json:"user"`
	Tokens TokenPair `json:"tokens"`
}
