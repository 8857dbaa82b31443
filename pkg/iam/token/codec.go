// Package token signs and verifies the two JWT kinds the session machinery
// uses: short-lived access tokens carrying {userId, role} and long-lived
// refresh tokens carrying {userId, tokenId}. The two kinds are signed with
// distinct secrets so neither can be substituted for the other.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/flagforge/flagforge/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failure modes. Callers branch on these to pick the right
// surfaced error (Unauthorized vs Expired vs InvalidToken).
var (
	ErrInvalidSignature = errors.New("token: signature verification failed")
	ErrExpired          = errors.New("token: expired")
	ErrMalformed        = errors.New("token: malformed claims")
)

// AccessClaims is the identity an access token proves for one request window.
type AccessClaims struct {
	UserID kernel.UserID `json:"user_id"`
	Role   kernel.Role   `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims binds a refresh token to a specific session record via
// TokenID, enabling server-side revocation of an otherwise-valid signature.
type RefreshClaims struct {
	UserID  kernel.UserID `json:"user_id"`
	TokenID string        `json:"token_id"`
	jwt.RegisteredClaims
}

// Codec holds the immutable signing configuration, built once at startup.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// NewCodec creates a Codec. Zero TTLs get conservative defaults.
func NewCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, issuer string) *Codec {
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	if issuer == "" {
		issuer = "flagforge"
	}
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        issuer,
	}
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// SignAccess issues a short-lived access token.
func (c *Codec) SignAccess(userID kernel.UserID, role kernel.Role) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID.String(),
			Audience:  []string{"flagforge-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
}

// SignRefresh issues a long-lived refresh token bound to a session record.
func (c *Codec) SignRefresh(userID kernel.UserID, tokenID string) (string, error) {
	now := time.Now()
	// The jti makes every signed token unique even when two rotations of the
	// same chain land within one clock second.
	claims := RefreshClaims{
		UserID:  userID,
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   userID.String(),
			Audience:  []string{"flagforge-refresh"},
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
}

// VerifyAccess validates an access token and returns its claims.
func (c *Codec) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(tokenString, claims, c.accessSecret); err != nil {
		return nil, err
	}
	if claims.UserID.IsEmpty() || !claims.Role.IsValid() {
		return nil, ErrMalformed
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns its claims.
func (c *Codec) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(tokenString, claims, c.refreshSecret); err != nil {
		return nil, err
	}
	if claims.UserID.IsEmpty() || claims.TokenID == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

func (c *Codec) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrInvalidSignature
	}
	if !parsed.Valid {
		return ErrInvalidSignature
	}
	return nil
}
