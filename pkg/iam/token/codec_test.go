package token_test

import (
	"errors"
	"testing"
	"time"

	"github.com/flagforge/flagforge/pkg/iam/token"
	"github.com/flagforge/flagforge/pkg/kernel"
)

func newCodec() *token.Codec {
	return token.NewCodec("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour, "test")
}

func TestAccessRoundTrip(t *testing.T) {
	c := newCodec()
	signed, err := c.SignAccess("user-1", kernel.RoleAdmin)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	claims, err := c.VerifyAccess(signed)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != kernel.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRefreshRoundTrip(t *testing.T) {
	c := newCodec()
	signed, err := c.SignRefresh("user-1", "chain-42")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	claims, err := c.VerifyRefresh(signed)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.TokenID != "chain-42" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestKindsAreNotSubstitutable(t *testing.T) {
	c := newCodec()

	access, err := c.SignAccess("user-1", kernel.RoleMember)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := c.VerifyRefresh(access); err == nil {
		t.Fatal("access token must not verify as refresh token")
	}

	refresh, err := c.SignRefresh("user-1", "chain-1")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := c.VerifyAccess(refresh); err == nil {
		t.Fatal("refresh token must not verify as access token")
	}
}

func TestExpiredToken(t *testing.T) {
	c := token.NewCodec("access-secret", "refresh-secret", -time.Minute, -time.Minute, "test")

	signed, err := c.SignAccess("user-1", kernel.RoleAdmin)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := c.VerifyAccess(signed); !errors.Is(err, token.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestTamperedSignature(t *testing.T) {
	c := newCodec()
	other := token.NewCodec("other-access", "other-refresh", time.Minute, time.Hour, "test")

	signed, err := other.SignAccess("user-1", kernel.RoleAdmin)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := c.VerifyAccess(signed); !errors.Is(err, token.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestMalformedInput(t *testing.T) {
	c := newCodec()
	for _, bad := range []string{"", "garbage", "a.b.c"} {
		if _, err := c.VerifyAccess(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestMissingClaimsAreMalformed(t *testing.T) {
	c := newCodec()
	// A refresh token with an empty token ID is structurally valid JWT but
	// fails the claims contract.
	signed, err := c.SignRefresh("user-1", "")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := c.VerifyRefresh(signed); !errors.Is(err, token.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
