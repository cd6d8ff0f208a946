package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestFromTokenVerified(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := sign(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-7", ExpiresAt: jwt.NewNumericDate(exp)},
		Role:             "student",
	}, "s3cret")

	id, err := FromToken("Bearer "+tok, "s3cret")
	if err != nil {
		t.Fatalf("FromToken: %v", err)
	}
	if id.UserID != "u-7" || id.Role != "student" {
		t.Fatalf("identity = %+v", id)
	}
	if !id.ExpiresAt.Equal(exp) {
		t.Fatalf("expires = %v, want %v", id.ExpiresAt, exp)
	}
	if id.AuthorizationHeader() != "Bearer "+tok {
		t.Fatalf("header = %q", id.AuthorizationHeader())
	}
}

func TestFromTokenWrongSecret(t *testing.T) {
	tok := sign(t, Claims{UserID: "u-1"}, "right")
	if _, err := FromToken(tok, "wrong"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestFromTokenExpired(t *testing.T) {
	tok := sign(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}, "k")
	if _, err := FromToken(tok, "k"); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestFromTokenUnverifiedAndOpaque(t *testing.T) {
	tok := sign(t, Claims{UserID: "u-9"}, "whatever")
	id, err := FromToken(tok, "")
	if err != nil || id.UserID != "u-9" {
		t.Fatalf("unverified: id = %+v err = %v", id, err)
	}

	id, err = FromToken("opaque-session-token", "")
	if err != nil || id.Token != "opaque-session-token" || id.UserID != "" {
		t.Fatalf("opaque: id = %+v err = %v", id, err)
	}

	if _, err := FromToken("  ", ""); !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("empty: err = %v", err)
	}
}

func TestIdentityExpired(t *testing.T) {
	now := time.Now()
	if (&Identity{}).Expired(now) {
		t.Fatal("zero expiry should never expire")
	}
	if !(&Identity{ExpiresAt: now.Add(-time.Second)}).Expired(now) {
		t.Fatal("past expiry should be expired")
	}
}
