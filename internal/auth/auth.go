// Package auth turns the bearer token issued by the external auth provider
// into an explicit Identity that is passed to whatever needs it.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenRequired = errors.New("auth token required")
	ErrTokenInvalid  = errors.New("auth token invalid")
	ErrTokenExpired  = errors.New("auth token expired")
)

// Claims are the provider claims the player cares about.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Identity is the signed-in user as seen by this process.
type Identity struct {
	Token     string
	UserID    string
	Role      string
	Name      string
	ExpiresAt time.Time
}

// FromToken builds an Identity. With a secret the token must be a valid HS256
// JWT; without one the claims are read unverified (the backend verifies), and
// opaque non-JWT tokens are passed through as-is.
func FromToken(token, secret string) (*Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, ErrTokenRequired
	}

	claims := &Claims{}
	if secret != "" {
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	} else if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return &Identity{Token: token}, nil
	}

	id := &Identity{
		Token:  token,
		UserID: claims.UserID,
		Role:   claims.Role,
		Name:   claims.Name,
	}
	if id.UserID == "" {
		id.UserID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// Expired reports whether the token carries an expiry that has passed.
func (id *Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}

// AuthorizationHeader is the value for the Authorization request header.
func (id *Identity) AuthorizationHeader() string {
	if id == nil || id.Token == "" {
		return ""
	}
	return "Bearer " + id.Token
}
