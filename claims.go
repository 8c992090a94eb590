package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims are the claims carried by a session token. The verifier only
// trusts AccountID, role and permissions are always re-read from the store.
type JWTClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"accountId"`
	Email     string `json:"email,omitempty"`
	UserRole  Role   `json:"role,omitempty"`
}

var _ jwt.Claims = (*JWTClaims)(nil)

// UserID returns the account id, falling back to the subject
func (c *JWTClaims) UserID() string {
	if c.AccountID != "" {
		return c.AccountID
	}
	return c.RegisteredClaims.Subject
}

// Role returns the role at issue time
func (c *JWTClaims) Role() Role {
	return c.UserRole
}

// TokenID returns the jti claim
func (c *JWTClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns the issued at time
func (c *JWTClaims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
