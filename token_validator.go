package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (*JWTClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (*JWTClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (*JWTClaims, error) {
	if f == nil {
		return nil, ErrInvalidOrExpiredToken
	}
	return f(tokenString)
}

// Reasons attached to ErrInvalidOrExpiredToken metadata
const (
	TokenReasonExpired   = "expired"
	TokenReasonMalformed = "malformed"
	TokenReasonInvalid   = "invalid"
)

func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return TokenReasonExpired
	case errors.Is(err, jwt.ErrTokenMalformed), IsMalformedError(err):
		return TokenReasonMalformed
	default:
		return TokenReasonInvalid
	}
}

func invalidToken(reason string) error {
	return ErrInvalidOrExpiredToken.Clone().WithMetadata(map[string]any{
		"reason": reason,
	})
}

// TokenFailureReason extracts why a token was rejected. It returns an empty
// string for errors that are not token failures.
func TokenFailureReason(err error) string {
	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr.TextCode != TextCodeInvalidToken {
		return ""
	}
	if reason, ok := richErr.Metadata["reason"].(string); ok && reason != "" {
		return reason
	}
	return TokenReasonInvalid
}
