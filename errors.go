package auth

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeValidation            = "VALIDATION_ERROR"
	TextCodeEmptyString           = "EMPTY_VALUE"
	TextCodePasswordTooShort      = "PASSWORD_TOO_SHORT"
	TextCodePasswordTooLong       = "PASSWORD_TOO_LONG"
	TextCodeInvalidRole           = "INVALID_ROLE"
	TextCodeInvalidPermission     = "INVALID_PERMISSION"
	TextCodeInvalidSlot           = "INVALID_SLOT"
	TextCodeInvalidPhone          = "INVALID_PHONE"
	TextCodeMissingToken          = "MISSING_TOKEN"
	TextCodeInvalidToken          = "INVALID_OR_EXPIRED_TOKEN"
	TextCodeAccountUnavailable    = "ACCOUNT_UNAVAILABLE"
	TextCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	TextCodeForbidden             = "FORBIDDEN"
	TextCodeBootstrapClosed       = "BOOTSTRAP_CLOSED"
	TextCodeConflict              = "CONFLICT"
	TextCodeSlotOccupied          = "SLOT_OCCUPIED"
	TextCodeIdentityNotFound      = "IDENTITY_NOT_FOUND"
	TextCodeBranchNotFound        = "BRANCH_NOT_FOUND"
	TextCodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
)

// ErrValidation wraps payload validation failures
var ErrValidation = errors.New("validation failed", errors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("value can not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyString).
	WithCode(errors.CodeBadRequest)

// ErrPasswordTooShort is returned when a new password is below the minimum length
var ErrPasswordTooShort = errors.New("password is too short", errors.CategoryValidation).
	WithTextCode(TextCodePasswordTooShort).
	WithCode(errors.CodeBadRequest)

// ErrPasswordTooLong is returned for passwords bcrypt cannot hash
var ErrPasswordTooLong = errors.New("password is too long", errors.CategoryValidation).
	WithTextCode(TextCodePasswordTooLong).
	WithCode(errors.CodeBadRequest)

var ErrInvalidRole = errors.New("invalid role", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(errors.CodeBadRequest)

var ErrInvalidPermission = errors.New("invalid permission", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidPermission).
	WithCode(errors.CodeBadRequest)

var ErrInvalidSlot = errors.New("invalid branch slot", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidSlot).
	WithCode(errors.CodeBadRequest)

var ErrInvalidPhone = errors.New("invalid phone number", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidPhone).
	WithCode(errors.CodeBadRequest)

// ErrMissingToken no session token was presented
var ErrMissingToken = errors.New("missing authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeMissingToken).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidOrExpiredToken covers bad signatures, malformed tokens and expiry
var ErrInvalidOrExpiredToken = errors.New("invalid or expired token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrAccountUnavailable the token is valid but its account is gone or inactive
var ErrAccountUnavailable = errors.New("account unavailable", errors.CategoryAuth).
	WithTextCode(TextCodeAccountUnavailable).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCredentials is the single answer for unknown email or wrong password
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is returned by ComparePasswordAndHash
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

var ErrForbidden = errors.New("insufficient permissions", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrBootstrapClosed a super admin already exists
var ErrBootstrapClosed = errors.New("bootstrap is closed", errors.CategoryAuthz).
	WithTextCode(TextCodeBootstrapClosed).
	WithCode(errors.CodeForbidden)

var ErrConflict = errors.New("resource already exists", errors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(errors.CodeConflict)

// ErrSlotOccupied the branch slot is held by a different account
var ErrSlotOccupied = errors.New("branch slot is occupied", errors.CategoryConflict).
	WithTextCode(TextCodeSlotOccupied).
	WithCode(errors.CodeConflict)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

var ErrBranchNotFound = errors.New("branch not found", errors.CategoryNotFound).
	WithTextCode(TextCodeBranchNotFound).
	WithCode(errors.CodeNotFound)

// ErrDependencyUnavailable the store could not be reached. The message is
// generic on purpose, details go to the logs.
var ErrDependencyUnavailable = errors.New("service temporarily unavailable", errors.CategoryInternal).
	WithTextCode(TextCodeDependencyUnavailable).
	WithCode(http.StatusServiceUnavailable)

// HasTextCode reports whether err is a rich error carrying the text code
func HasTextCode(err error, code string) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// unavailable wraps a store failure so callers see a 503 without the cause
func unavailable(err error, op string) error {
	return ErrDependencyUnavailable.Clone().WithMetadata(map[string]any{
		"operation": op,
		"cause":     err.Error(),
	})
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// isUniqueViolation matches unique constraint failures from postgres and sqlite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
