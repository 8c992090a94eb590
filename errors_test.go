package auth_test

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "expired message", err: errors.New("token has invalid claims: token is expired"), expected: true},
		{name: "other message", err: errors.New("signature is invalid"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsTokenExpiredError(tt.err))
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "jwt malformed", err: errors.New("token is malformed: could not base64 decode header"), expected: true},
		{name: "missing header", err: errors.New("missing or malformed JWT"), expected: true},
		{name: "other", err: errors.New("boom"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsMalformedError(tt.err))
		})
	}
}

func TestSentinelCategories(t *testing.T) {
	tests := []struct {
		err      *goerrors.Error
		category goerrors.Category
		code     int
	}{
		{auth.ErrValidation, goerrors.CategoryValidation, 400},
		{auth.ErrPasswordTooLong, goerrors.CategoryValidation, 400},
		{auth.ErrMissingToken, goerrors.CategoryAuth, 401},
		{auth.ErrInvalidOrExpiredToken, goerrors.CategoryAuth, 401},
		{auth.ErrAccountUnavailable, goerrors.CategoryAuth, 401},
		{auth.ErrInvalidCredentials, goerrors.CategoryAuth, 401},
		{auth.ErrForbidden, goerrors.CategoryAuthz, 403},
		{auth.ErrBootstrapClosed, goerrors.CategoryAuthz, 403},
		{auth.ErrIdentityNotFound, goerrors.CategoryNotFound, 404},
		{auth.ErrSlotOccupied, goerrors.CategoryConflict, 409},
		{auth.ErrDependencyUnavailable, goerrors.CategoryInternal, 503},
	}

	for _, tt := range tests {
		t.Run(tt.err.TextCode, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestHasTextCode(t *testing.T) {
	wrapped := goerrors.Wrap(auth.ErrForbidden, goerrors.CategoryAuthz, "deleting branch")
	assert.True(t, auth.HasTextCode(wrapped, auth.TextCodeForbidden))
	assert.True(t, auth.HasTextCode(auth.ErrSlotOccupied.Clone(), auth.TextCodeSlotOccupied))
	assert.False(t, auth.HasTextCode(errors.New("FORBIDDEN"), auth.TextCodeForbidden))
	assert.False(t, auth.HasTextCode(nil, auth.TextCodeForbidden))
}
