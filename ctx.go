package auth

import (
	"context"

	"github.com/google/uuid"
)

var authCtxKey = &contextKey{"auth"}
var scopeCtxKey = &contextKey{"branch_scope"}

type contextKey struct {
	name string
}

// AuthContext is the verified caller of a request. Every field comes from the
// stored account at verification time, never from token claims.
type AuthContext struct {
	Account     *Account
	Role        Role
	BranchID    string
	Permissions Permissions
}

// NewAuthContext builds the caller view of an account
func NewAuthContext(account *Account) *AuthContext {
	if account == nil {
		return nil
	}
	return &AuthContext{
		Account:     account,
		Role:        account.Role,
		BranchID:    account.BranchID,
		Permissions: account.Permissions,
	}
}

// AccountID returns the caller's account id or an empty string
func (ac *AuthContext) AccountID() string {
	if ac == nil || ac.Account == nil {
		return ""
	}
	return ac.Account.ID.String()
}

// IsAccount reports whether the caller is the given account
func (ac *AuthContext) IsAccount(id uuid.UUID) bool {
	return ac != nil && ac.Account != nil && id != uuid.Nil && ac.Account.ID == id
}

func (ac *AuthContext) IsSuperAdmin() bool {
	return ac != nil && ac.Role.IsSuperAdmin()
}

// Can reports whether the caller holds the capability. Super admins hold all.
func (ac *AuthContext) Can(c Capability) bool {
	if ac == nil {
		return false
	}
	return ac.IsSuperAdmin() || ac.Permissions.Has(c)
}

// Actor returns the activity reference of the caller
func (ac *AuthContext) Actor() ActorRef {
	if ac == nil {
		return ActorRef{Type: "anonymous"}
	}
	return ac.Account.Actor()
}

// WithContext sets the AuthContext in the given context
func WithContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authCtxKey, ac)
}

// FromContext finds the AuthContext in the context.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	raw, ok := ctx.Value(authCtxKey).(*AuthContext)
	return raw, ok && raw != nil
}

// WithBranchScope sets the resolved BranchScope in the context
func WithBranchScope(ctx context.Context, scope BranchScope) context.Context {
	return context.WithValue(ctx, scopeCtxKey, scope)
}

// BranchScopeFromContext returns the scope resolved by OptionalAuth
func BranchScopeFromContext(ctx context.Context) (BranchScope, bool) {
	raw, ok := ctx.Value(scopeCtxKey).(BranchScope)
	return raw, ok
}
