package auth

import (
	"github.com/uptrace/bun"
)

// BranchFilter narrows list queries to one branch. The zero value is
// unrestricted. A restricted filter with an empty BranchID matches nothing.
type BranchFilter struct {
	BranchID   string `json:"branch,omitempty"`
	Restricted bool   `json:"restricted"`
}

// Unrestricted is true when the filter lets every branch through
func (f BranchFilter) Unrestricted() bool {
	return !f.Restricted
}

// Matches reports whether a record bound to branchID passes the filter
func (f BranchFilter) Matches(branchID string) bool {
	if !f.Restricted {
		return true
	}
	return f.BranchID != "" && NormalizeBranchCode(branchID) == f.BranchID
}

// Apply returns a bun query modifier filtering on the given column
func (f BranchFilter) Apply(column string) func(*bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if !f.Restricted {
			return q
		}
		if f.BranchID == "" {
			return q.Where("1 = 0")
		}
		return q.Where("? = ?", bun.Ident(column), f.BranchID)
	}
}

// BranchScope is what OptionalAuth stores for handlers
type BranchScope struct {
	Identity OptionalIdentity
	Filter   BranchFilter
}

// Auth returns the verified caller, nil for anonymous requests
func (s BranchScope) Auth() *AuthContext {
	if !s.Identity.Authenticated() {
		return nil
	}
	return s.Identity.Auth
}

// ResolveBranchFilter decides which branch a list query may see.
//   - no verified identity: the requested branch if any, else everything
//   - branch scoped roles: always their own branch, the request is ignored
//   - super admins and editors: the requested branch if any, else everything
func ResolveBranchFilter(identity OptionalIdentity, requested string) BranchFilter {
	requested = NormalizeBranchCode(requested)

	if !identity.Authenticated() {
		return requestedFilter(requested)
	}

	ac := identity.Auth
	if ac.Role.IsBranchScoped() {
		return BranchFilter{
			BranchID:   NormalizeBranchCode(ac.BranchID),
			Restricted: true,
		}
	}

	return requestedFilter(requested)
}

// ScopeFor resolves the filter of an already verified caller
func ScopeFor(ac *AuthContext, requested string) BranchFilter {
	if ac == nil {
		return ResolveBranchFilter(OptionalIdentity{Outcome: OutcomeAnonymous}, requested)
	}
	return ResolveBranchFilter(OptionalIdentity{Auth: ac, Outcome: OutcomeAuthenticated}, requested)
}

func requestedFilter(requested string) BranchFilter {
	if requested == "" {
		return BranchFilter{}
	}
	return BranchFilter{BranchID: requested, Restricted: true}
}
