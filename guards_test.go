package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
)

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name    string
		account *auth.Account
		cap     auth.Capability
		allowed bool
	}{
		{"missing capability", newAccount(auth.RoleBranchAdmin, "LDCE", auth.CapContent), auth.CapEvents, false},
		{"granted capability", newAccount(auth.RoleBranchAdmin, "LDCE", auth.CapEvents), auth.CapEvents, true},
		{"super admin without tags", newAccount(auth.RoleSuperAdmin, ""), auth.CapMembers, true},
		{"no permissions", newAccount(auth.RoleMember, "LDCE"), auth.CapResearch, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.RequirePermission(auth.NewAuthContext(tt.account), tt.cap)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, auth.HasTextCode(err, auth.TextCodeForbidden), "got %v", err)
		})
	}

	assert.ErrorIs(t, auth.RequirePermission(nil, auth.CapEvents), auth.ErrMissingToken)
}

func TestRequirePermission_WildcardGrantsEveryCapability(t *testing.T) {
	wildcard := auth.NewAuthContext(newAccount(auth.RoleEditor, "", auth.CapAll))
	member := auth.NewAuthContext(newAccount(auth.RoleMember, "LDCE"))

	for _, c := range everyCapability(t) {
		t.Run(c.String(), func(t *testing.T) {
			assert.NoError(t, auth.RequirePermission(wildcard, c))

			err := auth.RequirePermission(member, c)
			assert.True(t, auth.HasTextCode(err, auth.TextCodeForbidden), "got %v", err)
		})
	}
}

func TestRequireSuperAdmin(t *testing.T) {
	assert.NoError(t, auth.RequireSuperAdmin(auth.NewAuthContext(newAccount(auth.RoleSuperAdmin, ""))))

	err := auth.RequireSuperAdmin(auth.NewAuthContext(newAccount(auth.RoleBranchAdmin, "LDCE", auth.CapAll)))
	assert.True(t, auth.HasTextCode(err, auth.TextCodeForbidden))

	assert.ErrorIs(t, auth.RequireSuperAdmin(nil), auth.ErrMissingToken)
}

func TestRequireRole(t *testing.T) {
	chair := auth.NewAuthContext(newAccount(auth.RoleChairperson, "LDCE"))
	admin := auth.NewAuthContext(newAccount(auth.RoleSuperAdmin, ""))

	assert.NoError(t, auth.RequireRole(chair, auth.RoleChairperson, auth.RoleCounsellor))
	assert.NoError(t, auth.RequireRole(admin, auth.RoleEditor))
	assert.True(t, auth.HasTextCode(auth.RequireRole(chair, auth.RoleEditor), auth.TextCodeForbidden))
	assert.True(t, auth.HasTextCode(auth.RequireRole(chair), auth.TextCodeForbidden))
}
