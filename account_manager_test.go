package auth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
)

func ptr[T any](v T) *T { return &v }

type managerFixture struct {
	repo    auth.RepositoryManager
	sink    *recordingSink
	manager *auth.AccountManager
	admin   *auth.AuthContext
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	f := &managerFixture{
		repo: auth.NewRepositoryManager(newTestDB(t)),
		sink: &recordingSink{},
	}
	f.manager = auth.NewAccountManager(f.repo, testHasher(), auth.WithHandlerActivitySink(f.sink))
	seedBranch(t, f.repo, "LDCE")
	seedBranch(t, f.repo, "SVIT")
	f.admin = auth.NewAuthContext(seedAccount(t, f.repo, newAccount(auth.RoleSuperAdmin, "", auth.CapAll), "admin-password"))
	return f
}

func TestAccountManager_UpdateProfile(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	member := auth.NewAuthContext(seedAccount(t, f.repo, newAccount(auth.RoleMember, "LDCE"), "member-password"))

	updated, err := f.manager.UpdateProfile(ctx, member, auth.ProfileUpdate{
		DisplayName: ptr(" New Name "),
		Phone:       ptr("+1 650 253 0000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.DisplayName)
	assert.Equal(t, "+16502530000", updated.Phone)
	assert.Equal(t, auth.RoleMember, updated.Role)

	_, err = f.manager.UpdateProfile(ctx, member, auth.ProfileUpdate{Phone: ptr("nope")})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidPhone))

	_, err = f.manager.UpdateProfile(ctx, member, auth.ProfileUpdate{DisplayName: ptr("  ")})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeValidation))

	_, err = f.manager.UpdateProfile(ctx, nil, auth.ProfileUpdate{})
	assert.ErrorIs(t, err, auth.ErrMissingToken)
}

func TestAccountManager_ChangePassword(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	member := auth.NewAuthContext(seedAccount(t, f.repo, newAccount(auth.RoleMember, "LDCE"), "member-password"))

	assert.ErrorIs(t, f.manager.ChangePassword(ctx, member, "wrong-password", "next-password"), auth.ErrInvalidCredentials)
	assert.True(t, auth.HasTextCode(f.manager.ChangePassword(ctx, member, "member-password", "short"), auth.TextCodePasswordTooShort))

	tooLong := f.manager.ChangePassword(ctx, member, "member-password", strings.Repeat("p", 80))
	assert.True(t, auth.HasTextCode(tooLong, auth.TextCodePasswordTooLong), "got %v", tooLong)

	require.NoError(t, f.manager.ChangePassword(ctx, member, "member-password", "next-password"))
	assert.Equal(t, auth.ActivityEventPasswordChanged, f.sink.last().EventType)

	auther := auth.NewAuthenticator(f.repo.Accounts(), testHasher(), newTokenService(t)).WithLogger(&captureLogger{})
	_, err := auther.Login(ctx, member.Account.Email, "member-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = auther.Login(ctx, member.Account.Email, "next-password")
	assert.NoError(t, err)
}

func TestAccountManager_SetActive(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	member := seedAccount(t, f.repo, newAccount(auth.RoleMember, "LDCE"), "member-password")

	updated, err := f.manager.SetActive(ctx, f.admin, member.ID.String(), false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, auth.ActivityEventAccountStatus, f.sink.last().EventType)

	updated, err = f.manager.SetActive(ctx, f.admin, member.ID.String(), true)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)

	_, err = f.manager.SetActive(ctx, f.admin, f.admin.AccountID(), false)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeForbidden))

	_, err = f.manager.SetActive(ctx, f.admin, "8f0c6f5e-0000-4000-8000-000000000000", false)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeIdentityNotFound))
}

func TestAccountManager_SetActive_OwnIDInAnyForm(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	id := f.admin.AccountID()

	for _, form := range []string{
		strings.ToUpper(id),
		"{" + id + "}",
		"urn:uuid:" + id,
		strings.ReplaceAll(id, "-", ""),
	} {
		t.Run(form, func(t *testing.T) {
			_, err := f.manager.SetActive(ctx, f.admin, form, false)
			assert.True(t, auth.HasTextCode(err, auth.TextCodeForbidden), "got %v", err)
		})
	}

	stored, err := f.repo.Accounts().FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestAccountManager_KeepsLastActiveSuperAdmin(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	second := seedAccount(t, f.repo, newAccount(auth.RoleSuperAdmin, "", auth.CapAll), "second-password")
	secondCtx := auth.NewAuthContext(second)

	_, err := f.manager.SetActive(ctx, secondCtx, f.admin.AccountID(), false)
	require.NoError(t, err)

	_, err = f.manager.SetActive(ctx, nil, second.ID.String(), false)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeForbidden), "got %v", err)

	_, err = f.manager.UpdateAccess(ctx, nil, strings.ToUpper(second.ID.String()), auth.AccessUpdate{Role: ptr("editor")})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeForbidden), "got %v", err)

	_, err = f.manager.SetActive(ctx, secondCtx, f.admin.AccountID(), true)
	require.NoError(t, err)

	demoted, err := f.manager.UpdateAccess(ctx, f.admin, second.ID.String(), auth.AccessUpdate{Role: ptr("editor")})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleEditor, demoted.Role)
}

func TestAccountManager_UpdateAccess(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	member := seedAccount(t, f.repo, newAccount(auth.RoleMember, "LDCE"), "member-password")

	updated, err := f.manager.UpdateAccess(ctx, f.admin, member.ID.String(), auth.AccessUpdate{
		Role:        ptr("branch_admin"),
		BranchID:    ptr("svit"),
		Permissions: &[]string{"events", "content"},
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleBranchAdmin, updated.Role)
	assert.Equal(t, "SVIT", updated.BranchID)
	assert.Equal(t, []string{"events", "content"}, updated.Permissions.Tags())

	// switching to a global role drops the branch
	updated, err = f.manager.UpdateAccess(ctx, f.admin, member.ID.String(), auth.AccessUpdate{Role: ptr("editor")})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleEditor, updated.Role)
	assert.Empty(t, updated.BranchID)

	tests := []struct {
		name   string
		id     string
		update auth.AccessUpdate
		code   string
	}{
		{"unknown role", member.ID.String(), auth.AccessUpdate{Role: ptr("owner")}, auth.TextCodeInvalidRole},
		{"unknown permission", member.ID.String(), auth.AccessUpdate{Permissions: &[]string{"root"}}, auth.TextCodeInvalidPermission},
		{"scoped role without branch", member.ID.String(), auth.AccessUpdate{Role: ptr("member")}, auth.TextCodeValidation},
		{"unknown branch", member.ID.String(), auth.AccessUpdate{Role: ptr("member"), BranchID: ptr("NOPE")}, auth.TextCodeBranchNotFound},
		{"self demotion", f.admin.AccountID(), auth.AccessUpdate{Role: ptr("editor")}, auth.TextCodeForbidden},
		{"unknown account", "not-a-uuid", auth.AccessUpdate{}, auth.TextCodeIdentityNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.manager.UpdateAccess(ctx, f.admin, tt.id, tt.update)
			require.Error(t, err)
			assert.True(t, auth.HasTextCode(err, tt.code), "got %v", err)
		})
	}
}

func TestAccountManager_List(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	seedAccount(t, f.repo, newAccount(auth.RoleMember, "LDCE"), "member-password")
	seedAccount(t, f.repo, newAccount(auth.RoleMember, "SVIT"), "member-password")

	all, err := f.manager.List(ctx, auth.BranchFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	scoped, err := f.manager.List(ctx, auth.BranchFilter{BranchID: "SVIT", Restricted: true})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "SVIT", scoped[0].BranchID)

	branches, err := f.manager.ListBranches(ctx, auth.BranchFilter{})
	require.NoError(t, err)
	assert.Len(t, branches, 2)
}
