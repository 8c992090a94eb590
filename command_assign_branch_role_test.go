package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
)

type roleFixture struct {
	repo   auth.RepositoryManager
	sink   *recordingSink
	assign *auth.AssignBranchRoleHandler
	clear  *auth.ClearBranchRoleHandler
}

func newRoleFixture(t *testing.T) *roleFixture {
	t.Helper()
	f := &roleFixture{
		repo: auth.NewRepositoryManager(newTestDB(t)),
		sink: &recordingSink{},
	}
	opts := []auth.HandlerOption{
		auth.WithHandlerActivitySink(f.sink),
		auth.WithHandlerLogger(&captureLogger{}),
		auth.WithHandlerPhoneRegion("IN"),
	}
	f.assign = auth.NewAssignBranchRoleHandler(f.repo, testHasher(), opts...)
	f.clear = auth.NewClearBranchRoleHandler(f.repo, opts...)
	seedBranch(t, f.repo, "LDCE")
	seedBranch(t, f.repo, "SVIT")
	return f
}

func TestAssignBranchRole_CreatesAccount(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	result, err := f.assign.Handle(ctx, auth.AssignBranchRoleMessage{
		BranchCode: "ldce",
		Slot:       auth.SlotChairperson,
		Name:       "Chair",
		Email:      "Chair@LDCE.edu",
		Phone:      "098765 43210",
		Password:   "chair-password",
	})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Nil(t, result.Demoted)

	account := result.Account
	assert.Equal(t, auth.RoleChairperson, account.Role)
	assert.Equal(t, "LDCE", account.BranchID)
	assert.Equal(t, "chair@ldce.edu", account.Email)
	assert.Zero(t, account.Permissions)

	slot := result.Branch.Slot(auth.SlotChairperson)
	assert.True(t, slot.HeldBy(account.ID))
	assert.Equal(t, "+919876543210", slot.Phone)
	assert.Equal(t, "Chair", slot.Name)
	assert.True(t, result.Branch.Slot(auth.SlotCounsellor).IsEmpty())

	stored, err := f.repo.Branches().FindByCode(ctx, "LDCE")
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), stored.Chairperson.AccountID)
	assert.Equal(t, auth.ActivityEventBranchRoleAssigned, f.sink.last().EventType)

	auther := auth.NewAuthenticator(f.repo.Accounts(), testHasher(), newTokenService(t)).WithLogger(&captureLogger{})
	_, err = auther.Login(ctx, "chair@ldce.edu", "chair-password")
	assert.NoError(t, err)
}

func TestAssignBranchRole_WithoutPasswordCannotLogin(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	result, err := f.assign.Handle(ctx, auth.AssignBranchRoleMessage{
		BranchCode: "LDCE",
		Slot:       auth.SlotCounsellor,
		Name:       "Counsellor",
		Email:      "counsellor@ldce.edu",
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleCounsellor, result.Account.Role)

	auther := auth.NewAuthenticator(f.repo.Accounts(), testHasher(), newTokenService(t)).WithLogger(&captureLogger{})
	_, err = auther.Login(ctx, "counsellor@ldce.edu", "a-guessed-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAssignBranchRole_Occupied(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	first, err := f.assign.Handle(ctx, auth.AssignBranchRoleMessage{
		BranchCode: "LDCE", Slot: auth.SlotChairperson, Name: "First", Email: "first@ldce.edu",
	})
	require.NoError(t, err)

	// same holder again is a no-op update
	again, err := f.assign.Handle(ctx, auth.AssignBranchRoleMessage{
		BranchCode: "LDCE", Slot: auth.SlotChairperson, Name: "First Again", Email: "first@ldce.edu",
	})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.Account.ID, again.Account.ID)
	assert.Equal(t, "First Again", again.Branch.Chairperson.Name)

	_, err = f.assign.Handle(ctx, auth.AssignBranchRoleMessage{
		BranchCode: "LDCE", Slot: auth.SlotChairperson, Name: "Second", Email: "second@ldce.edu",
	})
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeSlotOccupied))

	// the failed assignment left nothing behind
	_, err = f.repo.Accounts().FindByEmail(ctx, "second@ldce.edu")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeIdentityNotFound))

	replaced, err := f.assign.Handle(ctx, auth.AssignBranchRoleMessage{
		BranchCode: "LDCE", Slot: auth.SlotChairperson, Name: "Second", Email: "second@ldce.edu", Replace: true,
	})
	require.NoError(t, err)
	require.NotNil(t, replaced.Demoted)
	assert.Equal(t, first.Account.ID, replaced.Demoted.ID)
	assert.Equal(t, auth.RoleMember, replaced.Demoted.Role)
	assert.Equal(t, "LDCE", replaced.Demoted.BranchID)
	assert.True(t, replaced.Branch.Chairperson.HeldBy(replaced.Account.ID))
}

func TestAssignBranchRole_ExistingAccounts(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	member := seedAccount(t, f.repo, newAccount(auth.RoleMember, "SVIT"), "member-password")
	result, err := f.assign.Handle(ctx, auth.AssignBranchRoleMessage{
		BranchCode: "LDCE", Slot: auth.SlotCounsellor, Email: member.Email,
	})
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, member.ID, result.Account.ID)
	assert.Equal(t, auth.RoleCounsellor, result.Account.Role)
	assert.Equal(t, "LDCE", result.Account.BranchID)
	assert.Equal(t, member.DisplayName, result.Branch.Counsellor.Name)

	editor := seedAccount(t, f.repo, newAccount(auth.RoleEditor, ""), "editor-password")
	_, err = f.assign.Handle(ctx, auth.AssignBranchRoleMessage{
		BranchCode: "SVIT", Slot: auth.SlotChairperson, Name: "Editor", Email: editor.Email,
	})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeConflict))
}

func TestAssignBranchRole_Rejects(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		msg  auth.AssignBranchRoleMessage
		code string
	}{
		{"unknown branch", auth.AssignBranchRoleMessage{BranchCode: "NOPE", Slot: auth.SlotChairperson, Name: "X", Email: "x@x.edu"}, auth.TextCodeBranchNotFound},
		{"unknown slot", auth.AssignBranchRoleMessage{BranchCode: "LDCE", Slot: "treasurer", Name: "X", Email: "x@x.edu"}, auth.TextCodeInvalidSlot},
		{"bad phone", auth.AssignBranchRoleMessage{BranchCode: "LDCE", Slot: auth.SlotChairperson, Name: "X", Email: "x@x.edu", Phone: "phone"}, auth.TextCodeInvalidPhone},
		{"bad email", auth.AssignBranchRoleMessage{BranchCode: "LDCE", Slot: auth.SlotChairperson, Name: "X", Email: "x"}, auth.TextCodeValidation},
		{"short password", auth.AssignBranchRoleMessage{BranchCode: "LDCE", Slot: auth.SlotChairperson, Name: "X", Email: "x@x.edu", Password: "short"}, auth.TextCodePasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.assign.Handle(ctx, tt.msg)
			require.Error(t, err)
			assert.True(t, auth.HasTextCode(err, tt.code), "got %v", err)
		})
	}
}

func TestClearBranchRole(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	assigned, err := f.assign.Handle(ctx, auth.AssignBranchRoleMessage{
		BranchCode: "LDCE", Slot: auth.SlotChairperson, Name: "Chair", Email: "chair@ldce.edu",
	})
	require.NoError(t, err)

	branch, err := f.clear.Handle(ctx, auth.ClearBranchRoleMessage{BranchCode: "LDCE", Slot: auth.SlotChairperson})
	require.NoError(t, err)
	assert.True(t, branch.Chairperson.IsEmpty())

	holder, err := f.repo.Accounts().FindByID(ctx, assigned.Account.ID.String())
	require.NoError(t, err)
	assert.Equal(t, auth.RoleMember, holder.Role)
	assert.Equal(t, "LDCE", holder.BranchID)
	assert.Equal(t, auth.ActivityEventBranchRoleCleared, f.sink.last().EventType)
	assert.Equal(t, holder.ID.String(), f.sink.last().AccountID)

	// clearing an empty slot is fine
	_, err = f.clear.Handle(ctx, auth.ClearBranchRoleMessage{BranchCode: "LDCE", Slot: auth.SlotChairperson})
	assert.NoError(t, err)

	_, err = f.clear.Handle(ctx, auth.ClearBranchRoleMessage{BranchCode: "NOPE", Slot: auth.SlotChairperson})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeBranchNotFound))
}
