package auth

import (
	"context"

	"github.com/uptrace/bun"
)

// AccessUpdate carries the fields an admin may change. Nil fields are kept.
type AccessUpdate struct {
	Role        *string   `json:"role"`
	BranchID    *string   `json:"branchId"`
	Permissions *[]string `json:"permissions"`
}

// ProfileUpdate carries the fields an account may change about itself
type ProfileUpdate struct {
	DisplayName *string `json:"displayName"`
	Phone       *string `json:"phone"`
}

// AccountManager covers self service and admin edits of existing accounts
type AccountManager struct {
	handlerDeps
}

func NewAccountManager(repo RepositoryManager, hasher PasswordHasher, opts ...HandlerOption) *AccountManager {
	return &AccountManager{handlerDeps: newHandlerDeps(repo, hasher, opts...)}
}

// UpdateProfile changes the caller's display name and phone
func (m *AccountManager) UpdateProfile(ctx context.Context, ac *AuthContext, update ProfileUpdate) (*Account, error) {
	if ac == nil || ac.Account == nil {
		return nil, ErrMissingToken
	}

	account := *ac.Account
	if update.DisplayName != nil {
		account.DisplayName = *update.DisplayName
	}
	if update.Phone != nil {
		phone, err := NormalizePhone(*update.Phone, m.phoneRegion)
		if err != nil {
			return nil, err
		}
		account.Phone = phone
	}
	account.Normalize()

	var updated *Account
	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		updated, err = m.repo.Accounts().UpdateProfileTx(ctx, tx, &account)
		return err
	})
	if err != nil {
		return nil, txError(err, "account.update_profile")
	}
	return updated, nil
}

// ChangePassword replaces the caller's password after checking the current one
func (m *AccountManager) ChangePassword(ctx context.Context, ac *AuthContext, current, next string) error {
	if ac == nil || ac.Account == nil {
		return ErrMissingToken
	}

	if err := m.hasher.ComparePasswordAndHash(current, ac.Account.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}
	if err := m.hasher.CheckPolicy(next); err != nil {
		return err
	}

	hash, err := m.passwordHash(next)
	if err != nil {
		return err
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return m.repo.Accounts().UpdatePasswordTx(ctx, tx, ac.Account.ID, hash)
	})
	if err != nil {
		return txError(err, "account.change_password")
	}

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		Actor:     ac.Actor(),
		AccountID: ac.AccountID(),
	})
	return nil
}

// SetActive activates or deactivates an account. Accounts are never deleted.
// An admin cannot deactivate itself, and the last active super admin cannot
// be deactivated.
func (m *AccountManager) SetActive(ctx context.Context, actor *AuthContext, id string, active bool) (*Account, error) {
	var updated *Account
	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := m.repo.Accounts().FindByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if !active {
			if actor.IsAccount(account.ID) {
				return ErrForbidden.Clone().WithMetadata(map[string]any{
					"reason": "cannot deactivate own account",
				})
			}
			if err := m.keepSuperAdmin(ctx, tx, account); err != nil {
				return err
			}
		}

		updated, err = m.repo.Accounts().SetActiveTx(ctx, tx, account.ID, active)
		return err
	})
	if err != nil {
		return nil, txError(err, "account.set_active")
	}

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountStatus,
		Actor:     actor.Actor(),
		AccountID: updated.ID.String(),
		Metadata:  map[string]any{"active": active},
	})
	return updated, nil
}

// UpdateAccess changes role, branch and permissions, validated against the
// role rules. Branch scoped roles must point at an existing branch.
func (m *AccountManager) UpdateAccess(ctx context.Context, actor *AuthContext, id string, update AccessUpdate) (*Account, error) {
	var updated *Account
	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := m.repo.Accounts().FindByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		stored := *account

		if update.Role != nil {
			role, err := ParseRole(*update.Role)
			if err != nil {
				return err
			}
			account.Role = role
			if !role.IsBranchScoped() && update.BranchID == nil {
				account.BranchID = ""
			}
		}
		if update.BranchID != nil {
			account.BranchID = *update.BranchID
		}
		if update.Permissions != nil {
			perms, err := ParsePermissions(*update.Permissions)
			if err != nil {
				return err
			}
			account.Permissions = perms
		}
		account.Normalize()

		if stored.Role.IsSuperAdmin() && !account.Role.IsSuperAdmin() {
			if actor.IsAccount(account.ID) {
				return ErrForbidden.Clone().WithMetadata(map[string]any{
					"reason": "cannot demote own account",
				})
			}
			if err := m.keepSuperAdmin(ctx, tx, &stored); err != nil {
				return err
			}
		}

		if account.Role.IsBranchScoped() && account.BranchID != "" {
			if _, err := m.repo.Branches().FindByCodeTx(ctx, tx, account.BranchID); err != nil {
				return err
			}
		}

		updated, err = m.repo.Accounts().UpdateAccessTx(ctx, tx, account)
		return err
	})
	if err != nil {
		return nil, txError(err, "account.update_access")
	}

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountAccess,
		Actor:     actor.Actor(),
		AccountID: updated.ID.String(),
		BranchID:  updated.BranchID,
		Metadata: map[string]any{
			"role":        string(updated.Role),
			"permissions": updated.Permissions.Tags(),
		},
	})
	return updated, nil
}

// keepSuperAdmin refuses to take away the last active super admin
func (m *AccountManager) keepSuperAdmin(ctx context.Context, tx bun.IDB, account *Account) error {
	if !account.Role.IsSuperAdmin() || !account.IsActive {
		return nil
	}
	n, err := m.repo.Accounts().CountActiveWithRoleTx(ctx, tx, RoleSuperAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrForbidden.Clone().WithMetadata(map[string]any{
			"reason": "last active super admin",
		})
	}
	return nil
}

// List returns accounts visible through the filter
func (m *AccountManager) List(ctx context.Context, filter BranchFilter) ([]*Account, error) {
	records, err := m.repo.Accounts().ListByBranch(ctx, filter)
	if err != nil {
		return nil, txError(err, "account.list")
	}
	return records, nil
}

// ListBranches returns branches visible through the filter
func (m *AccountManager) ListBranches(ctx context.Context, filter BranchFilter) ([]*Branch, error) {
	records, err := m.repo.Branches().ListByBranch(ctx, filter)
	if err != nil {
		return nil, txError(err, "branch.list")
	}
	return records, nil
}
