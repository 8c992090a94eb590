package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the credential store
type Accounts interface {
	CredentialStore
	AccountFinder

	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id string) (*Account, error)
	Insert(ctx context.Context, account *Account) (*Account, error)
	InsertTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	UpdateAccessTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	UpdateProfileTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
	SetActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) (*Account, error)
	ExistsWithRoleTx(ctx context.Context, tx bun.IDB, role Role) (bool, error)
	CountActiveWithRoleTx(ctx context.Context, tx bun.IDB, role Role) (int, error)
	ListByBranch(ctx context.Context, filter BranchFilter) ([]*Account, error)
}

type accounts struct {
	repository.Repository[*Account]
	db  *bun.DB
	now func() time.Time
}

var _ Accounts = (*accounts)(nil)

// NewAccountsRepository returns the bun backed account store
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

func (a *accounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

// FindByEmailTx looks up an account by normalized email
func (a *accounts) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrIdentityNotFound
	}

	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, unavailable(err, "accounts.find_by_email")
	}
	return record, nil
}

func (a *accounts) FindByID(ctx context.Context, id string) (*Account, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *accounts) FindByIDTx(ctx context.Context, tx bun.IDB, id string) (*Account, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrIdentityNotFound
	}

	record := &Account{}
	err = tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", uid).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, unavailable(err, "accounts.find_by_id")
	}
	return record, nil
}

// TouchLogin sets last_login_at to now
func (a *accounts) TouchLogin(ctx context.Context, account *Account) error {
	if account == nil {
		return nil
	}
	now := a.now().UTC()
	_, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("last_login_at = ?", now).
		Where("id = ?", account.ID).
		Exec(ctx)
	if err != nil {
		return unavailable(err, "accounts.touch_login")
	}
	account.LastLoginAt = &now
	return nil
}

func (a *accounts) Insert(ctx context.Context, account *Account) (*Account, error) {
	return a.InsertTx(ctx, a.db, account)
}

// InsertTx validates and stores a new account. A duplicate email is
// reported as ErrConflict.
func (a *accounts) InsertTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	if account == nil {
		return nil, errors.New("account is required", errors.CategoryBadInput)
	}
	a.prepareDefaults(account)
	if err := account.Validate(); err != nil {
		return nil, err
	}

	record, err := a.Repository.CreateTx(ctx, tx, account)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict.Clone().WithMetadata(map[string]any{
				"email": account.Email,
			})
		}
		return nil, unavailable(err, "accounts.insert")
	}
	return record, nil
}

// UpdateAccessTx writes role, branch and permissions
func (a *accounts) UpdateAccessTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	return a.updateColumns(ctx, tx, account, "accounts.update_access", "role", "branch_id", "permissions")
}

// UpdateProfileTx writes display name and phone
func (a *accounts) UpdateProfileTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	return a.updateColumns(ctx, tx, account, "accounts.update_profile", "display_name", "phone")
}

func (a *accounts) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	record := &Account{ID: id, PasswordHash: passwordHash}
	_, err := a.updateColumns(ctx, tx, record, "accounts.update_password", "password_hash")
	return err
}

func (a *accounts) SetActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) (*Account, error) {
	record := &Account{ID: id, IsActive: active}
	return a.updateColumns(ctx, tx, record, "accounts.set_active", "is_active")
}

func (a *accounts) updateColumns(ctx context.Context, tx bun.IDB, account *Account, op string, columns ...string) (*Account, error) {
	now := a.now().UTC()
	account.UpdatedAt = &now
	columns = append(columns, "updated_at")

	res, err := tx.NewUpdate().
		Model(account).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, unavailable(err, op)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrIdentityNotFound
	}
	return a.FindByIDTx(ctx, tx, account.ID.String())
}

// ExistsWithRoleTx reports whether any account holds the role
func (a *accounts) ExistsWithRoleTx(ctx context.Context, tx bun.IDB, role Role) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.role = ?", role).
		Exists(ctx)
	if err != nil {
		return false, unavailable(err, "accounts.exists_with_role")
	}
	return exists, nil
}

// CountActiveWithRoleTx counts the active accounts holding the role
func (a *accounts) CountActiveWithRoleTx(ctx context.Context, tx bun.IDB, role Role) (int, error) {
	n, err := tx.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.role = ?", role).
		Where("?TableAlias.is_active = ?", true).
		Count(ctx)
	if err != nil {
		return 0, unavailable(err, "accounts.count_active_with_role")
	}
	return n, nil
}

// ListByBranch returns accounts narrowed by the branch filter
func (a *accounts) ListByBranch(ctx context.Context, filter BranchFilter) ([]*Account, error) {
	records := []*Account{}
	err := a.db.NewSelect().
		Model(&records).
		Apply(filter.Apply("acc.branch_id")).
		Order("acc.created_at ASC", "acc.email ASC").
		Scan(ctx)
	if err != nil {
		return nil, unavailable(err, "accounts.list")
	}
	return records, nil
}

func (a *accounts) prepareDefaults(account *Account) {
	account.Normalize()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.Role == "" {
		account.Role = RoleMember
	}
	now := a.now().UTC()
	if account.CreatedAt == nil {
		account.CreatedAt = &now
	}
	if account.UpdatedAt == nil {
		account.UpdatedAt = &now
	}
}

func isRecordNotFound(err error) bool {
	if err == nil {
		return false
	}
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}
