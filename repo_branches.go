package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Branches interface {
	FindByCode(ctx context.Context, code string) (*Branch, error)
	FindByCodeTx(ctx context.Context, tx bun.IDB, code string) (*Branch, error)
	Insert(ctx context.Context, branch *Branch) (*Branch, error)
	InsertTx(ctx context.Context, tx bun.IDB, branch *Branch) (*Branch, error)
	UpdateSlotsTx(ctx context.Context, tx bun.IDB, branch *Branch) (*Branch, error)
	ListByBranch(ctx context.Context, filter BranchFilter) ([]*Branch, error)
}

type branches struct {
	repository.Repository[*Branch]
	db  *bun.DB
	now func() time.Time
}

var _ Branches = (*branches)(nil)

func NewBranchesRepository(db *bun.DB) Branches {
	repo := repository.NewRepository[*Branch](db, repository.ModelHandlers[*Branch]{
		NewRecord: func() *Branch { return &Branch{} },
		GetID: func(b *Branch) uuid.UUID {
			if b == nil {
				return uuid.Nil
			}
			return b.ID
		},
		SetID: func(b *Branch, id uuid.UUID) {
			if b != nil {
				b.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &branches{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

func (b *branches) FindByCode(ctx context.Context, code string) (*Branch, error) {
	return b.FindByCodeTx(ctx, b.db, code)
}

func (b *branches) FindByCodeTx(ctx context.Context, tx bun.IDB, code string) (*Branch, error) {
	code = NormalizeBranchCode(code)
	if code == "" {
		return nil, ErrBranchNotFound
	}

	record := &Branch{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, ErrBranchNotFound.Clone().WithMetadata(map[string]any{
				"code": code,
			})
		}
		return nil, unavailable(err, "branches.find_by_code")
	}
	return record, nil
}

func (b *branches) Insert(ctx context.Context, branch *Branch) (*Branch, error) {
	return b.InsertTx(ctx, b.db, branch)
}

func (b *branches) InsertTx(ctx context.Context, tx bun.IDB, branch *Branch) (*Branch, error) {
	if branch == nil {
		return nil, errors.New("branch is required", errors.CategoryBadInput)
	}

	branch.Code = NormalizeBranchCode(branch.Code)
	if branch.ID == uuid.Nil {
		branch.ID = uuid.New()
	}
	now := b.now().UTC()
	if branch.CreatedAt == nil {
		branch.CreatedAt = &now
	}
	if branch.UpdatedAt == nil {
		branch.UpdatedAt = &now
	}
	if err := branch.Validate(); err != nil {
		return nil, err
	}

	record, err := b.Repository.CreateTx(ctx, tx, branch)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict.Clone().WithMetadata(map[string]any{
				"code": branch.Code,
			})
		}
		return nil, unavailable(err, "branches.insert")
	}
	return record, nil
}

// UpdateSlotsTx writes both leadership slots
func (b *branches) UpdateSlotsTx(ctx context.Context, tx bun.IDB, branch *Branch) (*Branch, error) {
	now := b.now().UTC()
	branch.UpdatedAt = &now

	res, err := tx.NewUpdate().
		Model(branch).
		Column(
			"chairperson_name", "chairperson_email", "chairperson_phone", "chairperson_account_id",
			"counsellor_name", "counsellor_email", "counsellor_phone", "counsellor_account_id",
			"updated_at",
		).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, unavailable(err, "branches.update_slots")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrBranchNotFound
	}
	return b.FindByCodeTx(ctx, tx, branch.Code)
}

func (b *branches) ListByBranch(ctx context.Context, filter BranchFilter) ([]*Branch, error) {
	records := []*Branch{}
	err := b.db.NewSelect().
		Model(&records).
		Apply(filter.Apply("br.code")).
		Order("br.code ASC").
		Scan(ctx)
	if err != nil {
		return nil, unavailable(err, "branches.list")
	}
	return records, nil
}
