package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-command"
	"github.com/uptrace/bun"
)

type AssignBranchRoleMessage struct {
	BranchCode string   `json:"-"`
	Slot       Slot     `json:"-"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Password   string   `json:"password"`
	Replace    bool     `json:"replace"`
	Actor      ActorRef `json:"-"`
}

func (e AssignBranchRoleMessage) Type() string { return "branch.role.assign" }

// Validate checks the slot and the holder email. Name and password are only
// required when a new account has to be created.
func (e AssignBranchRoleMessage) Validate() error {
	if _, err := ParseSlot(string(e.Slot)); err != nil {
		return err
	}
	err := validation.Errors{
		"branchCode": validation.Validate(NormalizeBranchCode(e.BranchCode), validation.Required),
		"email":      validation.Validate(NormalizeEmail(e.Email), emailRules...),
	}.Filter()
	if err != nil {
		return validationError(err)
	}
	return nil
}

// AssignBranchRoleResult is the branch after the write and the slot holder
type AssignBranchRoleResult struct {
	Branch  *Branch  `json:"branch"`
	Account *Account `json:"account"`
	Created bool     `json:"created"`
	// Demoted is the previous holder when Replace displaced one
	Demoted *Account `json:"demoted,omitempty"`
}

// AssignBranchRoleHandler binds a chairperson or counsellor to a branch. The
// account and the branch are written in one transaction.
type AssignBranchRoleHandler struct {
	handlerDeps
}

var _ command.Commander[AssignBranchRoleMessage] = (*AssignBranchRoleHandler)(nil)

func NewAssignBranchRoleHandler(repo RepositoryManager, hasher PasswordHasher, opts ...HandlerOption) *AssignBranchRoleHandler {
	return &AssignBranchRoleHandler{handlerDeps: newHandlerDeps(repo, hasher, opts...)}
}

func (h *AssignBranchRoleHandler) Execute(ctx context.Context, event AssignBranchRoleMessage) error {
	_, err := h.Handle(ctx, event)
	return err
}

func (h *AssignBranchRoleHandler) Handle(ctx context.Context, event AssignBranchRoleMessage) (*AssignBranchRoleResult, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return run(ctx, h.handlerDeps, event, h.assign)
}

func (h *AssignBranchRoleHandler) assign(ctx context.Context, event AssignBranchRoleMessage) (*AssignBranchRoleResult, error) {
	slot, err := ParseSlot(string(event.Slot))
	if err != nil {
		return nil, err
	}

	phone, err := NormalizePhone(event.Phone, h.phoneRegion)
	if err != nil {
		return nil, err
	}

	email := NormalizeEmail(event.Email)
	candidate := &Account{
		Email:       email,
		DisplayName: event.Name,
		Phone:       phone,
		Role:        slot.Role(),
		BranchID:    event.BranchCode,
		IsActive:    true,
	}
	candidate.Normalize()

	result := &AssignBranchRoleResult{}
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		branch, err := h.repo.Branches().FindByCodeTx(ctx, tx, event.BranchCode)
		if err != nil {
			return err
		}
		candidate.BranchID = branch.Code

		account, err := h.repo.Accounts().FindByEmailTx(ctx, tx, email)
		if err != nil && !HasTextCode(err, TextCodeIdentityNotFound) {
			return err
		}

		current := branch.Slot(slot)
		occupied := !current.IsEmpty() && (account == nil || !current.HeldBy(account.ID))
		if occupied && !event.Replace {
			return ErrSlotOccupied.Clone().WithMetadata(map[string]any{
				"branch": branch.Code,
				"slot":   string(slot),
			})
		}

		switch {
		case account == nil:
			if err := candidate.Validate(); err != nil {
				return err
			}
			hash, err := h.passwordHash(event.Password)
			if err != nil {
				return err
			}
			candidate.PasswordHash = hash
			account, err = h.repo.Accounts().InsertTx(ctx, tx, candidate)
			if err != nil {
				return err
			}
			result.Created = true
		case account.Role == slot.Role() && account.BranchID == branch.Code:
		case account.Role == RoleMember:
			account.Role = slot.Role()
			account.BranchID = branch.Code
			account, err = h.repo.Accounts().UpdateAccessTx(ctx, tx, account)
			if err != nil {
				return err
			}
		default:
			return ErrConflict.Clone().WithMetadata(map[string]any{
				"email":  email,
				"role":   string(account.Role),
				"branch": account.BranchID,
			})
		}

		if occupied {
			demoted, err := demoteHolder(ctx, tx, h.repo.Accounts(), current, slot, branch.Code)
			if err != nil {
				return err
			}
			result.Demoted = demoted
		}

		contactPhone := phone
		if contactPhone == "" {
			contactPhone = account.Phone
		}
		contactName := candidate.DisplayName
		if contactName == "" {
			contactName = account.DisplayName
		}
		branch.SetSlot(slot, BranchContact{
			Name:      contactName,
			Email:     account.Email,
			Phone:     contactPhone,
			AccountID: account.ID.String(),
		})

		branch, err = h.repo.Branches().UpdateSlotsTx(ctx, tx, branch)
		if err != nil {
			return err
		}

		result.Branch = branch
		result.Account = account
		return nil
	})
	if err != nil {
		return nil, txError(err, "branch.role.assign")
	}

	meta := map[string]any{
		"slot":    string(slot),
		"created": result.Created,
	}
	if result.Demoted != nil {
		meta["demoted_account_id"] = result.Demoted.ID.String()
	}
	h.record(ctx, ActivityEvent{
		EventType: ActivityEventBranchRoleAssigned,
		Actor:     event.Actor,
		AccountID: result.Account.ID.String(),
		BranchID:  result.Branch.Code,
		Metadata:  meta,
	})

	return result, nil
}

type ClearBranchRoleMessage struct {
	BranchCode string
	Slot       Slot
	Actor      ActorRef
}

func (e ClearBranchRoleMessage) Type() string { return "branch.role.clear" }

func (e ClearBranchRoleMessage) Validate() error {
	if _, err := ParseSlot(string(e.Slot)); err != nil {
		return err
	}
	err := validation.Errors{
		"branchCode": validation.Validate(NormalizeBranchCode(e.BranchCode), validation.Required),
	}.Filter()
	if err != nil {
		return validationError(err)
	}
	return nil
}

// ClearBranchRoleHandler empties a slot and demotes its holder to member
type ClearBranchRoleHandler struct {
	handlerDeps
}

var _ command.Commander[ClearBranchRoleMessage] = (*ClearBranchRoleHandler)(nil)

func NewClearBranchRoleHandler(repo RepositoryManager, opts ...HandlerOption) *ClearBranchRoleHandler {
	return &ClearBranchRoleHandler{handlerDeps: newHandlerDeps(repo, nil, opts...)}
}

func (h *ClearBranchRoleHandler) Execute(ctx context.Context, event ClearBranchRoleMessage) error {
	_, err := h.Handle(ctx, event)
	return err
}

func (h *ClearBranchRoleHandler) Handle(ctx context.Context, event ClearBranchRoleMessage) (*Branch, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return run(ctx, h.handlerDeps, event, h.clear)
}

func (h *ClearBranchRoleHandler) clear(ctx context.Context, event ClearBranchRoleMessage) (*Branch, error) {
	slot, err := ParseSlot(string(event.Slot))
	if err != nil {
		return nil, err
	}

	var (
		branch  *Branch
		demoted *Account
	)
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		branch, err = h.repo.Branches().FindByCodeTx(ctx, tx, event.BranchCode)
		if err != nil {
			return err
		}

		current := branch.Slot(slot)
		if current.IsEmpty() {
			return nil
		}

		demoted, err = demoteHolder(ctx, tx, h.repo.Accounts(), current, slot, branch.Code)
		if err != nil {
			return err
		}

		branch.SetSlot(slot, BranchContact{})
		branch, err = h.repo.Branches().UpdateSlotsTx(ctx, tx, branch)
		return err
	})
	if err != nil {
		return nil, txError(err, "branch.role.clear")
	}

	cleared := ActivityEvent{
		EventType: ActivityEventBranchRoleCleared,
		Actor:     event.Actor,
		BranchID:  branch.Code,
		Metadata:  map[string]any{"slot": string(slot)},
	}
	if demoted != nil {
		cleared.AccountID = demoted.ID.String()
	}
	h.record(ctx, cleared)

	return branch, nil
}

// demoteHolder turns the account holding a slot back into a member of the
// same branch. Holders that were already moved elsewhere are left alone.
func demoteHolder(ctx context.Context, tx bun.IDB, accounts Accounts, holder BranchContact, slot Slot, branchCode string) (*Account, error) {
	if holder.AccountID == "" {
		return nil, nil
	}

	account, err := accounts.FindByIDTx(ctx, tx, holder.AccountID)
	if err != nil {
		if HasTextCode(err, TextCodeIdentityNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if account.Role != slot.Role() || account.BranchID != branchCode {
		return nil, nil
	}

	account.Role = RoleMember
	return accounts.UpdateAccessTx(ctx, tx, account)
}
