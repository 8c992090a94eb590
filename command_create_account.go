package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-command"
	"github.com/uptrace/bun"
)

type CreateAccountMessage struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	DisplayName string   `json:"displayName"`
	Phone       string   `json:"phone"`
	Role        string   `json:"role"`
	BranchID    string   `json:"branchId"`
	Permissions []string `json:"permissions"`
	IsActive    *bool    `json:"isActive"`
	Actor       ActorRef `json:"-"`
}

func (e CreateAccountMessage) Type() string { return "account.create" }

// Validate checks the identity fields. Role, branch and permissions are
// parsed and bound by the handler.
func (e CreateAccountMessage) Validate() error {
	err := validation.Errors{
		"email":       validation.Validate(NormalizeEmail(e.Email), emailRules...),
		"displayName": validation.Validate(strings.TrimSpace(e.DisplayName), displayNameRules...),
	}.Filter()
	if err != nil {
		return validationError(err)
	}
	return nil
}

// CreateAccountHandler creates accounts on behalf of a super admin
type CreateAccountHandler struct {
	handlerDeps
}

var _ command.Commander[CreateAccountMessage] = (*CreateAccountHandler)(nil)

func NewCreateAccountHandler(repo RepositoryManager, hasher PasswordHasher, opts ...HandlerOption) *CreateAccountHandler {
	return &CreateAccountHandler{handlerDeps: newHandlerDeps(repo, hasher, opts...)}
}

func (h *CreateAccountHandler) Execute(ctx context.Context, event CreateAccountMessage) error {
	_, err := h.Handle(ctx, event)
	return err
}

// Handle creates the account and returns it
func (h *CreateAccountHandler) Handle(ctx context.Context, event CreateAccountMessage) (*Account, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return run(ctx, h.handlerDeps, event, h.create)
}

func (h *CreateAccountHandler) create(ctx context.Context, event CreateAccountMessage) (*Account, error) {
	role := RoleMember
	if event.Role != "" {
		r, err := ParseRole(event.Role)
		if err != nil {
			return nil, err
		}
		role = r
	}

	perms, err := ParsePermissions(event.Permissions)
	if err != nil {
		return nil, err
	}

	phone, err := NormalizePhone(event.Phone, h.phoneRegion)
	if err != nil {
		return nil, err
	}

	hash, err := h.passwordHash(event.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if event.IsActive != nil {
		active = *event.IsActive
	}

	account := &Account{
		Email:        event.Email,
		PasswordHash: hash,
		DisplayName:  event.DisplayName,
		Phone:        phone,
		Role:         role,
		BranchID:     event.BranchID,
		Permissions:  perms,
		IsActive:     active,
	}
	account.Normalize()
	if err := account.Validate(); err != nil {
		return nil, err
	}

	var created *Account
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if account.Role.IsBranchScoped() {
			if _, err := h.repo.Branches().FindByCodeTx(ctx, tx, account.BranchID); err != nil {
				return err
			}
		}

		var err error
		created, err = h.repo.Accounts().InsertTx(ctx, tx, account)
		return err
	})
	if err != nil {
		return nil, txError(err, "account.create")
	}

	h.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountCreated,
		Actor:     event.Actor,
		AccountID: created.ID.String(),
		BranchID:  created.BranchID,
		Metadata: map[string]any{
			"role": string(created.Role),
		},
	})

	return created, nil
}
