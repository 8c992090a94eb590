package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-command"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// bootstrapSeed derives the id of the first super admin. Concurrent
// bootstraps insert the same primary key, only one can win.
const bootstrapSeed = "bootstrap:super_admin"

type BootstrapSuperAdminMessage struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (e BootstrapSuperAdminMessage) Type() string { return "account.bootstrap" }

func (e BootstrapSuperAdminMessage) Validate() error {
	if e.Password == "" {
		return ErrNoEmptyString
	}
	err := validation.Errors{
		"email":       validation.Validate(NormalizeEmail(e.Email), emailRules...),
		"displayName": validation.Validate(strings.TrimSpace(e.DisplayName), displayNameRules...),
	}.Filter()
	if err != nil {
		return validationError(err)
	}
	return nil
}

// BootstrapSuperAdminHandler creates the first super admin. Once any super
// admin exists it only answers ErrBootstrapClosed.
type BootstrapSuperAdminHandler struct {
	handlerDeps
}

var _ command.Commander[BootstrapSuperAdminMessage] = (*BootstrapSuperAdminHandler)(nil)

func NewBootstrapSuperAdminHandler(repo RepositoryManager, hasher PasswordHasher, opts ...HandlerOption) *BootstrapSuperAdminHandler {
	return &BootstrapSuperAdminHandler{handlerDeps: newHandlerDeps(repo, hasher, opts...)}
}

func (h *BootstrapSuperAdminHandler) Execute(ctx context.Context, event BootstrapSuperAdminMessage) error {
	_, err := h.Handle(ctx, event)
	return err
}

// IsOpen reports whether bootstrap can still run
func (h *BootstrapSuperAdminHandler) IsOpen(ctx context.Context) (bool, error) {
	var exists bool
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		exists, err = h.repo.Accounts().ExistsWithRoleTx(ctx, tx, RoleSuperAdmin)
		return err
	})
	if err != nil {
		return false, txError(err, "account.bootstrap")
	}
	return !exists, nil
}

func (h *BootstrapSuperAdminHandler) Handle(ctx context.Context, event BootstrapSuperAdminMessage) (*Account, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return run(ctx, h.handlerDeps, event, h.bootstrap)
}

func (h *BootstrapSuperAdminHandler) bootstrap(ctx context.Context, event BootstrapSuperAdminMessage) (*Account, error) {
	hash, err := h.passwordHash(event.Password)
	if err != nil {
		return nil, err
	}

	id, err := hashid.NewUUID(bootstrapSeed)
	if err != nil {
		return nil, txError(err, "account.bootstrap")
	}

	account := &Account{
		ID:           id,
		Email:        event.Email,
		PasswordHash: hash,
		DisplayName:  event.DisplayName,
		Role:         RoleSuperAdmin,
		Permissions:  NewPermissions(CapAll),
		IsActive:     true,
	}
	account.Normalize()
	if err := account.Validate(); err != nil {
		return nil, err
	}

	var created *Account
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := h.repo.Accounts().ExistsWithRoleTx(ctx, tx, RoleSuperAdmin)
		if err != nil {
			return err
		}
		if exists {
			return ErrBootstrapClosed
		}

		created, err = h.repo.Accounts().InsertTx(ctx, tx, account)
		if err != nil {
			if HasTextCode(err, TextCodeConflict) {
				return ErrBootstrapClosed
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, txError(err, "account.bootstrap")
	}

	h.logger.Info("Bootstrap created super admin", "account_id", created.ID.String())
	h.record(ctx, ActivityEvent{
		EventType: ActivityEventBootstrap,
		Actor:     created.Actor(),
		AccountID: created.ID.String(),
	})

	return created, nil
}
