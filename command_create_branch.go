package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-command"
)

type CreateBranchMessage struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	IsActive *bool    `json:"isActive"`
	Actor    ActorRef `json:"-"`
}

func (e CreateBranchMessage) Type() string { return "branch.create" }

func (e CreateBranchMessage) Validate() error {
	err := validation.Errors{
		"code": validation.Validate(NormalizeBranchCode(e.Code), branchCodeRules...),
		"name": validation.Validate(strings.TrimSpace(e.Name), branchNameRules...),
	}.Filter()
	if err != nil {
		return validationError(err)
	}
	return nil
}

type CreateBranchHandler struct {
	handlerDeps
}

var _ command.Commander[CreateBranchMessage] = (*CreateBranchHandler)(nil)

func NewCreateBranchHandler(repo RepositoryManager, opts ...HandlerOption) *CreateBranchHandler {
	return &CreateBranchHandler{handlerDeps: newHandlerDeps(repo, nil, opts...)}
}

func (h *CreateBranchHandler) Execute(ctx context.Context, event CreateBranchMessage) error {
	_, err := h.Handle(ctx, event)
	return err
}

func (h *CreateBranchHandler) Handle(ctx context.Context, event CreateBranchMessage) (*Branch, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return run(ctx, h.handlerDeps, event, h.create)
}

func (h *CreateBranchHandler) create(ctx context.Context, event CreateBranchMessage) (*Branch, error) {
	active := true
	if event.IsActive != nil {
		active = *event.IsActive
	}

	branch, err := h.repo.Branches().Insert(ctx, &Branch{
		Code:     event.Code,
		Name:     event.Name,
		IsActive: active,
	})
	if err != nil {
		return nil, txError(err, "branch.create")
	}

	h.record(ctx, ActivityEvent{
		EventType: ActivityEventBranchCreated,
		Actor:     event.Actor,
		BranchID:  branch.Code,
	})
	return branch, nil
}
