package auth

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
)

// ControllerRoutes are the mount points of the API
type ControllerRoutes struct {
	Auth     string
	Branches string
}

// Controller exposes the auth, account and branch endpoints
type Controller struct {
	Routes *ControllerRoutes

	http          *HTTPAuthenticator
	auther        *Auther
	tokens        TokenIssuer
	manager       *AccountManager
	createAccount *CreateAccountHandler
	bootstrap     *BootstrapSuperAdminHandler
	createBranch  *CreateBranchHandler
	assignRole    *AssignBranchRoleHandler
	clearRole     *ClearBranchRoleHandler
	logger        Logger
}

// ControllerDeps wires a Controller
type ControllerDeps struct {
	HTTP          *HTTPAuthenticator
	Auther        *Auther
	Tokens        TokenIssuer
	Manager       *AccountManager
	CreateAccount *CreateAccountHandler
	Bootstrap     *BootstrapSuperAdminHandler
	CreateBranch  *CreateBranchHandler
	AssignRole    *AssignBranchRoleHandler
	ClearRole     *ClearBranchRoleHandler
	Logger        Logger
}

func NewController(deps ControllerDeps) *Controller {
	return &Controller{
		Routes: &ControllerRoutes{
			Auth:     "/api/auth",
			Branches: "/api/branches",
		},
		http:          deps.HTTP,
		auther:        deps.Auther,
		tokens:        deps.Tokens,
		manager:       deps.Manager,
		createAccount: deps.CreateAccount,
		bootstrap:     deps.Bootstrap,
		createBranch:  deps.CreateBranch,
		assignRole:    deps.AssignRole,
		clearRole:     deps.ClearRole,
		logger:        normalizeLogger(deps.Logger),
	}
}

// RegisterRoutes mounts every endpoint. limiter, when not nil, wraps the
// unauthenticated login and bootstrap routes.
func (ctl *Controller) RegisterRoutes(r fiber.Router, limiter fiber.Handler) {
	public := []fiber.Handler{}
	if limiter != nil {
		public = append(public, limiter)
	}

	h := ctl.http
	authRoutes := r.Group(ctl.Routes.Auth)
	authRoutes.Post("/login", append(public, ctl.Login)...)
	authRoutes.Post("/bootstrap", append(public, ctl.Bootstrap)...)
	authRoutes.Get("/me", h.Protected(), ctl.Me)
	authRoutes.Put("/profile", h.Protected(), ctl.UpdateProfile)
	authRoutes.Put("/change-password", h.Protected(), ctl.ChangePassword)

	authRoutes.Get("/accounts", h.Protected(), h.RequirePermission(CapMembers), ctl.ListAccounts)
	authRoutes.Post("/accounts", h.Protected(), h.RequireSuperAdmin(), ctl.CreateAccount)
	authRoutes.Put("/accounts/:id/status", h.Protected(), h.RequireSuperAdmin(), ctl.SetAccountStatus)
	authRoutes.Put("/accounts/:id/access", h.Protected(), h.RequireSuperAdmin(), ctl.UpdateAccountAccess)

	branchRoutes := r.Group(ctl.Routes.Branches)
	branchRoutes.Get("/", h.OptionalAuth(), ctl.ListBranches)
	branchRoutes.Post("/", h.Protected(), h.RequirePermission(CapMembers), ctl.CreateBranch)
	branchRoutes.Put("/:code/roles/:slot", h.Protected(), h.RequireSuperAdmin(), ctl.AssignBranchRole)
	branchRoutes.Delete("/:code/roles/:slot", h.Protected(), h.RequireSuperAdmin(), ctl.ClearBranchRole)
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate will validate the payload
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 200)),
	)
}

func (ctl *Controller) Login(c *fiber.Ctx) error {
	payload := LoginPayload{}
	if err := parseBody(c, &payload); err != nil {
		return err
	}
	payload.Email = NormalizeEmail(payload.Email)
	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	res, err := ctl.auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// BootstrapPayload creates the first super admin
type BootstrapPayload struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (r BootstrapPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 120)),
	)
}

func (ctl *Controller) Bootstrap(c *fiber.Ctx) error {
	payload := BootstrapPayload{}
	if err := parseBody(c, &payload); err != nil {
		return err
	}
	payload.Email = NormalizeEmail(payload.Email)
	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	account, err := ctl.bootstrap.Handle(c.UserContext(), BootstrapSuperAdminMessage{
		Email:       payload.Email,
		Password:    payload.Password,
		DisplayName: payload.DisplayName,
	})
	if err != nil {
		return err
	}

	issued, err := ctl.tokens.Issue(account)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"token":     issued.Token,
		"expiresAt": issued.ExpiresAt,
		"account":   account,
	})
}

func (ctl *Controller) Me(c *fiber.Ctx) error {
	ac, ok := AuthContextFromFiber(c)
	if !ok {
		return ErrMissingToken
	}
	return c.JSON(fiber.Map{"account": ac.Account})
}

func (ctl *Controller) UpdateProfile(c *fiber.Ctx) error {
	ac, ok := AuthContextFromFiber(c)
	if !ok {
		return ErrMissingToken
	}

	payload := ProfileUpdate{}
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	account, err := ctl.manager.UpdateProfile(c.UserContext(), ac, payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"account": account})
}

// ChangePasswordPayload requires the current password
type ChangePasswordPayload struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
	)
}

func (ctl *Controller) ChangePassword(c *fiber.Ctx) error {
	ac, ok := AuthContextFromFiber(c)
	if !ok {
		return ErrMissingToken
	}

	payload := ChangePasswordPayload{}
	if err := parseBody(c, &payload); err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	if err := ctl.manager.ChangePassword(c.UserContext(), ac, payload.CurrentPassword, payload.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "password updated"})
}

func (ctl *Controller) ListAccounts(c *fiber.Ctx) error {
	ac, _ := AuthContextFromFiber(c)
	filter := ScopeFor(ac, c.Query(BranchQueryParam))

	accounts, err := ctl.manager.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"accounts": accounts, "filter": filter})
}

func (ctl *Controller) CreateAccount(c *fiber.Ctx) error {
	ac, _ := AuthContextFromFiber(c)

	msg := CreateAccountMessage{}
	if err := parseBody(c, &msg); err != nil {
		return err
	}
	msg.Actor = ac.Actor()

	account, err := ctl.createAccount.Handle(c.UserContext(), msg)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"account": account})
}

// StatusPayload toggles an account
type StatusPayload struct {
	IsActive *bool `json:"isActive"`
}

func (r StatusPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IsActive, validation.NotNil),
	)
}

func (ctl *Controller) SetAccountStatus(c *fiber.Ctx) error {
	ac, _ := AuthContextFromFiber(c)

	payload := StatusPayload{}
	if err := parseBody(c, &payload); err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	account, err := ctl.manager.SetActive(c.UserContext(), ac, c.Params("id"), *payload.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"account": account})
}

func (ctl *Controller) UpdateAccountAccess(c *fiber.Ctx) error {
	ac, _ := AuthContextFromFiber(c)

	payload := AccessUpdate{}
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	account, err := ctl.manager.UpdateAccess(c.UserContext(), ac, c.Params("id"), payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"account": account})
}

func (ctl *Controller) ListBranches(c *fiber.Ctx) error {
	scope, ok := BranchScopeFromFiber(c)
	if !ok {
		scope = BranchScope{
			Identity: OptionalIdentity{Outcome: OutcomeAnonymous},
			Filter:   ResolveBranchFilter(OptionalIdentity{Outcome: OutcomeAnonymous}, c.Query(BranchQueryParam)),
		}
	}

	branches, err := ctl.manager.ListBranches(c.UserContext(), scope.Filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"branches": branches, "filter": scope.Filter})
}

func (ctl *Controller) CreateBranch(c *fiber.Ctx) error {
	ac, _ := AuthContextFromFiber(c)

	msg := CreateBranchMessage{}
	if err := parseBody(c, &msg); err != nil {
		return err
	}
	msg.Actor = ac.Actor()

	branch, err := ctl.createBranch.Handle(c.UserContext(), msg)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"branch": branch})
}

func (ctl *Controller) AssignBranchRole(c *fiber.Ctx) error {
	ac, _ := AuthContextFromFiber(c)

	msg := AssignBranchRoleMessage{}
	if err := parseBody(c, &msg); err != nil {
		return err
	}
	msg.BranchCode = c.Params("code")
	msg.Slot = Slot(c.Params("slot"))
	msg.Actor = ac.Actor()

	res, err := ctl.assignRole.Handle(c.UserContext(), msg)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"branch": res.Branch, "account": res.Account})
}

func (ctl *Controller) ClearBranchRole(c *fiber.Ctx) error {
	ac, _ := AuthContextFromFiber(c)

	branch, err := ctl.clearRole.Handle(c.UserContext(), ClearBranchRoleMessage{
		BranchCode: c.Params("code"),
		Slot:       Slot(c.Params("slot")),
		Actor:      ac.Actor(),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"branch": branch})
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return ErrValidation.Clone().WithMetadata(map[string]any{
			"fields": map[string]any{"body": err.Error()},
		})
	}
	return nil
}
