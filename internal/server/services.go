package server

import (
	"github.com/uptrace/bun"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
	"github.com/ciphersigma/ieee-sps-gs-website-sub001/activitymap"
	"github.com/ciphersigma/ieee-sps-gs-website-sub001/internal/config"
)

// Services are the auth components built once per process
type Services struct {
	Repo          auth.RepositoryManager
	Hasher        auth.BcryptHasher
	Tokens        *auth.TokenService
	Auther        *auth.Auther
	Verifier      *auth.Verifier
	HTTP          *auth.HTTPAuthenticator
	Accounts      *auth.AccountManager
	CreateAccount *auth.CreateAccountHandler
	Bootstrap     *auth.BootstrapSuperAdminHandler
	CreateBranch  *auth.CreateBranchHandler
	AssignRole    *auth.AssignBranchRoleHandler
	ClearRole     *auth.ClearBranchRoleHandler
	Activity      auth.ActivitySink
}

// NewServices wires the store, the token service and every handler
func NewServices(cfg *config.Config, db *bun.DB, logger auth.Logger, observer auth.Observer) (*Services, error) {
	tokens, err := auth.NewTokenServiceFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo := auth.NewRepositoryManager(db)
	hasher := auth.NewBcryptHasher(cfg.GetPasswordCost(), cfg.GetMinPasswordLength())
	activity := activitymap.NewLoggingSink(logger)

	opts := []auth.HandlerOption{
		auth.WithHandlerLogger(logger),
		auth.WithHandlerActivitySink(activity),
		auth.WithHandlerPhoneRegion(cfg.GetPhoneRegion()),
	}

	verifier := auth.NewVerifier(tokens, repo.Accounts()).
		WithLogger(logger).
		WithObserver(observer)

	return &Services{
		Repo:   repo,
		Hasher: hasher,
		Tokens: tokens,
		Auther: auth.NewAuthenticator(repo.Accounts(), hasher, tokens).
			WithLogger(logger).
			WithActivitySink(activity).
			WithObserver(observer),
		Verifier: verifier,
		HTTP: auth.NewHTTPAuthenticator(verifier, cfg).
			WithLogger(logger).
			WithObserver(observer),
		Accounts:      auth.NewAccountManager(repo, hasher, opts...),
		CreateAccount: auth.NewCreateAccountHandler(repo, hasher, opts...),
		Bootstrap:     auth.NewBootstrapSuperAdminHandler(repo, hasher, opts...),
		CreateBranch:  auth.NewCreateBranchHandler(repo, opts...),
		AssignRole:    auth.NewAssignBranchRoleHandler(repo, hasher, opts...),
		ClearRole:     auth.NewClearBranchRoleHandler(repo, opts...),
		Activity:      activity,
	}, nil
}

// Controller returns the HTTP controller over these services
func (s *Services) Controller(logger auth.Logger) *auth.Controller {
	return auth.NewController(auth.ControllerDeps{
		HTTP:          s.HTTP,
		Auther:        s.Auther,
		Tokens:        s.Tokens,
		Manager:       s.Accounts,
		CreateAccount: s.CreateAccount,
		Bootstrap:     s.Bootstrap,
		CreateBranch:  s.CreateBranch,
		AssignRole:    s.AssignRole,
		ClearRole:     s.ClearRole,
		Logger:        logger,
	})
}
