package auth

import (
	"context"

	"github.com/ciphersigma/ieee-sps-gs-website-sub001/middleware/jwtware"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

const (
	// LocalsAuthKey holds the *AuthContext of a verified caller
	LocalsAuthKey = "auth"
	// LocalsScopeKey holds the BranchScope resolved by OptionalAuth
	LocalsScopeKey = "branch_scope"
	// BranchQueryParam is the query parameter public list routes read
	BranchQueryParam = "branch"
)

// HTTPAuthenticator builds the fiber middleware around a Verifier
type HTTPAuthenticator struct {
	verifier    *Verifier
	tokenLookup string
	authScheme  string
	logger      Logger
	observer    Observer
}

func NewHTTPAuthenticator(verifier *Verifier, cfg Config) *HTTPAuthenticator {
	return &HTTPAuthenticator{
		verifier:    verifier,
		tokenLookup: cfg.GetTokenLookup(),
		authScheme:  cfg.GetAuthScheme(),
		logger:      defLogger{},
		observer:    noopObserver{},
	}
}

func (a *HTTPAuthenticator) WithLogger(logger Logger) *HTTPAuthenticator {
	a.logger = normalizeLogger(logger)
	return a
}

func (a *HTTPAuthenticator) WithObserver(o Observer) *HTTPAuthenticator {
	a.observer = normalizeObserver(o)
	return a
}

// Protected rejects the request unless a valid token of an active account is
// presented. The AuthContext is stored in locals and in the user context.
func (a *HTTPAuthenticator) Protected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		ContextKey:  LocalsAuthKey,
		TokenLookup: a.tokenLookup,
		AuthScheme:  a.authScheme,
		Resolver: func(c *fiber.Ctx, token string, _ error) (any, error) {
			return a.verifier.Verify(c.UserContext(), token)
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, jwtware.ErrJWTMissing) || errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				a.observer.TokenVerification(VerifyModeStrict, string(OutcomeAnonymous))
				return ErrMissingToken
			}
			return err
		},
		ContextEnricher: func(ctx context.Context, value any) context.Context {
			ac, _ := value.(*AuthContext)
			return WithContext(ctx, ac)
		},
	})
}

// OptionalAuth never rejects. It resolves the caller if it can and stores a
// BranchScope built from the caller and the ?branch= query parameter.
func (a *HTTPAuthenticator) OptionalAuth() fiber.Handler {
	return jwtware.New(jwtware.Config{
		ContextKey:  LocalsScopeKey,
		TokenLookup: a.tokenLookup,
		AuthScheme:  a.authScheme,
		Optional:    true,
		Resolver: func(c *fiber.Ctx, token string, extractErr error) (any, error) {
			var identity OptionalIdentity
			switch {
			case extractErr == nil:
				identity = a.verifier.ResolveOptionalIdentity(c.UserContext(), token)
			case errors.Is(extractErr, jwtware.ErrJWTMissingOrMalformed):
				a.observer.TokenVerification(VerifyModeLenient, string(OutcomeMalformed))
				identity = OptionalIdentity{Outcome: OutcomeMalformed, Err: extractErr}
			default:
				a.observer.TokenVerification(VerifyModeLenient, string(OutcomeAnonymous))
				identity = OptionalIdentity{Outcome: OutcomeAnonymous}
			}

			return BranchScope{
				Identity: identity,
				Filter:   ResolveBranchFilter(identity, c.Query(BranchQueryParam)),
			}, nil
		},
		ValidationListeners: []jwtware.ValidationListener{
			func(c *fiber.Ctx, value any) error {
				if scope, ok := value.(BranchScope); ok {
					if ac := scope.Auth(); ac != nil {
						c.Locals(LocalsAuthKey, ac)
					}
				}
				return nil
			},
		},
		ContextEnricher: func(ctx context.Context, value any) context.Context {
			scope, _ := value.(BranchScope)
			ctx = WithBranchScope(ctx, scope)
			if ac := scope.Auth(); ac != nil {
				ctx = WithContext(ctx, ac)
			}
			return ctx
		},
	})
}

// RequireSuperAdmin must run after Protected
func (a *HTTPAuthenticator) RequireSuperAdmin() fiber.Handler {
	return a.guard("super_admin", RequireSuperAdmin)
}

// RequirePermission must run after Protected
func (a *HTTPAuthenticator) RequirePermission(c Capability) fiber.Handler {
	return a.guard("permission:"+c.String(), func(ac *AuthContext) error {
		return RequirePermission(ac, c)
	})
}

// RequireRole must run after Protected
func (a *HTTPAuthenticator) RequireRole(roles ...Role) fiber.Handler {
	return a.guard("role", func(ac *AuthContext) error {
		return RequireRole(ac, roles...)
	})
}

func (a *HTTPAuthenticator) guard(name string, check func(*AuthContext) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac, _ := AuthContextFromFiber(c)
		err := check(ac)
		a.observer.GuardDecision(name, err == nil)
		if err != nil {
			a.logger.Info("Guard denied request", "guard", name, "account_id", ac.AccountID(), "path", c.Path())
			return err
		}
		return c.Next()
	}
}

// AuthContextFromFiber returns the verified caller stored by Protected or
// OptionalAuth
func AuthContextFromFiber(c *fiber.Ctx) (*AuthContext, bool) {
	ac, ok := c.Locals(LocalsAuthKey).(*AuthContext)
	return ac, ok && ac != nil
}

// BranchScopeFromFiber returns the scope stored by OptionalAuth
func BranchScopeFromFiber(c *fiber.Ctx) (BranchScope, bool) {
	scope, ok := c.Locals(LocalsScopeKey).(BranchScope)
	return scope, ok
}
