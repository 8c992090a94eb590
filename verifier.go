package auth

import (
	"context"
)

// IdentityOutcome names how an optional token resolved
type IdentityOutcome string

const (
	OutcomeAnonymous     IdentityOutcome = "anonymous"
	OutcomeMalformed     IdentityOutcome = "malformed"
	OutcomeExpired       IdentityOutcome = "expired"
	OutcomeInvalid       IdentityOutcome = "invalid"
	OutcomeUnavailable   IdentityOutcome = "unavailable"
	OutcomeStoreError    IdentityOutcome = "store_error"
	OutcomeAuthenticated IdentityOutcome = "authenticated"
)

// Verification modes reported to the Observer
const (
	VerifyModeStrict  = "strict"
	VerifyModeLenient = "lenient"
)

// OptionalIdentity is the result of the lenient path. Auth is only set when
// Outcome is OutcomeAuthenticated.
type OptionalIdentity struct {
	Auth    *AuthContext
	Outcome IdentityOutcome
	Err     error
}

// Authenticated is true when a verified caller is present
func (o OptionalIdentity) Authenticated() bool {
	return o.Outcome == OutcomeAuthenticated && o.Auth != nil
}

// Verifier turns raw session tokens into an AuthContext
type Verifier struct {
	tokens   TokenValidator
	accounts AccountFinder
	logger   Logger
	observer Observer
}

func NewVerifier(tokens TokenValidator, accounts AccountFinder) *Verifier {
	return &Verifier{
		tokens:   tokens,
		accounts: accounts,
		logger:   defLogger{},
		observer: noopObserver{},
	}
}

func (v *Verifier) WithLogger(logger Logger) *Verifier {
	v.logger = normalizeLogger(logger)
	return v
}

func (v *Verifier) WithObserver(o Observer) *Verifier {
	v.observer = normalizeObserver(o)
	return v
}

// Verify is the strict path used by protected routes. The account behind the
// token is re-read on every call, a deactivated or deleted account fails even
// while its token is still valid.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*AuthContext, error) {
	ac, outcome, err := v.resolve(ctx, rawToken)
	v.observer.TokenVerification(VerifyModeStrict, string(outcome))
	if err != nil {
		if outcome == OutcomeStoreError {
			v.logger.Error("Verify account lookup failed", "error", err)
		}
		return nil, err
	}
	return ac, nil
}

// ResolveOptionalIdentity is the lenient path. It never returns an error,
// every failure is reported as a named outcome.
func (v *Verifier) ResolveOptionalIdentity(ctx context.Context, rawToken string) OptionalIdentity {
	ac, outcome, err := v.resolve(ctx, rawToken)
	v.observer.TokenVerification(VerifyModeLenient, string(outcome))

	switch outcome {
	case OutcomeAuthenticated, OutcomeAnonymous:
	case OutcomeStoreError:
		v.logger.Warn("Optional identity store failure, continuing as anonymous", "error", err)
	default:
		v.logger.Debug("Optional identity rejected, continuing as anonymous", "outcome", string(outcome))
	}

	return OptionalIdentity{Auth: ac, Outcome: outcome, Err: err}
}

func (v *Verifier) resolve(ctx context.Context, rawToken string) (*AuthContext, IdentityOutcome, error) {
	if rawToken == "" {
		return nil, OutcomeAnonymous, ErrMissingToken
	}

	claims, err := v.tokens.Validate(rawToken)
	if err != nil {
		if HasTextCode(err, TextCodeMissingToken) {
			return nil, OutcomeAnonymous, err
		}
		switch TokenFailureReason(err) {
		case TokenReasonExpired:
			return nil, OutcomeExpired, err
		case TokenReasonMalformed:
			return nil, OutcomeMalformed, err
		case TokenReasonInvalid:
			return nil, OutcomeInvalid, err
		default:
			return nil, OutcomeInvalid, invalidToken(TokenReasonInvalid)
		}
	}

	account, err := v.accounts.FindByID(ctx, claims.UserID())
	if err != nil {
		if HasTextCode(err, TextCodeIdentityNotFound) {
			return nil, OutcomeUnavailable, ErrAccountUnavailable
		}
		return nil, OutcomeStoreError, asUnavailable(err, "verify.find_by_id")
	}

	if !account.IsActive {
		return nil, OutcomeUnavailable, ErrAccountUnavailable
	}

	return NewAuthContext(account), OutcomeAuthenticated, nil
}
