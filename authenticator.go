package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// Login outcomes reported to the Observer
const (
	LoginOutcomeSuccess     = "success"
	LoginOutcomeInvalid     = "invalid_credentials"
	LoginOutcomeInactive    = "inactive"
	LoginOutcomeUnavailable = "store_error"
	LoginOutcomeError       = "error"
)

// LoginResult is what a successful login hands back to the client
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Account   *Account  `json:"account"`
}

type Auther struct {
	store        CredentialStore
	hasher       PasswordAuthenticator
	tokens       TokenIssuer
	logger       Logger
	activitySink ActivitySink
	observer     Observer

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store CredentialStore, hasher PasswordAuthenticator, tokens TokenIssuer) *Auther {
	return &Auther{
		store:        store,
		hasher:       hasher,
		tokens:       tokens,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		observer:     noopObserver{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

func (s *Auther) WithObserver(o Observer) *Auther {
	s.observer = normalizeObserver(o)
	return s
}

// Login verifies the credentials and issues a session token. Unknown emails
// and wrong passwords produce the same ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		s.fail(ctx, nil, email, LoginOutcomeInvalid, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if HasTextCode(err, TextCodeIdentityNotFound) {
			// keep timing close to the found path
			_ = s.hasher.ComparePasswordAndHash(password, s.dummy())
			s.fail(ctx, nil, email, LoginOutcomeInvalid, err)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Login credential lookup failed", "error", err)
		s.fail(ctx, nil, email, LoginOutcomeUnavailable, err)
		return nil, asUnavailable(err, "login.find_by_email")
	}

	if err := s.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.fail(ctx, account, email, LoginOutcomeInvalid, err)
		return nil, ErrInvalidCredentials
	}

	if !account.IsActive {
		s.logger.Warn("Login blocked for inactive account", "account_id", account.ID.String())
		s.fail(ctx, account, email, LoginOutcomeInactive, ErrAccountUnavailable)
		return nil, ErrAccountUnavailable
	}

	issued, err := s.tokens.Issue(account)
	if err != nil {
		s.logger.Error("Login failed to issue token", "error", err)
		s.fail(ctx, account, email, LoginOutcomeError, err)
		return nil, err
	}

	if err := s.store.TouchLogin(ctx, account); err != nil {
		s.logger.Warn("Login could not record last login", "account_id", account.ID.String(), "error", err)
	}

	s.observer.LoginAttempt(LoginOutcomeSuccess)
	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     account.Actor(),
		AccountID: account.ID.String(),
		BranchID:  account.BranchID,
		Metadata: map[string]any{
			"jti": issued.TokenID,
		},
	})

	return &LoginResult{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		Account:   account,
	}, nil
}

func (s *Auther) fail(ctx context.Context, account *Account, email, outcome string, err error) {
	s.observer.LoginAttempt(outcome)

	event := ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{Type: "unknown"},
		Metadata: map[string]any{
			"email":   email,
			"outcome": outcome,
		},
	}
	if account != nil {
		event.Actor = account.Actor()
		event.AccountID = account.ID.String()
	}
	if err != nil {
		event.Metadata["error"] = err.Error()
	}
	recordActivity(ctx, s.activitySink, s.logger, event)
}

func (s *Auther) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.HashPassword(strings.Repeat("x", 16))
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// asUnavailable keeps rich store errors and wraps anything else as a 503
func asUnavailable(err error, op string) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}
	return unavailable(err, op)
}
