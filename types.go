package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningKeyID() string
	GetPreviousSigningKeys() map[string]string
	GetTokenExpiration() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetTokenLookup() string
	GetAuthScheme() string
	GetPasswordCost() int
	GetMinPasswordLength() int
	GetPhoneRegion() string
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenIssuer signs session tokens for verified accounts
type TokenIssuer interface {
	Issue(account *Account) (IssuedToken, error)
}

// CredentialStore is what login needs from the account store
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	TouchLogin(ctx context.Context, account *Account) error
}

// AccountFinder resolves the account behind a verified token
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (*Account, error)
}

// IssuedToken is a signed session token and its validity window
type IssuedToken struct {
	Token     string    `json:"token"`
	TokenID   string    `json:"-"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Observer receives auth decisions for metrics.
type Observer interface {
	LoginAttempt(outcome string)
	TokenVerification(mode, outcome string)
	GuardDecision(guard string, allowed bool)
}

type noopObserver struct{}

func (noopObserver) LoginAttempt(string)              {}
func (noopObserver) TokenVerification(string, string) {}
func (noopObserver) GuardDecision(string, bool)       {}

func normalizeObserver(o Observer) Observer {
	if o == nil {
		return noopObserver{}
	}
	return o
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(msg), args...)
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(msg), args...)
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(msg), args...)
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(msg), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
