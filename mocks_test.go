package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
)

const testSigningKey = "unit-test-signing-key-0123456789"

// MockCredentialStore implements auth.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	args := m.Called(ctx, email)
	account, _ := args.Get(0).(*auth.Account)
	return account, args.Error(1)
}

func (m *MockCredentialStore) TouchLogin(ctx context.Context, account *auth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockAccountFinder implements auth.AccountFinder
type MockAccountFinder struct {
	mock.Mock
}

func (m *MockAccountFinder) FindByID(ctx context.Context, id string) (*auth.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*auth.Account)
	return account, args.Error(1)
}

// recordingObserver keeps every decision it is told about
type recordingObserver struct {
	mu            sync.Mutex
	logins        []string
	verifications []string
	guards        []string
}

func (o *recordingObserver) LoginAttempt(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logins = append(o.logins, outcome)
}

func (o *recordingObserver) TokenVerification(mode, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verifications = append(o.verifications, mode+":"+outcome)
}

func (o *recordingObserver) GuardDecision(guard string, allowed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.guards = append(o.guards, fmt.Sprintf("%s:%t", guard, allowed))
}

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
	err    error
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *recordingSink) last() auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return auth.ActivityEvent{}
	}
	return s.events[len(s.events)-1]
}

// captureLogger keeps formatted log lines per level
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) add(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprint(append([]any{level, " ", msg, " "}, args...)...))
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("DEBUG", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("INFO", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("WARN", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("ERROR", msg, args...) }

func (l *captureLogger) contains(level, fragment string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.HasPrefix(line, level) && strings.Contains(line, fragment) {
			return true
		}
	}
	return false
}

// testConfig implements auth.Config
type testConfig struct {
	signingKey   string
	signingKeyID string
	previousKeys map[string]string
	ttl          time.Duration
	issuer       string
	audience     []string
	tokenLookup  string
	authScheme   string
	passwordCost int
	minPassword  int
	phoneRegion  string
}

func (c testConfig) GetSigningKey() string                     { return c.signingKey }
func (c testConfig) GetSigningKeyID() string                   { return c.signingKeyID }
func (c testConfig) GetPreviousSigningKeys() map[string]string { return c.previousKeys }
func (c testConfig) GetTokenExpiration() time.Duration         { return c.ttl }
func (c testConfig) GetIssuer() string                         { return c.issuer }
func (c testConfig) GetAudience() []string                     { return c.audience }
func (c testConfig) GetTokenLookup() string                    { return c.tokenLookup }
func (c testConfig) GetAuthScheme() string                     { return c.authScheme }
func (c testConfig) GetPasswordCost() int                      { return c.passwordCost }
func (c testConfig) GetMinPasswordLength() int                 { return c.minPassword }
func (c testConfig) GetPhoneRegion() string                    { return c.phoneRegion }

func newTokenService(t *testing.T, opts ...auth.TokenServiceOption) *auth.TokenService {
	t.Helper()
	keyring, err := auth.NewKeyring("", []byte(testSigningKey), nil)
	require.NoError(t, err)
	return auth.NewTokenService(keyring, opts...)
}

func newAccount(role auth.Role, branch string, caps ...auth.Capability) *auth.Account {
	id := uuid.New()
	return &auth.Account{
		ID:          id,
		Email:       "user-" + id.String()[:8] + "@chapter.org",
		DisplayName: "Test " + string(role),
		Role:        role,
		BranchID:    branch,
		Permissions: auth.NewPermissions(caps...),
		IsActive:    true,
	}
}

func testHasher() auth.BcryptHasher {
	return auth.NewBcryptHasher(bcrypt.MinCost, 8)
}

// newTestDB opens an isolated in memory sqlite database with the schema applied
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = auth.Migrate(context.Background(), db)
	require.NoError(t, err)

	return db
}

// seedAccount stores an account with a known password
func seedAccount(t *testing.T, repo auth.RepositoryManager, account *auth.Account, password string) *auth.Account {
	t.Helper()
	hash, err := testHasher().HashPassword(password)
	require.NoError(t, err)
	account.PasswordHash = hash

	stored, err := repo.Accounts().Insert(context.Background(), account)
	require.NoError(t, err)
	return stored
}

func seedBranch(t *testing.T, repo auth.RepositoryManager, code string) *auth.Branch {
	t.Helper()
	branch, err := repo.Branches().Insert(context.Background(), &auth.Branch{
		Code:     code,
		Name:     "Branch " + code,
		IsActive: true,
	})
	require.NoError(t, err)
	return branch
}

// everyCapability lists each known capability, the wildcard included
func everyCapability(t *testing.T) []auth.Capability {
	t.Helper()
	tags := auth.SortedCapabilities()
	caps := make([]auth.Capability, 0, len(tags))
	for _, tag := range tags {
		c, err := auth.ParseCapability(tag)
		require.NoError(t, err)
		caps = append(caps, c)
	}
	require.Len(t, caps, 6)
	return caps
}
