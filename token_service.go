package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/oklog/ulid/v2"
)

// DefaultTokenTTL is the session lifetime when none is configured
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenService signs and validates session tokens
type TokenService struct {
	keyring  *Keyring
	ttl      time.Duration
	issuer   string
	audience jwt.ClaimStrings
	logger   Logger
	now      func() time.Time
}

var (
	_ TokenIssuer    = (*TokenService)(nil)
	_ TokenValidator = (*TokenService)(nil)
)

type TokenServiceOption func(*TokenService)

func WithTokenTTL(ttl time.Duration) TokenServiceOption {
	return func(ts *TokenService) {
		if ttl > 0 {
			ts.ttl = ttl
		}
	}
}

func WithTokenIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenService) {
		ts.issuer = issuer
	}
}

func WithTokenAudience(aud ...string) TokenServiceOption {
	return func(ts *TokenService) {
		ts.audience = append(jwt.ClaimStrings{}, aud...)
	}
}

func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		ts.logger = normalizeLogger(logger)
	}
}

// WithTokenClock overrides the clock, mostly for tests
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(keyring *Keyring, opts ...TokenServiceOption) *TokenService {
	ts := &TokenService{
		keyring: keyring,
		ttl:     DefaultTokenTTL,
		logger:  defLogger{},
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}
	return ts
}

// NewTokenServiceFromConfig wires keys, lifetime, issuer and audience from cfg
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenService, error) {
	keyring, err := NewKeyringFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewTokenService(keyring,
		WithTokenTTL(cfg.GetTokenExpiration()),
		WithTokenIssuer(cfg.GetIssuer()),
		WithTokenAudience(cfg.GetAudience()...),
		WithTokenLogger(logger),
	), nil
}

// TTL returns the configured session lifetime
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Issue signs a token for an active account. Callers must have verified the
// password already.
func (ts *TokenService) Issue(account *Account) (IssuedToken, error) {
	if account == nil {
		return IssuedToken{}, errors.New("account is required", errors.CategoryBadInput)
	}
	if !account.IsActive {
		return IssuedToken{}, ErrAccountUnavailable
	}
	if ts.keyring == nil {
		return IssuedToken{}, errors.New("token keyring is not configured", errors.CategoryInternal)
	}

	now := ts.now().Truncate(time.Second)
	expiresAt := now.Add(ts.ttl)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    ts.issuer,
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AccountID: account.ID.String(),
		Email:     account.Email,
		UserRole:  account.Role,
	}
	if len(ts.audience) > 0 {
		claims.Audience = append(jwt.ClaimStrings{}, ts.audience...)
	}

	signed, err := ts.SignClaims(claims)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{
		Token:     signed,
		TokenID:   claims.ID,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// SignClaims signs arbitrary JWT claims with the current key
func (ts *TokenService) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	kid, key := ts.keyring.SigningKey()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string. Every failure is reported as
// ErrInvalidOrExpiredToken with the failure reason in its metadata.
func (ts *TokenService) Validate(tokenString string) (*JWTClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	if ts.keyring == nil {
		return nil, errors.New("token keyring is not configured", errors.CategoryInternal)
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, ts.keyring.Keyfunc, parserOptions...)
	if err != nil {
		reason := tokenFailureReason(err)
		ts.logger.Debug("token rejected", "reason", reason, "error", err)
		return nil, invalidToken(reason)
	}

	if !token.Valid || claims.UserID() == "" {
		return nil, invalidToken(TokenReasonInvalid)
	}

	return claims, nil
}
