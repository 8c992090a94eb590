package config

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
)

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Config is the process wide configuration, loaded once at startup
type Config struct {
	Environment string         `koanf:"environment"`
	Log         LogConfig      `koanf:"log"`
	HTTP        HTTPConfig     `koanf:"http"`
	Database    DatabaseConfig `koanf:"database"`
	Auth        AuthConfig     `koanf:"auth"`
	RateLimit   RateLimit      `koanf:"ratelimit"`

	// EphemeralKey is set when a development signing key was generated
	EphemeralKey bool `koanf:"-"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

type HTTPConfig struct {
	Address string `koanf:"address"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
	Debug  bool   `koanf:"debug"`
}

type AuthConfig struct {
	SigningKey        string            `koanf:"signing_key"`
	SigningKeyID      string            `koanf:"signing_key_id"`
	PreviousKeys      map[string]string `koanf:"previous_keys"`
	TokenTTL          time.Duration     `koanf:"token_ttl"`
	Issuer            string            `koanf:"issuer"`
	Audience          []string          `koanf:"audience"`
	TokenLookup       string            `koanf:"token_lookup"`
	AuthScheme        string            `koanf:"auth_scheme"`
	PasswordCost      int               `koanf:"password_cost"`
	MinPasswordLength int               `koanf:"min_password_length"`
	PhoneRegion       string            `koanf:"phone_region"`
}

type RateLimit struct {
	Max    int           `koanf:"max"`
	Window time.Duration `koanf:"window"`
}

// Default returns the built in defaults. The environment defaults to
// production so a missing signing key stops the process instead of
// falling back to an ephemeral key.
func Default() *Config {
	return &Config{
		Environment: EnvProduction,
		Log: LogConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			Address: ":8080",
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "file:chapter.db?cache=shared",
		},
		Auth: AuthConfig{
			SigningKeyID:      auth.DefaultSigningKeyID,
			PreviousKeys:      map[string]string{},
			TokenTTL:          auth.DefaultTokenTTL,
			Issuer:            "chapter-website",
			Audience:          []string{},
			TokenLookup:       "header:Authorization",
			AuthScheme:        "Bearer",
			PasswordCost:      12,
			MinPasswordLength: auth.DefaultMinPasswordLength,
			PhoneRegion:       auth.DefaultPhoneRegion,
		},
		RateLimit: RateLimit{
			Max:    10,
			Window: time.Minute,
		},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment || c.Environment == EnvTest
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// ensureSigningKey refuses to continue without a key outside development.
// Development gets a random key that dies with the process.
func (c *Config) ensureSigningKey() error {
	if c.Auth.SigningKey != "" {
		return nil
	}
	if !c.IsDevelopment() {
		return ErrMissingSigningKey
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	c.Auth.SigningKey = hex.EncodeToString(buf)
	c.EphemeralKey = true
	return nil
}

func (c *Config) GetSigningKey() string {
	return c.Auth.SigningKey
}

func (c *Config) GetSigningKeyID() string {
	return c.Auth.SigningKeyID
}

func (c *Config) GetPreviousSigningKeys() map[string]string {
	return c.Auth.PreviousKeys
}

func (c *Config) GetTokenExpiration() time.Duration {
	return c.Auth.TokenTTL
}

func (c *Config) GetIssuer() string {
	return c.Auth.Issuer
}

func (c *Config) GetAudience() []string {
	return c.Auth.Audience
}

func (c *Config) GetTokenLookup() string {
	return c.Auth.TokenLookup
}

func (c *Config) GetAuthScheme() string {
	return c.Auth.AuthScheme
}

func (c *Config) GetPasswordCost() int {
	return c.Auth.PasswordCost
}

func (c *Config) GetMinPasswordLength() int {
	return c.Auth.MinPasswordLength
}

func (c *Config) GetPhoneRegion() string {
	return c.Auth.PhoneRegion
}

var _ auth.Config = (*Config)(nil)
