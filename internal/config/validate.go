package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Validate checks every section
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Environment, validation.Required, validation.In(EnvDevelopment, EnvTest, EnvProduction)),
		validation.Field(&c.Log),
		validation.Field(&c.HTTP),
		validation.Field(&c.Database),
		validation.Field(&c.Auth),
		validation.Field(&c.RateLimit),
	)
}

func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
	)
}

func (c HTTPConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Address, validation.Required),
	)
}

func (c DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
	)
}

func (c AuthConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.SigningKeyID, validation.Required, is.PrintableASCII),
		validation.Field(&c.TokenTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.TokenLookup, validation.Required),
		validation.Field(&c.AuthScheme, validation.Required),
		validation.Field(&c.PasswordCost, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
		validation.Field(&c.MinPasswordLength, validation.Min(6), validation.Max(72)),
		validation.Field(&c.PhoneRegion, validation.Required, validation.Length(2, 2), is.UpperCase),
	)
}

func (c RateLimit) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Max, validation.Min(1)),
		validation.Field(&c.Window, validation.Min(time.Second)),
	)
}
