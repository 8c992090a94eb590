package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	return hashPassword(password, passwordHashCost())
}

func hashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", tooLong()
	}
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// RandomPasswordHash hashes a random secret nobody knows. Accounts created
// without a password can only log in after an admin sets one.
func RandomPasswordHash() string {
	return randomPasswordHash(passwordHashCost())
}

func randomPasswordHash(cost int) string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}

	h, err := hashPassword(base64.RawURLEncoding.EncodeToString(buf), cost)
	if err != nil {
		return randomPasswordHash(cost)
	}

	return h
}

// BcryptHasher is a PasswordAuthenticator with a configurable cost
type BcryptHasher struct {
	Cost      int
	MinLength int
}

// NewBcryptHasher returns a hasher, non positive values fall back to defaults
func NewBcryptHasher(cost, minLength int) BcryptHasher {
	if cost <= 0 {
		cost = passwordHashCost()
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	return BcryptHasher{Cost: cost, MinLength: minLength}
}

// DefaultMinPasswordLength applies when no minimum is configured
const DefaultMinPasswordLength = 8

// MaxPasswordBytes is the longest input bcrypt accepts
const MaxPasswordBytes = 72

func (h BcryptHasher) HashPassword(password string) (string, error) {
	return hashPassword(password, h.Cost)
}

func (h BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

// RandomPasswordHash hashes a random secret at the hasher's cost
func (h BcryptHasher) RandomPasswordHash() string {
	return randomPasswordHash(h.Cost)
}

// CheckPolicy enforces the minimum length, counted in characters, and the
// bcrypt input limit, counted in bytes
func (h BcryptHasher) CheckPolicy(password string) error {
	if password == "" {
		return ErrNoEmptyString
	}
	min := h.MinLength
	if min <= 0 {
		min = DefaultMinPasswordLength
	}
	if utf8.RuneCountInString(password) < min {
		return ErrPasswordTooShort.Clone().WithMetadata(map[string]any{
			"min_length": min,
		})
	}
	if len(password) > MaxPasswordBytes {
		return tooLong()
	}
	return nil
}

func tooLong() error {
	return ErrPasswordTooLong.Clone().WithMetadata(map[string]any{
		"max_bytes": MaxPasswordBytes,
	})
}
