package auth

import (
	"sort"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultSigningKeyID is used when no key id is configured
const DefaultSigningKeyID = "primary"

// Keyring holds the HMAC key new tokens are signed with plus previous keys
// that are still accepted for verification. Tokens name their key in the
// kid header.
type Keyring struct {
	currentID string
	current   []byte
	ids       []string
	jwks      *keyfunc.JWKS
}

// NewKeyring builds a keyring from the current key and any previous keys
func NewKeyring(currentID string, current []byte, previous map[string][]byte) (*Keyring, error) {
	if len(current) == 0 {
		return nil, errors.New("signing key is required", errors.CategoryBadInput)
	}
	if currentID == "" {
		currentID = DefaultSigningKeyID
	}

	given := make(map[string]keyfunc.GivenKey, len(previous)+1)
	for kid, key := range previous {
		if kid == "" || len(key) == 0 || kid == currentID {
			continue
		}
		given[kid] = keyfunc.NewGivenCustom(key, keyfunc.GivenKeyOptions{
			Algorithm: jwt.SigningMethodHS256.Alg(),
		})
	}
	given[currentID] = keyfunc.NewGivenCustom(current, keyfunc.GivenKeyOptions{
		Algorithm: jwt.SigningMethodHS256.Alg(),
	})

	ids := make([]string, 0, len(given))
	for kid := range given {
		ids = append(ids, kid)
	}
	sort.Strings(ids)

	return &Keyring{
		currentID: currentID,
		current:   current,
		ids:       ids,
		jwks:      keyfunc.NewGiven(given),
	}, nil
}

// NewKeyringFromConfig reads the signing keys from config
func NewKeyringFromConfig(cfg Config) (*Keyring, error) {
	previous := make(map[string][]byte, len(cfg.GetPreviousSigningKeys()))
	for kid, key := range cfg.GetPreviousSigningKeys() {
		previous[kid] = []byte(key)
	}
	return NewKeyring(cfg.GetSigningKeyID(), []byte(cfg.GetSigningKey()), previous)
}

// SigningKey returns the key id and key new tokens are signed with
func (k *Keyring) SigningKey() (string, []byte) {
	return k.currentID, k.current
}

// KeyIDs lists every accepted key id
func (k *Keyring) KeyIDs() []string {
	out := make([]string, len(k.ids))
	copy(out, k.ids)
	return out
}

// Keyfunc resolves the verification key from the kid header
func (k *Keyring) Keyfunc(token *jwt.Token) (any, error) {
	return k.jwks.Keyfunc(token)
}
