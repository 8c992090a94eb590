package auth

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse numbers written without a country code
const DefaultPhoneRegion = "US"

// NormalizePhone parses a phone number and formats it as E.164. An empty
// input stays empty.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultPhoneRegion
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone.Clone().WithMetadata(map[string]any{
			"phone": raw,
		})
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
