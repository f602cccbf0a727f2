// internal/payments/phone.go
package payments

import (
	"strings"
)

const ugandaCountryCode = "256"

var providerPrefixes = map[string][]string{
	"mtn":    {"77", "78", "76"},
	"airtel": {"75", "70", "74"},
}

// NormalizePhone strips non-digits and rewrites the number to the
// 256XXXXXXXXX form: a leading 0 becomes the country code, and a bare
// subscriber number gets the country code prepended.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, ugandaCountryCode):
		return digits
	case strings.HasPrefix(digits, "0"):
		return ugandaCountryCode + digits[1:]
	default:
		return ugandaCountryCode + digits
	}
}

// validPrefix reports whether the normalized number belongs to the named
// network.
func validPrefix(normalized, provider string) bool {
	prefixes, ok := providerPrefixes[provider]
	if !ok {
		return false
	}

	if len(normalized) != len(ugandaCountryCode)+9 {
		return false
	}

	subscriber := normalized[len(ugandaCountryCode):]
	for _, p := range prefixes {
		if strings.HasPrefix(subscriber, p) {
			return true
		}
	}
	return false
}
