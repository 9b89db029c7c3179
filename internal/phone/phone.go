// Package phone canonicalizes raw phone strings into the international
// format the messaging gateway expects. Normalization is pure and never
// fails; callers reject the bare country-code prefix before dispatching.
package phone

import "strings"

const trunkPrefix = "0"

// Normalizer produces canonical +<countryCode> numbers for a single fixed
// country code.
type Normalizer struct {
	countryCode string
}

func NewNormalizer(countryCode string) *Normalizer {
	return &Normalizer{countryCode: strings.TrimSpace(countryCode)}
}

// Normalize strips formatting, the international escape (+ or 00), at most
// one country-code prefix and at most one trunk-prefix digit, then prepends
// +<countryCode>. An empty input yields the bare prefix, which IsValid
// rejects.
func (n *Normalizer) Normalize(raw string) string {
	digits := digitsOnly(raw)

	digits = strings.TrimPrefix(digits, "00")
	if strings.HasPrefix(digits, n.countryCode) {
		digits = digits[len(n.countryCode):]
	}
	if strings.HasPrefix(digits, trunkPrefix) {
		digits = digits[len(trunkPrefix):]
	}

	return "+" + n.countryCode + digits
}

// IsValid reports whether a normalized number carries any subscriber digits
// beyond the country-code prefix.
func (n *Normalizer) IsValid(normalized string) bool {
	return normalized != "+"+n.countryCode
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
