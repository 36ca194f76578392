package ingest

import "strings"

// NationalNumberLength digits in a national number once prefixes are stripped
const NationalNumberLength = 10

// CanonicalPhone strips non-digits, a leading country code (also in its 00-form)
// and then a single trunk zero. Only a 10-digit national number is accepted and
// returned as "+<countryCode><national>"; anything else returns "".
func CanonicalPhone(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if countryCode != "" {
		for _, prefix := range []string{"00" + countryCode, countryCode} {
			if strings.HasPrefix(digits, prefix) && len(digits)-len(prefix) >= NationalNumberLength {
				digits = digits[len(prefix):]
				break
			}
		}
	}
	if strings.HasPrefix(digits, "0") {
		digits = digits[1:]
	}

	if len(digits) != NationalNumberLength {
		return ""
	}
	return "+" + countryCode + digits
}
