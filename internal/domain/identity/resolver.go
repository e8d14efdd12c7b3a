// Package identity derives stable per-patient keys for linking records
// across export sources that share no common primary key.
package identity

import "strings"

// Key is a synthetic cross-source patient identity token. Two records with
// equal keys are treated as the same patient. The zero value means the
// record carries no resolvable identity.
type Key string

// Resolver is the contract consumed by the matching and cohort layers.
// ok=false means the record must be silently excluded from identity-based
// joins; it is a data-quality signal, never an error.
type Resolver func(patientNumber, normalizedName, birthDate string) (Key, bool)

// Resolve derives a patient key. A usable patient number wins; otherwise a
// normalized name plus birth date is accepted; otherwise there is no key.
//
// Patient numbers are canonicalized by stripping every non-digit rune and
// dropping leading zeros, so "00042", "No.42" and "42" all yield pn:42.
func Resolve(patientNumber, normalizedName, birthDate string) (Key, bool) {
	if n, ok := canonicalNumber(patientNumber); ok {
		return Key("pn:" + n), true
	}
	if normalizedName != "" && birthDate != "" {
		return Key("nb:" + normalizedName + "|" + birthDate), true
	}
	return "", false
}

func canonicalNumber(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '０' && r <= '９': // full-width digits in Japanese exports
			b.WriteRune('0' + (r - '０'))
		}
	}
	digits := b.String()
	if digits == "" {
		return "", false
	}
	// Equivalent to parse-and-restringify, without an integer-width limit.
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return trimmed, true
}
