// Package normalize canonicalizes free-text patient names into matching
// tokens. Exports from different clinic systems disagree on width
// (full-width vs half-width), spacing and Unicode composition, so the token
// folds all of those before records are compared.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Token returns the matching token for a patient name. ok=false means the
// name carries no usable content and the record cannot participate in
// name-based identity resolution.
func Token(name string) (string, bool) {
	s := norm.NFKC.String(name)
	s = width.Fold.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "", false
	}
	return s, true
}
