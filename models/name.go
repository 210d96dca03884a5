package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.Spanish)

// NormalizeName trims, collapses inner whitespace and upper-cases a client or
// user name so "  josé  pérez" and "JOSÉ PÉREZ" compare equal.
func NormalizeName(s string) string {
	return upper.String(strings.Join(strings.Fields(s), " "))
}
