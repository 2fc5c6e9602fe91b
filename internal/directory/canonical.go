package directory

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var titleCaser = cases.Title(language.Portuguese)

// CanonicalPlaceKey normalizes a municipality or province name into the
// stable key stored on offices, schools, and cache entries. Canonicalization
// happens once, here, at write time; the authorization hot path compares
// keys byte for byte and never normalizes.
//
// Rules: Unicode NFC, surrounding whitespace trimmed, internal runs of
// whitespace collapsed to one space, Portuguese title casing.
func CanonicalPlaceKey(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return titleCaser.String(s)
}
