package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// DeriveSlug lowercases s, folds accented letters to their base letter, keeps
// [a-z0-9], turns runs of spaces, hyphens and underscores into a single
// hyphen and drops everything else. The result never starts or ends with a
// hyphen and may be empty.
func DeriveSlug(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || unicode.IsSpace(r):
			pendingHyphen = true
		}
	}
	return b.String()
}

// DerivePath maps a page slug to its public path: "home" is the site root,
// anything else is "/<slug>".
func DerivePath(slug string) string {
	if slug == "home" {
		return "/"
	}
	return "/" + slug
}

// NormalizePath trims whitespace and collapses leading slashes to exactly one.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimLeft(p, "/")
	return "/" + p
}
