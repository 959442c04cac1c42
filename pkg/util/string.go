package util

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// slugSpaceClass is the whitespace set the legacy site's slugs were built
// with. It is wider than RE2's \s, which only knows ASCII.
const slugSpaceClass = `\t\n\x{000B}\f\r \x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}`

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9` + slugSpaceClass + `-]`)
	slugSpaces     = regexp.MustCompile(`[` + slugSpaceClass + `]+`)
	slugHyphens    = regexp.MustCompile(`-+`)

	// U+0300..U+036F, the combining diacritical marks block
	combiningMarks = runes.In(&unicode.RangeTable{
		R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
	})
)

// GenerateSlug creates a URL-friendly slug from title.
//
// The steps are fixed because slugs already published by the legacy site must
// keep resolving: lower-case, canonical decomposition with combining marks
// removed, drop everything but [a-z0-9], whitespace and hyphens, trim,
// whitespace runs to a single hyphen, hyphen runs to a single hyphen.
func GenerateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = stripDiacritics(slug)
	slug = slugDisallowed.ReplaceAllString(slug, "")
	slug = strings.TrimFunc(slug, isSlugSpace)
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugHyphens.ReplaceAllString(slug, "-")
	return slug
}

func isSlugSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		0x00A0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(combiningMarks))
	out, _, err := transform.String(t, s)
	if err != nil {
		// Only reachable on invalid UTF-8; fall back to the decomposed form
		return norm.NFD.String(s)
	}
	return out
}

// Truncate shortens s to max runes, appending "..." when it had to cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
