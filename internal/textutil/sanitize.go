package textutil

import (
	"strings"
	"unicode"
)

// maxFileNameLength bounds sanitized names so category suffixes and
// extensions never push the final path past filesystem limits.
const maxFileNameLength = 100

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes a display name safe for use as a filename stem.
// Unsafe characters are replaced or dropped, runs of whitespace or
// underscores collapse to a single separator (spaces stay spaces), edges
// are trimmed, and the result is truncated to 100 characters.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = fileNameReplacer.Replace(name)

	var b strings.Builder
	b.Grow(len(name))
	inRun := false
	for _, r := range name {
		if unicode.IsSpace(r) || r == '_' {
			if inRun {
				continue
			}
			inRun = true
			if r == '_' {
				b.WriteByte('_')
			} else {
				b.WriteByte(' ')
			}
			continue
		}
		b.WriteRune(r)
		inRun = false
	}

	out := strings.Trim(b.String(), "_ ")
	if runes := []rune(out); len(runes) > maxFileNameLength {
		out = strings.Trim(string(runes[:maxFileNameLength]), "_ ")
	}
	return out
}

// FuzzyToken reduces a name to lowercase alphanumerics for loose filename
// matching. "Film A: Part Two!" and "film_a_part_two" produce the same token.
func FuzzyToken(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
