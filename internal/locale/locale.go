// Package locale normalizes user-configured locale lists for the metadata
// API and for subtitle language selection.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// Normalize parses a locale value and returns its canonical BCP 47 form
// (e.g. "en-us" -> "en-US"). Unparseable values are returned trimmed as-is so
// a typo degrades to a harmless API parameter instead of an error.
func Normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	tag, err := language.Parse(value)
	if err != nil {
		return value
	}
	return tag.String()
}

// Primary returns the first non-empty normalized locale from the configured
// list, or the fallback when the list is empty.
func Primary(locales []string, fallback string) string {
	for _, value := range locales {
		if normalized := Normalize(value); normalized != "" {
			return normalized
		}
	}
	return Normalize(fallback)
}

// SubtitleLangs strips region suffixes from the configured locales and
// deduplicates, producing the bare language list the downloader's subtitle
// flags expect ("en-US", "pt-BR", "en-GB" -> ["en", "pt"]).
func SubtitleLangs(locales []string) []string {
	seen := make(map[string]struct{}, len(locales))
	out := make([]string, 0, len(locales))
	for _, value := range locales {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		code := value
		if tag, err := language.Parse(value); err == nil {
			base, _ := tag.Base()
			code = base.String()
		} else if idx := strings.IndexAny(value, "-_"); idx > 0 {
			code = value[:idx]
		}
		code = strings.ToLower(code)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
