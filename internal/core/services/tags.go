package services

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTag returns the comparison key for a tag value.
// Full-width and half-width forms, letter case, and runs of whitespace
// all collapse to the same key, so "Ｃｌｉｅｎｔ", "client" and " CLIENT "
// are one tag.
func NormalizeTag(value string) string {
	s := norm.NFKC.String(value)
	s = cases.Fold().String(s) // Casers are stateful; one per call
	return strings.Join(strings.Fields(s), " ")
}

// CleanTag trims a user-supplied tag for display, keeping its spelling.
func CleanTag(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// mergeTags appends values to existing, skipping blanks and values whose
// normalised form is already present. The first-seen spelling wins.
// It reports whether anything was added.
func mergeTags(existing []string, values ...string) ([]string, bool) {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[NormalizeTag(v)] = struct{}{}
	}

	added := false
	for _, v := range values {
		clean := CleanTag(v)
		if clean == "" {
			continue
		}
		key := NormalizeTag(clean)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		existing = append(existing, clean)
		added = true
	}
	return existing, added
}

// dedupeTags returns values with normalised duplicates and blanks removed.
func dedupeTags(values []string) []string {
	out, _ := mergeTags(nil, values...)
	return out
}
