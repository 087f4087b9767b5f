package shared

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// SanitizeColumn normalizes a CSV header into an element name: trimmed, lowercased,
// spaces replaced with underscores, and every other non-word character removed.
//
// The configured unique ID column goes through the same function so it matches loaded headers.
func SanitizeColumn(name string) string {
	name = cases.Lower(language.Und).String(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	return strings.TrimSpace(nonWord.ReplaceAllString(name, ""))
}
