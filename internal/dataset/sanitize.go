package dataset

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var wordRun = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// lower applies Unicode lowercasing. A [cases.Caser] is stateful, so each call gets its own.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// NormalizeListName reduces an option list name to its first lowercase word run.
//
//	"  Bait Types / 2024" -> "bait_types"
func NormalizeListName(name string) string {
	name = lower(strings.TrimSpace(name))
	return wordRun.FindString(strings.ReplaceAll(name, " ", "_"))
}

// NormalizeKeyValue reduces an option key value to its first word run, keeping its case.
func NormalizeKeyValue(key string) string {
	return wordRun.FindString(strings.ReplaceAll(strings.TrimSpace(key), " ", "_"))
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
