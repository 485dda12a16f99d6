package services

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}\s\v\p{Z}.,!?-]`)
	whitespaceRuns  = regexp.MustCompile(`[\s\v\p{Z}]+`)
	periodRuns      = regexp.MustCompile(`\.+`)
)

// CleanText normalizes extracted text before it is embedded or compared:
// lower-case, only letters, digits, whitespace and ". , ! ? -" survive,
// whitespace and period runs are collapsed. CleanText(CleanText(s)) == CleanText(s).
func CleanText(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ToLower(text)
	text = disallowedChars.ReplaceAllString(text, "")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	text = periodRuns.ReplaceAllString(text, ".")
	return strings.TrimSpace(text)
}
