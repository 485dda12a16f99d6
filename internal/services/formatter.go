package services

import (
	"regexp"
	"strings"
)

var (
	boldMarkup   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicMarkup = regexp.MustCompile(`\*(.*?)\*`)
	replyMarkup  = strings.NewReplacer("*", "&#42;", "\n", "<br>")
)

// FormatResponse converts **bold**, *italic* and newlines in a raw model reply
// to HTML. Unpaired asterisks are emitted as &#42;, so the output contains no
// markdown and formatting it again is a no-op.
func FormatResponse(raw string) string {
	out := boldMarkup.ReplaceAllString(raw, "<strong>$1</strong>")
	out = italicMarkup.ReplaceAllString(out, "<em>$1</em>")
	return replyMarkup.Replace(out)
}
