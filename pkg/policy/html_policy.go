package policy

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// PlainText strips all HTML from user-supplied text.
var PlainText = bluemonday.StrictPolicy()

// SanitizeText removes markup from user-supplied text, leaving plain, unescaped
// text with surrounding whitespace trimmed. Reference:
// https://pkg.go.dev/github.com/microcosm-cc/bluemonday#section-readme
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(PlainText.Sanitize(s)))
}
