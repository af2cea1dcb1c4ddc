// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag. bluemonday policies are safe for concurrent use.
var strict = bluemonday.StrictPolicy()

// PlainText strips all markup from s and trims surrounding whitespace.
// Entities that bluemonday escapes are decoded again, so "Tom & Jerry"
// survives unchanged.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// IsPlainText reports whether s contains no markup.
func IsPlainText(s string) bool {
	return !strings.ContainsAny(s, "<>")
}
