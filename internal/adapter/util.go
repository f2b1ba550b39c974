package adapter

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// extractText converts an HTML or HTML-encoded string to plain text.
// Entities are unescaped first so encoded markup is stripped too; whitespace
// is collapsed to single spaces.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := html.UnescapeString(stripPolicy.Sanitize(unescaped))
	return strings.Join(strings.Fields(plain), " ")
}
