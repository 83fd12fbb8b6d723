package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Clients render replies as plain text, so any markup the model emits is
// stripped rather than delivered.
var strictPolicy = bluemonday.StrictPolicy()

// StripMarkup removes all HTML elements and attributes from s and decodes
// the entities left behind. Plain text comes back unchanged.
func StripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
