package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeDisplayName strips markup from a user supplied display name and collapses whitespace.
func SanitizeDisplayName(input string) string {
	clean := html.UnescapeString(strictPolicy.Sanitize(input))
	return strings.Join(strings.Fields(clean), " ")
}
