package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// SanitizeHTML cleans article and footer bodies, keeping user-generated-content markup.
func SanitizeHTML(input string) string {
	return richPolicy.Sanitize(input)
}

// SanitizeText strips every tag, for titles and other single-line fields.
func SanitizeText(input string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(input))
}
