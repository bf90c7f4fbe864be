package utils

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a display name into a lower case, hyphen separated identifier that passes IsURLSafe.
func Slugify(input string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(input), "-")
	return strings.Trim(slug, "-")
}
