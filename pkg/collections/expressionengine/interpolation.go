package expressionengine

import (
	"regexp"
	"strings"
)

var interpolationPattern = regexp.MustCompile(`\(\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)\)`)

// InterpolationReferences lists the identifiers used as ((identifier)) placeholders in text.
func InterpolationReferences(text string) []string {
	refs := []string{}
	seen := map[string]bool{}
	for _, m := range interpolationPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			refs = append(refs, m[1])
		}
	}
	return refs
}

// Interpolate replaces every ((identifier)) placeholder with the result of render.
func Interpolate(text string, render func(ref string) string) string {
	if !strings.Contains(text, "((") {
		return text
	}
	return interpolationPattern.ReplaceAllStringFunc(text, func(match string) string {
		m := interpolationPattern.FindStringSubmatch(match)
		return render(m[1])
	})
}
