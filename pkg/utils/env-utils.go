package utils

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]+`)

// GenerateEnvVarName generates a standardized environment variable name from a given string.
// It converts the input to uppercase and replaces any non-alphanumeric characters with underscores.
// Leading and trailing underscores are removed.
func GenerateEnvVarName(input string) string {
	normalized := strings.ToUpper(input)
	normalized = nonAlphanumeric.ReplaceAllString(normalized, "_")
	return strings.Trim(normalized, "_")
}

// GenerateExportPathEnvVarName generates the environment variable name that overrides the output
// folder of a submission export task. Format: SUBMISSION_EXPORT_PATH_FOR_{NORMALIZED_NAME}
func GenerateExportPathEnvVarName(taskName string) string {
	return "SUBMISSION_EXPORT_PATH_FOR_" + GenerateEnvVarName(taskName)
}
