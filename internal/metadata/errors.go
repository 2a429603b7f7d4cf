package metadata

import (
	"fmt"
	"regexp"
	"strconv"
)

// MetadataError represents a structured error with context and helpful hints.
// It includes file path, optional line/column numbers, and actionable suggestions.
type MetadataError struct {
	FilePath string // Path to the file with the error
	Line     int    // Line number (0 if unknown)
	Column   int    // Column number (0 if unknown)
	Field    string // Field name (e.g., "name", "requires") if applicable
	Message  string // Primary error message
	Hint     string // Actionable suggestion for fixing
}

// Error implements the error interface with rich formatting.
func (e *MetadataError) Error() string {
	var location string
	if e.Line > 0 {
		if e.Column > 0 {
			location = fmt.Sprintf("%s (line %d, col %d)", e.FilePath, e.Line, e.Column)
		} else {
			location = fmt.Sprintf("%s (line %d)", e.FilePath, e.Line)
		}
	} else {
		location = e.FilePath
	}

	msg := fmt.Sprintf("metadata error in %s: %s", location, e.Message)

	if e.Field != "" {
		msg = fmt.Sprintf("metadata error in %s [field: %s]: %s", location, e.Field, e.Message)
	}

	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}

	return msg
}

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// wrapYAMLError converts yaml.v3 errors to MetadataError. firstLine is the
// document line holding the first header line.
func wrapYAMLError(err error, filePath string, firstLine int) error {
	line := 0
	if m := yamlLineRegex.FindStringSubmatch(err.Error()); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			line = firstLine + n - 1
		}
	}
	return &MetadataError{
		FilePath: filePath,
		Line:     line,
		Message:  err.Error(),
		Hint: "The header block must be a YAML mapping between two '---' lines:\n" +
			"  ---\n" +
			"  name: my-skill\n" +
			"  description: What the skill does\n" +
			"  ---",
	}
}
