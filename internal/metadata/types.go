package metadata

import (
	"fmt"
	"strings"
)

// Attributes is a package's declared key/value metadata.
type Attributes = map[string]any

// Header locates the embedded header block of a primary document.
type Header struct {
	// Start and End delimit the header body (between the '---' lines) as byte offsets
	Start int
	End   int

	// Line is the 1-based line number of the first body line
	Line int
}

// Classification is the place of a package in the source taxonomy.
type Classification struct {
	Category  string
	Toolchain string
	Framework string
}

// Categories derived from the first source path segment.
const (
	CategoryUniversal = "universal"
	CategoryToolchain = "toolchain"
	CategoryExample   = "example"
	CategoryUnknown   = "unknown"
)

// ValidationResult contains the outcome of metadata validation.
// If Valid is false, Errors contains human-readable error messages.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// AddError appends an error message to the validation result and marks it as invalid.
func (v *ValidationResult) AddError(format string, args ...interface{}) {
	v.Valid = false
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if the validation result contains errors.
func (v *ValidationResult) HasErrors() bool {
	return len(v.Errors) > 0
}

// ErrorString returns all validation errors joined with semicolons.
// Returns empty string if no errors.
func (v *ValidationResult) ErrorString() string {
	return strings.Join(v.Errors, "; ")
}
