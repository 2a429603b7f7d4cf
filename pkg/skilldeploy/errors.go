package skilldeploy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	report, err := deployer.Deploy(ctx, config)
//	if errors.Is(err, skilldeploy.ErrValidationFailed) {
//	    // nothing was written
//	}
var (
	// ErrUsage indicates a command line misuse such as a missing argument.
	ErrUsage = errors.New("usage error")

	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingPrimaryDocument indicates a package-like directory without a primary document.
	ErrMissingPrimaryDocument = errors.New("missing primary document")

	// ErrDanglingSymlink indicates a symbolic link whose target does not exist.
	ErrDanglingSymlink = errors.New("dangling symbolic link")

	// ErrIllegalSegmentCharacter indicates a source path segment that cannot be
	// joined unambiguously with the reserved separator.
	ErrIllegalSegmentCharacter = errors.New("illegal segment character")

	// ErrNamingCollision indicates two packages map to the same deployed name.
	ErrNamingCollision = errors.New("naming collision")

	// ErrTargetNotWritable indicates the target root can be neither written nor created.
	ErrTargetNotWritable = errors.New("target root not writable")

	// ErrValidationFailed indicates pre-flight validation failed and nothing was written.
	ErrValidationFailed = errors.New("validation failed")

	// ErrMaterialization indicates a package could not be written to the target.
	ErrMaterialization = errors.New("materialization failed")

	// ErrTargetNotEmpty indicates a package target directory already holds content.
	ErrTargetNotEmpty = errors.New("target directory not empty")

	// ErrManifestWrite indicates the deployment manifest could not be written.
	ErrManifestWrite = errors.New("manifest write failed")

	// ErrPartialFailure indicates some packages failed while others were deployed.
	ErrPartialFailure = errors.New("partial failure")

	// ErrApprovalDenied indicates the user denied approval for an overwrite.
	ErrApprovalDenied = errors.New("approval denied")
)

// DiscoveryError reports a problem with a single source entry.
// It never aborts discovery of other entries.
type DiscoveryError struct {
	Path string // Slash-separated path relative to the source root
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery error at %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// IllegalSegmentCharacterError is returned by the name transformer when a
// segment cannot be joined without ambiguity.
type IllegalSegmentCharacterError struct {
	SourcePath string
	Segment    string
	Separator  rune
}

func (e *IllegalSegmentCharacterError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("source path %q contains an empty segment", e.SourcePath)
	}
	return fmt.Sprintf("segment %q of source path %q contains the reserved separator %q or a path separator",
		e.Segment, e.SourcePath, string(e.Separator))
}

func (e *IllegalSegmentCharacterError) Unwrap() error { return ErrIllegalSegmentCharacter }

// NamingCollisionError lists every source path that produced the same deployed name.
type NamingCollisionError struct {
	DeployedName string
	SourcePaths  []string
}

func (e *NamingCollisionError) Error() string {
	paths := append([]string(nil), e.SourcePaths...)
	sort.Strings(paths)
	return fmt.Sprintf("deployed name %q is produced by %d source paths: %s",
		e.DeployedName, len(paths), strings.Join(paths, ", "))
}

func (e *NamingCollisionError) Unwrap() error { return ErrNamingCollision }

// MaterializationError reports an I/O failure while writing one package.
type MaterializationError struct {
	DeployedName string
	Path         string
	Err          error
}

func (e *MaterializationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to materialize %s: %v", e.DeployedName, e.Err)
	}
	return fmt.Sprintf("failed to materialize %s (%s): %v", e.DeployedName, e.Path, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *MaterializationError) Unwrap() []error { return []error{ErrMaterialization, e.Err} }

// ManifestWriteError reports a failure to persist the manifest.
// Package files already written stay on disk.
type ManifestWriteError struct {
	Path string
	Err  error
}

func (e *ManifestWriteError) Error() string {
	return fmt.Sprintf("failed to write manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestWriteError) Unwrap() []error { return []error{ErrManifestWrite, e.Err} }

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrManifestWrite):
		return ExitManifestFailed
	case errors.Is(err, ErrValidationFailed):
		return ExitValidationFailed
	case errors.Is(err, ErrPartialFailure):
		return ExitPartialFailure
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrUsage):
		return ExitUsageError
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	}

	// cobra reports flag and argument misuse as plain errors
	errStr := err.Error()
	for _, prefix := range []string{"unknown flag", "unknown shorthand flag", "unknown command", "invalid argument", "accepts ", "requires at least", "required flag"} {
		if strings.HasPrefix(errStr, prefix) {
			return ExitUsageError
		}
	}

	return ExitGeneralError
}
