package skilldeploy_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, skilldeploy.ExitSuccess},
		{"general error", errors.New("something went wrong"), skilldeploy.ExitGeneralError},
		{"unknown flag", errors.New("unknown flag: --foo"), skilldeploy.ExitUsageError},
		{"unknown shorthand flag", errors.New("unknown shorthand flag: 'x' in -x"), skilldeploy.ExitUsageError},
		{"accepts args", errors.New("accepts 1 arg(s), received 0"), skilldeploy.ExitUsageError},
		{"invalid argument", errors.New(`invalid argument "abc" for "-j, --concurrency" flag`), skilldeploy.ExitUsageError},
		{"usage sentinel", fmt.Errorf("missing <source_path>: %w", skilldeploy.ErrUsage), skilldeploy.ExitUsageError},
		{"invalid config", fmt.Errorf("bad: %w", skilldeploy.ErrInvalidConfig), skilldeploy.ExitConfigError},
		{"approval denied", skilldeploy.ErrApprovalDenied, skilldeploy.ExitApprovalDenied},
		{"validation failed", fmt.Errorf("%w: collision", skilldeploy.ErrValidationFailed), skilldeploy.ExitValidationFailed},
		{"partial failure", fmt.Errorf("%w: 2 package(s) failed", skilldeploy.ErrPartialFailure), skilldeploy.ExitPartialFailure},
		{"manifest write", &skilldeploy.ManifestWriteError{Path: "/t/m.json", Err: errors.New("disk full")}, skilldeploy.ExitManifestFailed},
		{
			"manifest write wins over partial failure",
			errors.Join(skilldeploy.ErrPartialFailure, &skilldeploy.ManifestWriteError{Path: "/t/m.json", Err: errors.New("disk full")}),
			skilldeploy.ExitManifestFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, skilldeploy.ExitCodeForError(tt.err))
		})
	}
}

func TestTypedErrors(t *testing.T) {
	t.Run("illegal segment", func(t *testing.T) {
		err := &skilldeploy.IllegalSegmentCharacterError{SourcePath: "toolchains/py-thon", Segment: "py-thon", Separator: '-'}
		assert.ErrorIs(t, err, skilldeploy.ErrIllegalSegmentCharacter)
		assert.Contains(t, err.Error(), `"py-thon"`)

		empty := &skilldeploy.IllegalSegmentCharacterError{SourcePath: "", Separator: '-'}
		assert.Contains(t, empty.Error(), "empty segment")
	})

	t.Run("collision lists sorted paths", func(t *testing.T) {
		err := &skilldeploy.NamingCollisionError{DeployedName: "a-b", SourcePaths: []string{"a_b", "a/b"}}
		assert.ErrorIs(t, err, skilldeploy.ErrNamingCollision)
		assert.Contains(t, err.Error(), "a/b, a_b")
	})

	t.Run("materialization exposes cause", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := &skilldeploy.MaterializationError{DeployedName: "universal-git", Path: "SKILL.md", Err: cause}
		assert.ErrorIs(t, err, skilldeploy.ErrMaterialization)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "universal-git (SKILL.md)")
	})

	t.Run("discovery error", func(t *testing.T) {
		err := &skilldeploy.DiscoveryError{Path: "toolchains/go", Err: skilldeploy.ErrMissingPrimaryDocument}
		assert.ErrorIs(t, err, skilldeploy.ErrMissingPrimaryDocument)
		assert.Contains(t, err.Error(), "toolchains/go")
	})
}
