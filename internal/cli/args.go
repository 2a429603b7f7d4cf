package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// usageError keeps the help text readable while still matching ErrUsage.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }
func (e *usageError) Unwrap() error { return skilldeploy.ErrUsage }

func usageErrorf(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// RequireSourcePath validates that exactly one source_path argument is provided.
// Returns a helpful error message with usage and examples if missing or too many.
func RequireSourcePath(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return usageErrorf(`missing required argument: <source_path>

Usage: %s

Example:
  %s ./skills -t ~/.claude/skills`, cmd.UseLine(), cmd.CommandPath())
	}
	if len(args) > 1 {
		return usageErrorf("accepts 1 arg(s), received %d", len(args))
	}
	return nil
}

// RequireManifestPaths returns an argument validator for commands that take
// exactly n manifest files.
func RequireManifestPaths(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usageErrorf(`missing required argument: expected %d manifest file(s), received %d

Usage: %s

Example:
  %s%s`, n, len(args), cmd.UseLine(), cmd.CommandPath(), manifestExample(n))
		}
		if len(args) > n {
			return usageErrorf("accepts %d arg(s), received %d", n, len(args))
		}
		return nil
	}
}

func manifestExample(n int) string {
	if n == 2 {
		return " old/" + skilldeploy.DefaultManifestName + " new/" + skilldeploy.DefaultManifestName
	}
	return " ~/.claude/skills/" + skilldeploy.DefaultManifestName
}
