package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "skilldeploy",
	Short: "Flatten hierarchical skill packages into a deployable directory",
	Long: `skilldeploy discovers skill packages in a nested source tree, gives each one a
flat deployed name, rewrites cross-package references to match, and writes the
result into a single target directory together with a deployment manifest.

  toolchains/python/frameworks/django  →  toolchains-python-frameworks-django

Nothing is written when pre-flight validation fails. A failing package never
stops the others.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  12 - User denied overwrite approval
  20 - Validation failed, nothing written
  21 - Partial failure (some packages failed, discovery errors, or cancelled)
  22 - Packages written but the manifest could not be recorded`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only print warnings and errors")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

func getQuietFlag(cmd *cobra.Command) bool {
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get quiet flag: %v\n", err)
		return false
	}
	return quiet
}
