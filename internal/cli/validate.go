package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <source_path>",
	Short: "Check a deployment without writing anything",
	Long: `Validate runs a full deployment in dry-run mode: discovery, naming, collision
and writability checks, and reference resolution. Nothing is written to the
target directory and no manifest is recorded.

Exits with 20 when pre-flight validation fails and 21 when individual packages
would fail.

Examples:
  skilldeploy validate ./skills -t ~/.claude/skills
  skilldeploy validate ./skills -t ./dist --separator _`,
	Args:              RequireSourcePath,
	RunE:              runValidate,
	ValidArgsFunction: completeDirectories,
}

var validateFlags deploymentFlagValues

func init() {
	rootCmd.AddCommand(validateCmd)
	addDeploymentFlags(validateCmd, &validateFlags, false)
}

func runValidate(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	flags := validateFlags
	flags.dryRun = true

	config, err := buildDeploymentConfig(cmd, args[0], flags, verbose)
	if err != nil {
		return err
	}

	deployer := newDeployer(selectApprover(flags, verbose), newLogger(cmd))

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	return executeDeployment(ctx, deployer, config, cmd)
}
