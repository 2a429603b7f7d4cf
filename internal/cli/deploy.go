package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <source_path>",
	Short: "Deploy skill packages into a flat target directory",
	Long: `Deploy flattens the package tree under source_path into the target directory.

The deploy command:
1. Discovers every directory holding a SKILL.md, with its metadata.json and
   references/ and examples/ subdirectories
2. Selects packages with --include / --exclude
3. Computes flat deployed names and validates them; a naming collision or an
   unwritable target aborts before anything is written
4. Rewrites references to other packages so they point at deployed names
5. Writes every package in parallel and verifies what was written
6. Records the run in a JSON manifest next to the packages

Arguments:
  source_path    Root of the hierarchical package tree

Configuration:
  Flags override environment variables, which override skilldeploy.yaml in
  source_path. Variables are also read from a .env file in the working directory.

Examples:
  # Deploy everything
  skilldeploy deploy ./skills -t ~/.claude/skills

  # Only redeploy what changed since the last run
  skilldeploy deploy ./skills -t ~/.claude/skills --incremental

  # Deploy one ecosystem with 8 workers
  skilldeploy deploy ./skills -t ./dist --include 'toolchains/python/**' -j 8

  # Replace directories a previous run did not create, in CI
  skilldeploy deploy ./skills -t ./dist --force --yes`,
	Args:              RequireSourcePath,
	RunE:              runDeploy,
	ValidArgsFunction: completeDirectories,
}

var deployFlags deploymentFlagValues

func init() {
	rootCmd.AddCommand(deployCmd)
	addDeploymentFlags(deployCmd, &deployFlags, true)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	config, err := buildDeploymentConfig(cmd, args[0], deployFlags, verbose)
	if err != nil {
		return err
	}

	deployer := newDeployer(selectApprover(deployFlags, verbose), newLogger(cmd))

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	return executeDeployment(ctx, deployer, config, cmd)
}

// executeDeployment runs one deployment and prints its report. The report is
// printed even when the run fails so counts and warnings are never lost.
func executeDeployment(ctx context.Context, deployer skilldeploy.Deployer, config skilldeploy.DeploymentConfig, cmd *cobra.Command) error {
	report, err := deployer.Deploy(ctx, config)
	if report != nil && (report.Manifest != nil || report.Discovered > 0) {
		manifestPath := config.ManifestPath
		if manifestPath == "" {
			manifestPath = defaultManifestPath(config.TargetRoot)
		}
		newPrinter(cmd.OutOrStdout()).Report(report, manifestPath)
	}
	if err != nil {
		if config.DryRun {
			return fmt.Errorf("dry run failed: %w", err)
		}
		return fmt.Errorf("deployment failed: %w", err)
	}
	return nil
}

func defaultManifestPath(target string) string {
	c := skilldeploy.DeploymentConfig{TargetRoot: target}
	c.ApplyDefaults()
	return c.ManifestPath
}
