package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/skilldeploy/internal/watch"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

var watchCmd = &cobra.Command{
	Use:   "watch <source_path>",
	Short: "Redeploy incrementally whenever the source tree changes",
	Long: `Watch performs an incremental deployment, then waits for changes under
source_path and redeploys after the tree has been quiet for the debounce period.
Only packages whose content or reference resolution changed are rewritten.

Cache and editor files matching the transient patterns never trigger a run, and
neither does anything inside the target directory. Stop with Ctrl+C.

Examples:
  skilldeploy watch ./skills -t ~/.claude/skills
  skilldeploy watch ./skills -t ./dist --debounce 2s`,
	Args:              RequireSourcePath,
	RunE:              runWatch,
	ValidArgsFunction: completeDirectories,
}

var (
	watchFlags    deploymentFlagValues
	watchDebounce time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)
	addDeploymentFlags(watchCmd, &watchFlags, false)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce,
		"Quiet period after the last change before redeploying")
}

func runWatch(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)
	logger := newLogger(cmd)

	flags := watchFlags
	flags.incremental = true

	config, err := buildDeploymentConfig(cmd, args[0], flags, verbose)
	if err != nil {
		return err
	}

	deployer := newDeployer(selectApprover(flags, verbose), logger)

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	redeploy := func(ctx context.Context, changed []string) error {
		if len(changed) > 0 {
			logger.Info("Change detected: %s", summarizeChanges(changed))
		}
		return executeDeployment(ctx, deployer, config, cmd)
	}

	if err := redeploy(ctx, nil); err != nil {
		if fatalForWatch(err) {
			return err
		}
		logger.Error("%v", err)
	}

	skip := []string{config.TargetRoot}
	if config.ManifestPath != "" {
		skip = append(skip, config.ManifestPath)
	}
	w, err := watch.New(watch.Config{
		SourceRoot: config.SourceRoot,
		Ignore:     skilldeploy.DiscoveryOptionsFor(config).TransientPatterns,
		SkipDirs:   skip,
		Debounce:   watchDebounce,
		OnChange:   redeploy,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	logger.Info("Watching %s (Ctrl+C to stop)", config.SourceRoot)
	return w.Run(ctx)
}

// fatalForWatch reports errors that no source change can fix.
func fatalForWatch(err error) bool {
	return errors.Is(err, skilldeploy.ErrInvalidConfig) ||
		errors.Is(err, skilldeploy.ErrApprovalDenied) ||
		errors.Is(err, context.Canceled)
}

func summarizeChanges(changed []string) string {
	const shown = 3
	if len(changed) <= shown {
		return strings.Join(changed, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(changed[:shown], ", "), len(changed)-shown)
}
