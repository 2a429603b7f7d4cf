package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/skilldeploy/internal/config"
	"github.com/vvka-141/skilldeploy/internal/files/filesystem"
	"github.com/vvka-141/skilldeploy/internal/files/scanner"
	"github.com/vvka-141/skilldeploy/internal/logging"
	"github.com/vvka-141/skilldeploy/internal/services"
	"github.com/vvka-141/skilldeploy/internal/tui"
	"github.com/vvka-141/skilldeploy/internal/ui"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// deploymentFlagValues holds the flags shared by deploy, validate and watch.
type deploymentFlagValues struct {
	target, manifest, separator string
	dryRun, force, yes          bool
	fixReferences, incremental  bool
	concurrency                 int
	include, exclude            []string
	timeout                     time.Duration
}

// addDeploymentFlags registers the deployment flags on cmd. withDryRun is
// false for commands where a dry run is implied or meaningless.
func addDeploymentFlags(cmd *cobra.Command, f *deploymentFlagValues, withDryRun bool) {
	flags := cmd.Flags()

	flags.StringVarP(&f.target, "target", "t", "",
		"Flat deployment directory\n"+
			"Precedence: --target > $"+config.EnvTarget+" > "+config.ConfigFileName)
	flags.StringVar(&f.manifest, "manifest", "",
		"Manifest file (default: <target>/"+skilldeploy.DefaultManifestName+")")
	if withDryRun {
		flags.BoolVar(&f.dryRun, "dry-run", false,
			"Validate and plan without writing anything")
	}
	flags.BoolVar(&f.force, "force", false,
		"Replace non-empty package directories not created by a previous run\n"+
			"Asks for confirmation in a terminal; counts down otherwise")
	flags.BoolVar(&f.yes, "yes", false,
		"With --force, replace without confirmation or countdown (CI/CD)")
	flags.BoolVar(&f.fixReferences, "fix-references", true,
		"Rewrite cross-package references to deployed names")
	flags.BoolVar(&f.incremental, "incremental", false,
		"Skip packages whose content and reference resolution are unchanged")
	flags.IntVarP(&f.concurrency, "concurrency", "j", 0,
		"Packages processed in parallel (default: number of CPUs)\n"+
			"Precedence: --concurrency > $"+config.EnvConcurrency+" > "+config.ConfigFileName)
	flags.StringSliceVar(&f.include, "include", nil,
		"Only deploy packages whose source path matches (doublestar glob, repeatable)\n"+
			"Example: --include 'toolchains/**'")
	flags.StringSliceVar(&f.exclude, "exclude", nil,
		"Skip packages whose source path matches (doublestar glob, repeatable)")
	flags.StringVar(&f.separator, "separator", "",
		"Single character joining source path segments (default \"-\")")
	flags.DurationVar(&f.timeout, "timeout", skilldeploy.DefaultTimeout,
		"Upper bound for the whole run\n"+
			"Examples: 30s, 5m, 1h30m")

	registerDeploymentCompletions(cmd)
}

// loadProjectConfig loads godotenv and project configuration.
// Returns nil config if skilldeploy.yaml does not exist (not an error).
func loadProjectConfig(sourcePath string) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	projectCfg, err := config.Load(sourcePath)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %v: %w", config.ConfigFileName, err, skilldeploy.ErrInvalidConfig)
	}
	return projectCfg, nil
}

// buildDeploymentConfig builds a DeploymentConfig from CLI flags, environment
// and skilldeploy.yaml, in that order of precedence.
func buildDeploymentConfig(cmd *cobra.Command, sourcePath string, f deploymentFlagValues, verbose bool) (skilldeploy.DeploymentConfig, error) {
	source, err := filepath.Abs(sourcePath)
	if err != nil {
		return skilldeploy.DeploymentConfig{}, fmt.Errorf("invalid source path %q: %w", sourcePath, err)
	}
	info, err := os.Stat(source)
	if err != nil {
		return skilldeploy.DeploymentConfig{}, fmt.Errorf("source path %s: %v: %w", sourcePath, err, skilldeploy.ErrInvalidConfig)
	}
	if !info.IsDir() {
		return skilldeploy.DeploymentConfig{}, fmt.Errorf("source path %s is not a directory: %w", sourcePath, skilldeploy.ErrInvalidConfig)
	}

	projectCfg, err := loadProjectConfig(source)
	if err != nil {
		return skilldeploy.DeploymentConfig{}, err
	}

	c := skilldeploy.DeploymentConfig{
		SourceRoot:    source,
		TargetRoot:    absOrEmpty(f.target),
		ManifestPath:  absOrEmpty(f.manifest),
		DryRun:        f.dryRun,
		Force:         f.force,
		FixReferences: f.fixReferences,
		Concurrency:   f.concurrency,
		Include:       f.include,
		Exclude:       f.exclude,
		Timeout:       f.timeout,
		Verbose:       verbose,
	}
	if f.incremental {
		c.Mode = skilldeploy.ModeIncremental
	}
	if cmd.Flags().Changed("separator") {
		if utf8.RuneCountInString(f.separator) != 1 {
			return skilldeploy.DeploymentConfig{}, fmt.Errorf("--separator must be a single character, got %q: %w", f.separator, skilldeploy.ErrInvalidConfig)
		}
		c.Separator, _ = utf8.DecodeRuneInString(f.separator)
	}

	if err := config.Resolve(&c, projectCfg, cmd.Flags().Changed, os.LookupEnv); err != nil {
		return skilldeploy.DeploymentConfig{}, err
	}

	if c.TargetRoot == "" {
		return skilldeploy.DeploymentConfig{}, fmt.Errorf("no target directory: use --target, $%s or 'target' in %s: %w",
			config.EnvTarget, config.ConfigFileName, skilldeploy.ErrInvalidConfig)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] Deployment resolved:\n")
		fmt.Fprintf(os.Stderr, "  Source: %s\n", c.SourceRoot)
		fmt.Fprintf(os.Stderr, "  Target: %s\n", c.TargetRoot)
		fmt.Fprintf(os.Stderr, "  Concurrency: %d\n", c.Concurrency)
		fmt.Fprintf(os.Stderr, "  Fix references: %t\n", c.FixReferences)
		fmt.Fprintf(os.Stderr, "  Timeout: %s\n", c.Timeout)
	}

	return c, nil
}

func absOrEmpty(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// selectApprover picks how overwrites of foreign directories are confirmed.
func selectApprover(f deploymentFlagValues, verbose bool) skilldeploy.Approver {
	switch {
	case f.yes:
		return ui.NewImmediateApprover(verbose)
	case tui.IsInteractive():
		return ui.NewInteractiveApprover(verbose)
	default:
		return ui.NewForcedApprover(verbose)
	}
}

// newDeployer wires the deployment service over the OS filesystem.
func newDeployer(approver skilldeploy.Approver, logger skilldeploy.Logger) *services.DeploymentService {
	return services.NewDeploymentService(
		scanner.NewScanner(),
		filesystem.NewOSFileSystem(),
		approver,
		logger,
	)
}

func newLogger(cmd *cobra.Command) *logging.ConsoleLogger {
	return logging.NewConsoleLogger(getVerboseFlag(cmd), getQuietFlag(cmd))
}

func newPrinter(w io.Writer) *tui.Printer {
	f, ok := w.(*os.File)
	return tui.NewPrinter(w, ok && tui.UseColor(f))
}

// commandContext returns the command's context, which is nil when a RunE
// function is called directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// signalContext is cancelled on Ctrl+C or SIGTERM. A second signal is left to
// the default handler so the process can always be killed.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, finishing in-flight packages...")
			signal.Stop(sigChan)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
