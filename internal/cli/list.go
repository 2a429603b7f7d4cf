package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/vvka-141/skilldeploy/internal/config"
	"github.com/vvka-141/skilldeploy/internal/files/scanner"
	"github.com/vvka-141/skilldeploy/internal/naming"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

var listCmd = &cobra.Command{
	Use:   "list <source_path>",
	Short: "List discovered packages and their deployed names",
	Long: `List discovers the packages under source_path and prints the deployed name,
source path and category of each, without touching any target directory.

Examples:
  skilldeploy list ./skills
  skilldeploy list ./skills --include 'toolchains/**' --separator _`,
	Args:              RequireSourcePath,
	RunE:              runList,
	ValidArgsFunction: completeDirectories,
}

type listFlagValues struct {
	separator        string
	include, exclude []string
}

var listFlags listFlagValues

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringSliceVar(&listFlags.include, "include", nil,
		"Only list packages whose source path matches (doublestar glob, repeatable)")
	listCmd.Flags().StringSliceVar(&listFlags.exclude, "exclude", nil,
		"Hide packages whose source path matches (doublestar glob, repeatable)")
	listCmd.Flags().StringVar(&listFlags.separator, "separator", "",
		"Single character joining source path segments (default \"-\")")
	_ = listCmd.RegisterFlagCompletionFunc("separator", completeSeparators)
}

func runList(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	source, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid source path %q: %w", args[0], err)
	}
	projectCfg, err := loadProjectConfig(source)
	if err != nil {
		return err
	}

	c := skilldeploy.DeploymentConfig{
		SourceRoot: source,
		Include:    listFlags.include,
		Exclude:    listFlags.exclude,
	}
	if cmd.Flags().Changed("separator") {
		if utf8.RuneCountInString(listFlags.separator) != 1 {
			return fmt.Errorf("--separator must be a single character, got %q: %w", listFlags.separator, skilldeploy.ErrInvalidConfig)
		}
		c.Separator, _ = utf8.DecodeRuneInString(listFlags.separator)
	}
	if err := config.Resolve(&c, projectCfg, cmd.Flags().Changed, os.LookupEnv); err != nil {
		return err
	}
	c.ApplyDefaults()
	if c.Separator == '/' || c.Separator == '\\' {
		return fmt.Errorf("separator %q is not allowed: %w", string(c.Separator), skilldeploy.ErrInvalidConfig)
	}

	result, err := scanner.NewScanner().Discover(commandContext(cmd), c.SourceRoot, skilldeploy.DiscoveryOptionsFor(c))
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	for _, derr := range result.Errors {
		logger.Warn("%v", derr)
	}

	selected, _, err := scanner.Select(result.Packages, c.Include, c.Exclude)
	if err != nil {
		return err
	}

	namingErr := naming.NewTransformer(c.Separator).Assign(selected)
	newPrinter(cmd.OutOrStdout()).Packages(selected)

	if namingErr != nil {
		return fmt.Errorf("%w: %w", skilldeploy.ErrValidationFailed, namingErr)
	}
	return nil
}
