package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// completeDirectories provides shell completion for directory paths.
func completeDirectories(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	// Let the shell handle directory completion
	return nil, cobra.ShellCompDirectiveFilterDirs
}

// completeManifestFiles completes JSON files for manifest arguments.
func completeManifestFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) >= manifestArgCount(cmd) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"json"}, cobra.ShellCompDirectiveFilterFileExt
}

func manifestArgCount(cmd *cobra.Command) int {
	if cmd.Name() == "diff" {
		return 2
	}
	return 1
}

// separators are the common choices offered for --separator.
var separators = []string{"-", "_", "."}

// completeSeparators provides shell completion for --separator values.
func completeSeparators(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var matches []string
	for _, sep := range separators {
		if strings.HasPrefix(sep, toComplete) {
			matches = append(matches, sep)
		}
	}
	return matches, cobra.ShellCompDirectiveNoFileComp
}

// registerDeploymentCompletions attaches completions to the flags added by
// addDeploymentFlags.
func registerDeploymentCompletions(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("separator", completeSeparators)
	_ = cmd.MarkFlagDirname("target")
	_ = cmd.MarkFlagFilename("manifest", "json")
}
