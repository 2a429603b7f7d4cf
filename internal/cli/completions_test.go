package cli

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestCompleteSeparators(t *testing.T) {
	cmd := &cobra.Command{}

	t.Run("returns all separators for empty input", func(t *testing.T) {
		completions, directive := completeSeparators(cmd, nil, "")
		if len(completions) != len(separators) {
			t.Errorf("expected %d completions, got %d", len(separators), len(completions))
		}
		if directive != cobra.ShellCompDirectiveNoFileComp {
			t.Errorf("expected ShellCompDirectiveNoFileComp, got %v", directive)
		}
	})

	t.Run("filters by prefix", func(t *testing.T) {
		completions, _ := completeSeparators(cmd, nil, "_")
		if len(completions) != 1 || completions[0] != "_" {
			t.Errorf("expected [_], got %v", completions)
		}
	})

	t.Run("returns empty for non-matching prefix", func(t *testing.T) {
		completions, _ := completeSeparators(cmd, nil, "xyz")
		if len(completions) != 0 {
			t.Errorf("expected 0 completions, got %d", len(completions))
		}
	})
}

func TestCompleteDirectories(t *testing.T) {
	cmd := &cobra.Command{}

	t.Run("returns FilterDirs directive for first arg", func(t *testing.T) {
		_, directive := completeDirectories(cmd, nil, "")
		if directive != cobra.ShellCompDirectiveFilterDirs {
			t.Errorf("expected ShellCompDirectiveFilterDirs, got %v", directive)
		}
	})

	t.Run("returns NoFileComp when args already provided", func(t *testing.T) {
		_, directive := completeDirectories(cmd, []string{"./existing"}, "")
		if directive != cobra.ShellCompDirectiveNoFileComp {
			t.Errorf("expected ShellCompDirectiveNoFileComp, got %v", directive)
		}
	})
}

func TestCompleteManifestFiles(t *testing.T) {
	t.Run("show completes one json file", func(t *testing.T) {
		exts, directive := completeManifestFiles(manifestShowCmd, nil, "")
		if directive != cobra.ShellCompDirectiveFilterFileExt || len(exts) != 1 || exts[0] != "json" {
			t.Errorf("expected json file filter, got %v %v", exts, directive)
		}
		_, directive = completeManifestFiles(manifestShowCmd, []string{"a.json"}, "")
		if directive != cobra.ShellCompDirectiveNoFileComp {
			t.Errorf("expected ShellCompDirectiveNoFileComp after one arg, got %v", directive)
		}
	})

	t.Run("diff completes two json files", func(t *testing.T) {
		_, directive := completeManifestFiles(manifestDiffCmd, []string{"a.json"}, "")
		if directive != cobra.ShellCompDirectiveFilterFileExt {
			t.Errorf("expected json file filter for second arg, got %v", directive)
		}
		_, directive = completeManifestFiles(manifestDiffCmd, []string{"a.json", "b.json"}, "")
		if directive != cobra.ShellCompDirectiveNoFileComp {
			t.Errorf("expected ShellCompDirectiveNoFileComp after two args, got %v", directive)
		}
	})
}
