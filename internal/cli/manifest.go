package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/skilldeploy/internal/files/filesystem"
	"github.com/vvka-141/skilldeploy/internal/manifest"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect deployment manifests",
}

var manifestShowCmd = &cobra.Command{
	Use:   "show <manifest_file>",
	Short: "Print a deployment manifest as a status table",
	Example: `  skilldeploy manifest show ~/.claude/skills/` + skilldeploy.DefaultManifestName,
	Args:              RequireManifestPaths(1),
	RunE:              runManifestShow,
	ValidArgsFunction: completeManifestFiles,
}

var manifestDiffCmd = &cobra.Command{
	Use:   "diff <old_manifest> <new_manifest>",
	Short: "Show packages added, removed or changed between two manifests",
	Long: `Diff compares two manifests by deployed name.

  + added     present only in the new manifest
  - removed   present only in the old manifest
  ~ changed   fingerprint, reference rewrites or status differ`,
	Args:              RequireManifestPaths(2),
	RunE:              runManifestDiff,
	ValidArgsFunction: completeManifestFiles,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
	manifestCmd.AddCommand(manifestShowCmd)
	manifestCmd.AddCommand(manifestDiffCmd)
}

func runManifestShow(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(args[0])
	if err != nil {
		return err
	}
	newPrinter(cmd.OutOrStdout()).Manifest(m)
	return nil
}

func runManifestDiff(cmd *cobra.Command, args []string) error {
	older, err := loadManifest(args[0])
	if err != nil {
		return err
	}
	newer, err := loadManifest(args[1])
	if err != nil {
		return err
	}
	newPrinter(cmd.OutOrStdout()).Diff(manifest.Compare(older, newer))
	return nil
}

// loadManifest reads a manifest that must exist.
func loadManifest(path string) (*skilldeploy.Manifest, error) {
	m, err := manifest.NewManager(filesystem.NewOSFileSystem()).Load(path)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("manifest %s does not exist", path)
	}
	return m, nil
}
