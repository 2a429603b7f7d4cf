package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/skilldeploy/internal/files/filesystem"
	"github.com/vvka-141/skilldeploy/internal/metadata"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

func newTestScanner() (*Scanner, *filesystem.MemoryFileSystem) {
	fs := filesystem.NewMemoryFileSystem("/src")
	return NewScannerWithFS(fs), fs
}

func defaultOptions() skilldeploy.DiscoveryOptions {
	cfg := skilldeploy.DeploymentConfig{SourceRoot: "/src", TargetRoot: "/target"}
	cfg.ApplyDefaults()
	return skilldeploy.DiscoveryOptionsFor(cfg)
}

func keys(pkgs []*skilldeploy.Package) []string {
	var out []string
	for _, p := range pkgs {
		out = append(out, p.SourceKey())
	}
	return out
}

func TestNewScannerWithFS_NilFS(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for nil filesystem")
		}
	}()
	NewScannerWithFS(nil)
}

func TestDiscover_NestedPackagesAreSiblings(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("toolchains/python/SKILL.md", "# Python")
	fs.AddFile("toolchains/python/frameworks/django/SKILL.md", "# Django")
	fs.AddFile("toolchains/python/frameworks/flask/SKILL.md", "# Flask")
	fs.AddFile("toolchains/python/notes.txt", "not deployed")
	fs.AddFile("README.md", "repo readme")

	result, err := s.Discover(context.Background(), "/src", defaultOptions())
	require.NoError(t, err)
	assert.Empty(t, result.Errors)

	assert.Equal(t, []string{
		"toolchains/python",
		"toolchains/python/frameworks/django",
		"toolchains/python/frameworks/flask",
	}, keys(result.Packages))

	python := result.Packages[0]
	assert.Equal(t, []string{"toolchains", "python"}, python.SourcePath)
	assert.Equal(t, "SKILL.md", python.PrimaryDocument.RelativePath)
	assert.Empty(t, python.AuxiliaryArtifacts, "child package files never leak into the parent")
}

func TestDiscover_AuxiliaryArtifacts(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("universal/testing/SKILL.md", "# Testing")
	fs.AddFile("universal/testing/metadata.json", `{"name": "testing", "description": "d"}`)
	fs.AddFile("universal/testing/references/patterns.md", "patterns")
	fs.AddFile("universal/testing/references/deep/nested.md", "nested")
	fs.AddFile("universal/testing/examples/demo.py", "print()")
	fs.AddFile("universal/testing/references/.DS_Store", "junk")
	fs.AddFile("universal/testing/references/__pycache__/x.cpython-311.pyc", "junk")
	fs.AddFile("universal/testing/examples/demo.pyc", "junk")

	result, err := s.Discover(context.Background(), "/src", defaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Packages, 1)

	pkg := result.Packages[0]
	require.NotNil(t, pkg.MetadataFile)
	assert.Equal(t, "metadata.json", pkg.MetadataFile.RelativePath)

	var aux []string
	for _, a := range pkg.AuxiliaryArtifacts {
		aux = append(aux, a.RelativePath)
	}
	assert.Equal(t, []string{
		"examples/demo.py",
		"references/deep/nested.md",
		"references/patterns.md",
	}, aux)
	assert.Equal(t, int64(len("patterns")), pkg.AuxiliaryArtifacts[2].Size)
}

func TestDiscover_PrimaryDocumentInsideAuxiliaryIsContent(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("a/SKILL.md", "# A")
	fs.AddFile("a/references/template/SKILL.md", "# template shipped as content")

	result, err := s.Discover(context.Background(), "/src", defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, keys(result.Packages))
	require.Len(t, result.Packages[0].AuxiliaryArtifacts, 1)
	assert.Equal(t, "references/template/SKILL.md", result.Packages[0].AuxiliaryArtifacts[0].RelativePath)
}

func TestDiscover_MissingPrimaryDocument(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("a/x/SKILL.md", "# X")
	fs.AddFile("a/broken/metadata.json", `{"name": "broken"}`)

	result, err := s.Discover(context.Background(), "/src", defaultOptions())
	require.NoError(t, err, "a missing primary document is not fatal")

	assert.Equal(t, []string{"a/x"}, keys(result.Packages))
	require.Len(t, result.Errors, 1)

	var de *skilldeploy.DiscoveryError
	require.True(t, errors.As(result.Errors[0], &de))
	assert.Equal(t, "a/broken", de.Path)
	assert.ErrorIs(t, result.Errors[0], skilldeploy.ErrMissingPrimaryDocument)
}

func TestDiscover_DanglingSymlink(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("a/SKILL.md", "# A")
	fs.AddFile("a/references/ok.md", "ok")
	fs.AddSymlink("a/references/gone.md", "/elsewhere/gone.md")
	fs.AddFile("b/SKILL.md", "# B")

	result, err := s.Discover(context.Background(), "/src", defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, keys(result.Packages), "only the dangling entry is affected")
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], skilldeploy.ErrDanglingSymlink)

	var de *skilldeploy.DiscoveryError
	require.True(t, errors.As(result.Errors[0], &de))
	assert.Equal(t, "a/references/gone.md", de.Path)
	assert.Len(t, result.Packages[0].AuxiliaryArtifacts, 1)
}

func TestDiscover_SymlinkedArtifactResolves(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("shared/common.md", "shared body")
	fs.AddFile("a/SKILL.md", "# A")
	fs.AddSymlink("a/references/common.md", "/src/shared/common.md")

	result, err := s.Discover(context.Background(), "/src", defaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Packages, 1)
	require.Len(t, result.Packages[0].AuxiliaryArtifacts, 1)
	assert.Equal(t, "shared body", string(result.Packages[0].AuxiliaryArtifacts[0].Content))
}

func TestDiscover_SkipsHiddenAndTargetDirs(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("a/SKILL.md", "# A")
	fs.AddFile(".claude/skills/a/SKILL.md", "# deployed copy")
	fs.AddFile("out/a/SKILL.md", "# deployed copy")
	fs.AddFile(".git/SKILL.md", "# not a package")

	opts := defaultOptions()
	opts.SkipDirs = []string{"/src/out"}

	result, err := s.Discover(context.Background(), "/src", opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys(result.Packages))
}

func TestDiscover_MetadataMerge(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("a/SKILL.md", "---\nname: header-name\ndescription: from header\n---\n# A\n")
	fs.AddFile("a/metadata.json", `{"name": "json-name", "version": "2.0.0"}`)

	result, err := s.Discover(context.Background(), "/src", defaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Packages, 1)

	assert.Equal(t, metadata.Attributes{
		"name":        "json-name",
		"description": "from header",
		"version":     "2.0.0",
	}, result.Packages[0].Metadata)
}

func TestDiscover_InvalidMetadataJSON(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("a/SKILL.md", "---\nname: a\n---\n")
	fs.AddFile("a/metadata.json", `{"name": `)

	result, err := s.Discover(context.Background(), "/src", defaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Packages, 1, "the package is still discovered")
	assert.Equal(t, "a", result.Packages[0].Metadata["name"])

	require.Len(t, result.Errors, 1)
	var merr *metadata.MetadataError
	assert.True(t, errors.As(result.Errors[0], &merr))
}

func TestDiscover_MalformedHeaderIsWarning(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("a/SKILL.md", "---\nname: [oops\n---\n")

	result, err := s.Discover(context.Background(), "/src", defaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Packages, 1)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, skilldeploy.WarnMetadata, result.Warnings[0].Code)
}

func TestDiscover_RootIsNotAPackage(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("SKILL.md", "# root")
	fs.AddFile("a/SKILL.md", "# A")

	result, err := s.Discover(context.Background(), "/src", defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys(result.Packages))
	require.Len(t, result.Errors, 1)
}

func TestDiscover_CustomPrimaryDocument(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("a/GUIDE.md", "# A")
	fs.AddFile("b/SKILL.md", "# B")

	opts := defaultOptions()
	opts.PrimaryDocument = "GUIDE.md"

	result, err := s.Discover(context.Background(), "/src", opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys(result.Packages))
}

func TestDiscover_ExtraTransientPatterns(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("a/SKILL.md", "# A")
	fs.AddFile("a/references/draft.tmp", "tmp")
	fs.AddFile("a/references/final.md", "final")

	opts := defaultOptions()
	opts.TransientPatterns = append(opts.TransientPatterns, "**/*.tmp")

	result, err := s.Discover(context.Background(), "/src", opts)
	require.NoError(t, err)
	require.Len(t, result.Packages[0].AuxiliaryArtifacts, 1)
	assert.Equal(t, "references/final.md", result.Packages[0].AuxiliaryArtifacts[0].RelativePath)
}

func TestDiscover_InvalidTransientPattern(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("a/SKILL.md", "# A")

	opts := defaultOptions()
	opts.TransientPatterns = []string{"[unclosed"}

	_, err := s.Discover(context.Background(), "/src", opts)
	assert.ErrorIs(t, err, skilldeploy.ErrInvalidConfig)
}

func TestDiscover_MissingRoot(t *testing.T) {
	s, _ := newTestScanner()

	_, err := s.Discover(context.Background(), "/nowhere", defaultOptions())
	assert.Error(t, err)
}

func TestDiscover_Cancelled(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("a/SKILL.md", "# A")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Discover(ctx, "/src", defaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscover_Deterministic(t *testing.T) {
	s, fs := newTestScanner()
	for _, p := range []string{"c/SKILL.md", "a/SKILL.md", "b/y/SKILL.md", "b/x/SKILL.md"} {
		fs.AddFile(p, "# "+p)
	}

	first, err := s.Discover(context.Background(), "/src", defaultOptions())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := s.Discover(context.Background(), "/src", defaultOptions())
		require.NoError(t, err)
		assert.Equal(t, keys(first.Packages), keys(again.Packages))
	}
	assert.Equal(t, []string{"a", "b/x", "b/y", "c"}, keys(first.Packages))
}
