package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/skilldeploy/internal/files/filesystem"
	"github.com/vvka-141/skilldeploy/internal/metadata"
	"github.com/vvka-141/skilldeploy/internal/naming"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

func newTestValidator(t *testing.T) (*Validator, *filesystem.MemoryFileSystem) {
	t.Helper()
	mfs := filesystem.NewMemoryFileSystem("/")
	v, err := New(mfs, skilldeploy.DeploymentConfig{SourceRoot: "/src", TargetRoot: "/target"})
	require.NoError(t, err)
	return v, mfs
}

func pkg(key, content string) *skilldeploy.Package {
	return &skilldeploy.Package{
		SourcePath:      strings.Split(key, "/"),
		PrimaryDocument: skilldeploy.Artifact{RelativePath: "SKILL.md", Content: []byte(content)},
		Metadata:        metadata.Attributes{"name": "n", "description": "d"},
	}
}

func named(t *testing.T, sep rune, pkgs ...*skilldeploy.Package) error {
	t.Helper()
	return naming.NewTransformer(sep).Assign(pkgs)
}

func TestPreflight_Passes(t *testing.T) {
	v, _ := newTestValidator(t)
	a, b := pkg("a/x", "# X"), pkg("a/y", "# Y")
	require.NoError(t, named(t, '-', a, b))

	res, err := v.Preflight([]*skilldeploy.Package{a, b}, "/target", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Failed)
	assert.Empty(t, res.Warnings)
}

func TestPreflight_EmptyPrimaryDocumentFailsPackageOnly(t *testing.T) {
	v, _ := newTestValidator(t)
	a, b := pkg("a/x", " \n\t"), pkg("a/y", "# Y")
	require.NoError(t, named(t, '-', a, b))

	res, err := v.Preflight([]*skilldeploy.Package{a, b}, "/target", nil)
	require.NoError(t, err)
	require.Contains(t, res.Failed, "a/x")
	assert.NotContains(t, res.Failed, "a/y")
}

func TestPreflight_CollisionListsAllSourcePaths(t *testing.T) {
	v, _ := newTestValidator(t)
	// Legal segments never collide under the transformer, so names are set directly.
	p1, p2, p3 := pkg("x/one", "#"), pkg("y/one", "#"), pkg("z", "#")
	p1.DeployedName, p2.DeployedName, p3.DeployedName = "one", "one", "z"

	_, err := v.Preflight([]*skilldeploy.Package{p1, p2, p3}, "/target", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, skilldeploy.ErrValidationFailed)
	assert.ErrorIs(t, err, skilldeploy.ErrNamingCollision)
	assert.Equal(t, skilldeploy.ExitValidationFailed, skilldeploy.ExitCodeForError(err))

	var ce *skilldeploy.NamingCollisionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "one", ce.DeployedName)
	assert.Equal(t, []string{"x/one", "y/one"}, ce.SourcePaths)
}

func TestPreflight_IllegalSegmentIsFatal(t *testing.T) {
	v, _ := newTestValidator(t)
	bad, good := pkg("tool-chains/python", "# P"), pkg("a/y", "# Y")
	namingErr := named(t, '-', bad, good)
	require.Error(t, namingErr)

	_, err := v.Preflight([]*skilldeploy.Package{bad, good}, "/target", namingErr)
	assert.ErrorIs(t, err, skilldeploy.ErrValidationFailed)
	assert.ErrorIs(t, err, skilldeploy.ErrIllegalSegmentCharacter)
}

func TestPreflight_UnwritableTargetIsFatal(t *testing.T) {
	v, mfs := newTestValidator(t)
	mfs.FailWrites("/target", errors.New("read-only"))
	a := pkg("a/x", "# X")
	require.NoError(t, named(t, '-', a))

	_, err := v.Preflight([]*skilldeploy.Package{a}, "/target", nil)
	assert.ErrorIs(t, err, skilldeploy.ErrValidationFailed)
	assert.ErrorIs(t, err, skilldeploy.ErrTargetNotWritable)
}

func TestPreflight_MetadataProblemsAreWarnings(t *testing.T) {
	v, _ := newTestValidator(t)
	a := pkg("a/x", "# X")
	a.Metadata = metadata.Attributes{"name": "x", "version": 1}
	require.NoError(t, named(t, '-', a))

	res, err := v.Preflight([]*skilldeploy.Package{a}, "/target", nil)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 2)
	for _, w := range res.Warnings {
		assert.Equal(t, skilldeploy.WarnMetadata, w.Code)
		assert.Equal(t, "a-x", w.Package)
	}
}

func writePackage(mfs *filesystem.MemoryFileSystem, dir string) {
	mfs.AddFile(dir+"/SKILL.md", "# X\n")
	mfs.AddFile(dir+"/metadata.json", "{}\n")
	mfs.AddFile(dir+"/references/guide.md", "guide\n")
}

func TestPostflight_Passes(t *testing.T) {
	v, mfs := newTestValidator(t)
	writePackage(mfs, "/target/a-x")

	err := v.Postflight("/target/a-x", Expectation{
		Files:      []string{"SKILL.md", "metadata.json", "references/guide.md"},
		Unmodified: map[string][]byte{"references/guide.md": []byte("guide\n")},
	})
	assert.NoError(t, err)
}

func TestPostflight_DetectsProblems(t *testing.T) {
	v, mfs := newTestValidator(t)
	mfs.AddFile("/target/a-x/SKILL.md", "# X\n")
	mfs.AddFile("/target/a-x/references/guide.md", "tampered\n")
	mfs.AddFile("/target/a-x/references/.DS_Store", "")
	mfs.AddFile("/target/a-x/extra.md", "extra")

	err := v.Postflight("/target/a-x", Expectation{
		Files:      []string{"SKILL.md", "metadata.json", "references/guide.md"},
		Unmodified: map[string][]byte{"references/guide.md": []byte("guide\n")},
	})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "metadata.json missing")
	assert.Contains(t, msg, "references/guide.md differs from its source")
	assert.Contains(t, msg, "transient file references/.DS_Store present")
	assert.Contains(t, msg, "unexpected file extra.md present")
}

func TestPostflight_MissingDirectory(t *testing.T) {
	v, _ := newTestValidator(t)
	err := v.Postflight("/target/nope", Expectation{})
	assert.Error(t, err)
}

func TestNew_InvalidTransientPattern(t *testing.T) {
	_, err := New(filesystem.NewMemoryFileSystem("/"), skilldeploy.DeploymentConfig{
		SourceRoot:        "/src",
		TargetRoot:        "/target",
		TransientPatterns: []string{"[unclosed"},
	})
	assert.ErrorIs(t, err, skilldeploy.ErrInvalidConfig)
}
