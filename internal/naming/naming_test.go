package naming

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

func TestTransform(t *testing.T) {
	tr := NewTransformer('-')

	tests := []struct {
		name string
		path []string
		want string
	}{
		{"two segments", []string{"a", "x"}, "a-x"},
		{"deep path", []string{"toolchains", "python", "frameworks", "django"}, "toolchains-python-frameworks-django"},
		{"underscores pass through", []string{"universal", "test_driven"}, "universal-test_driven"},
		{"single segment", []string{"solo"}, "solo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.Transform(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransform_Pure(t *testing.T) {
	tr := NewTransformer('-')
	path := []string{"toolchains", "rust", "tauri"}

	first, err := tr.Transform(path)
	require.NoError(t, err)
	second, err := tr.Transform(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"toolchains", "rust", "tauri"}, path, "input is not modified")
}

func TestTransform_SeparatorInSegmentRejected(t *testing.T) {
	tr := NewTransformer('-')

	// Joining naively would make both of these "toolchains-python-frameworks-django".
	_, err := tr.Transform([]string{"toolchains", "python", "frameworks", "django"})
	require.NoError(t, err)

	_, err = tr.Transform([]string{"toolchains", "python", "frameworks-django"})
	require.Error(t, err)
	assert.ErrorIs(t, err, skilldeploy.ErrIllegalSegmentCharacter)

	var segErr *skilldeploy.IllegalSegmentCharacterError
	require.True(t, errors.As(err, &segErr))
	assert.Equal(t, "frameworks-django", segErr.Segment)
	assert.Equal(t, "toolchains/python/frameworks-django", segErr.SourcePath)
}

func TestTransform_OtherSeparator(t *testing.T) {
	tr := NewTransformer('.')

	got, err := tr.Transform([]string{"toolchains", "python", "frameworks-django"})
	require.NoError(t, err, "hyphens are legal when the separator is '.'")
	assert.Equal(t, "toolchains.python.frameworks-django", got)

	_, err = tr.Transform([]string{"v1.2"})
	assert.ErrorIs(t, err, skilldeploy.ErrIllegalSegmentCharacter)
}

func TestTransform_IllegalSegments(t *testing.T) {
	tr := NewTransformer('-')

	for _, path := range [][]string{
		nil,
		{"a", ""},
		{"a", `b\c`},
		{"a/b"},
	} {
		_, err := tr.Transform(path)
		assert.ErrorIs(t, err, skilldeploy.ErrIllegalSegmentCharacter, "Transform(%q)", path)
	}
}

func TestAssign(t *testing.T) {
	tr := NewTransformer('-')
	pkgs := []*skilldeploy.Package{
		{SourcePath: []string{"a", "x"}},
		{SourcePath: []string{"a", "bad-one"}},
		{SourcePath: []string{"a", "y"}},
		{SourcePath: []string{"b", "worse-two"}},
	}

	err := tr.Assign(pkgs)
	require.Error(t, err)

	var segErr *skilldeploy.IllegalSegmentCharacterError
	require.True(t, errors.As(err, &segErr))
	assert.Contains(t, err.Error(), "bad-one")
	assert.Contains(t, err.Error(), "worse-two")

	assert.Equal(t, "a-x", pkgs[0].DeployedName)
	assert.Empty(t, pkgs[1].DeployedName)
	assert.Equal(t, "a-y", pkgs[2].DeployedName)
}

func TestNewTransformer_RejectsPathSeparators(t *testing.T) {
	for _, sep := range []rune{0, '/', '\\'} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("Expected panic for separator %q", sep)
				}
			}()
			NewTransformer(sep)
		}()
	}
}
