package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

func packagesAt(paths ...[]string) []*skilldeploy.Package {
	var out []*skilldeploy.Package
	for _, p := range paths {
		out = append(out, &skilldeploy.Package{SourcePath: p})
	}
	return out
}

func TestSelect(t *testing.T) {
	pkgs := packagesAt(
		[]string{"toolchains", "python", "frameworks", "django"},
		[]string{"toolchains", "rust", "tauri"},
		[]string{"universal", "testing"},
	)

	tests := []struct {
		name     string
		include  []string
		exclude  []string
		selected []string
	}{
		{"everything by default", nil, nil, []string{"toolchains/python/frameworks/django", "toolchains/rust/tauri", "universal/testing"}},
		{"include subtree", []string{"toolchains/**"}, nil, []string{"toolchains/python/frameworks/django", "toolchains/rust/tauri"}},
		{"exclude wins", []string{"toolchains/**"}, []string{"**/tauri"}, []string{"toolchains/python/frameworks/django"}},
		{"exclude only", nil, []string{"universal/**"}, []string{"toolchains/python/frameworks/django", "toolchains/rust/tauri"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected, excluded, err := Select(pkgs, tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.selected, keys(selected))
			assert.Len(t, excluded, len(pkgs)-len(selected))
		})
	}
}

func TestSelect_InvalidPattern(t *testing.T) {
	_, _, err := Select(nil, []string{"[bad"}, nil)
	assert.ErrorIs(t, err, skilldeploy.ErrInvalidConfig)
}

func TestTransientMatcher(t *testing.T) {
	m, err := NewTransientMatcher(skilldeploy.DefaultTransientPatterns)
	require.NoError(t, err)

	tests := []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{".DS_Store", false, true},
		{"a/references/.DS_Store", false, true},
		{"a/examples/x.pyc", false, true},
		{"a/__pycache__", true, true},
		{"a/__pycache__/mod.cpython-311.pyc", false, true},
		{"a/notes.md~", false, true},
		{"a/references/patterns.md", false, false},
		{"a/references", true, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Match(tt.rel, tt.isDir), "Match(%q, %v)", tt.rel, tt.isDir)
	}
}
