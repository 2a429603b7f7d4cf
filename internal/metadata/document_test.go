package metadata

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_Valid(t *testing.T) {
	attrs, err := ParseJSON([]byte(`{"name": "django", "full_tokens": 4200, "tags": ["web"]}`), "metadata.json")
	require.NoError(t, err)

	assert.Equal(t, "django", attrs["name"])
	assert.Equal(t, json.Number("4200"), attrs["full_tokens"], "numbers keep their literal form")
	assert.Equal(t, []any{"web"}, attrs["tags"])
}

func TestParseJSON_SyntaxErrorHasPosition(t *testing.T) {
	_, err := ParseJSON([]byte("{\n  \"name\": \"x\",\n}"), "pkg/metadata.json")

	var merr *MetadataError
	require.True(t, errors.As(err, &merr), "expected MetadataError, got %v", err)
	assert.Equal(t, "pkg/metadata.json", merr.FilePath)
	assert.Equal(t, 3, merr.Line)
}

func TestParseJSON_RejectsNonObject(t *testing.T) {
	for _, input := range []string{`[]`, `"x"`, `42`, `null`, `{} {}`} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseJSON([]byte(input), "metadata.json")
			var merr *MetadataError
			assert.True(t, errors.As(err, &merr), "expected MetadataError for %s, got %v", input, err)
		})
	}
}

func TestMerge_SiblingWins(t *testing.T) {
	header := Attributes{"name": "from-header", "description": "header desc"}
	sibling := Attributes{"name": "from-json", "version": "1.0.0"}

	merged := Merge(header, sibling)

	assert.Equal(t, Attributes{
		"name":        "from-json",
		"description": "header desc",
		"version":     "1.0.0",
	}, merged)
	assert.Equal(t, "from-header", header["name"], "inputs are not modified")
}

func TestMerge_NilInputs(t *testing.T) {
	assert.Empty(t, Merge(nil, nil))
	assert.Equal(t, Attributes{"a": 1}, Merge(Attributes{"a": 1}, nil))
}

func TestEncode_CanonicalOrder(t *testing.T) {
	attrs := Attributes{
		"zeta":        true,
		"description": "Web <framework> & friends",
		"version":     "1.0.0",
		"name":        "django",
		"tags":        []any{"web", "python"},
		"author":      "team",
	}

	out, err := Encode(attrs)
	require.NoError(t, err)

	want := `{
  "name": "django",
  "version": "1.0.0",
  "tags": [
    "web",
    "python"
  ],
  "author": "team",
  "description": "Web <framework> & friends",
  "zeta": true
}
`
	assert.Equal(t, want, string(out))
}

func TestEncode_Deterministic(t *testing.T) {
	attrs := Attributes{"b": 1, "a": 2, "name": "x", "nested": map[string]any{"y": 1, "x": 2}}

	first, err := Encode(attrs)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Encode(attrs)
		require.NoError(t, err)
		require.Equal(t, string(first), string(again))
	}
}

func TestEncode_PreservesJSONNumbers(t *testing.T) {
	attrs, err := ParseJSON([]byte(`{"full_tokens": 1.50}`), "metadata.json")
	require.NoError(t, err)

	out, err := Encode(attrs)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"full_tokens\": 1.50\n}\n", string(out))
}

func TestEncode_HeaderNumbersKeepTheirText(t *testing.T) {
	attrs, err := ExtractHeader([]byte("---\nname: x\nversion: 1.10\nratio: 2.50\ncount: 42\nhex: 0x1F\n---\n"), "SKILL.md")
	require.NoError(t, err)
	assert.Equal(t, json.Number("1.10"), attrs["version"])
	assert.Equal(t, 31, attrs["hex"], "YAML-only literals are decoded")

	out, err := Encode(attrs)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\"version\": 1.10")
	assert.Contains(t, string(out), "\"ratio\": 2.50")
	assert.Contains(t, string(out), "\"count\": 42")
	assert.Contains(t, string(out), "\"hex\": 31")
}

func TestExtractHeader_AnchorsAndMerges(t *testing.T) {
	content := "---\nname: x\nbase: &base\n  level: 1.0\n  tag: shared\nextra:\n  <<: *base\n  tag: own\nalias: *base\n---\n"
	attrs, err := ExtractHeader([]byte(content), "SKILL.md")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"level": json.Number("1.0"), "tag": "own"}, attrs["extra"])
	assert.Equal(t, map[string]any{"level": json.Number("1.0"), "tag": "shared"}, attrs["alias"])
}

func TestEncode_Empty(t *testing.T) {
	out, err := Encode(Attributes{})
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(out))
}

func TestEncode_YAMLNestedMaps(t *testing.T) {
	attrs, err := ExtractHeader([]byte("---\nname: x\nextra:\n  key: value\n---\n"), "SKILL.md")
	require.NoError(t, err)

	out, err := Encode(attrs)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\"extra\": {\n    \"key\": \"value\"\n  }")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path []string
		want Classification
	}{
		{[]string{"universal", "testing", "tdd"}, Classification{Category: CategoryUniversal}},
		{[]string{"toolchains", "python", "frameworks", "django"}, Classification{Category: CategoryToolchain, Toolchain: "python", Framework: "django"}},
		{[]string{"toolchains", "rust", "tauri"}, Classification{Category: CategoryToolchain, Toolchain: "rust"}},
		{[]string{"examples", "demo"}, Classification{Category: CategoryExample}},
		{[]string{"misc"}, Classification{Category: CategoryUnknown}},
		{nil, Classification{Category: CategoryUnknown}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.path), "Classify(%v)", tt.path)
	}
}
