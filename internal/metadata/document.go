package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CanonicalKeyOrder is the order of well-known keys in an encoded metadata file.
// Remaining keys follow in lexical order.
var CanonicalKeyOrder = []string{
	"name", "version", "category", "toolchain", "framework", "tags",
	"entry_point_tokens", "full_tokens", "related_skills", "author", "license",
}

// ParseJSON decodes a sibling metadata file. Numbers keep their literal form.
func ParseJSON(content []byte, filePath string) (Attributes, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, wrapJSONError(err, content, filePath)
	}
	if dec.More() {
		return nil, &MetadataError{
			FilePath: filePath,
			Message:  "unexpected content after the top-level JSON object",
			Hint:     "A metadata file holds exactly one JSON object.",
		}
	}

	attrs, ok := raw.(map[string]any)
	if !ok {
		return nil, &MetadataError{
			FilePath: filePath,
			Message:  fmt.Sprintf("top-level value is %s, not an object", jsonKind(raw)),
			Hint:     `Wrap the fields in an object: {"name": "...", "description": "..."}`,
		}
	}
	return attrs, nil
}

func wrapJSONError(err error, content []byte, filePath string) error {
	merr := &MetadataError{
		FilePath: filePath,
		Message:  err.Error(),
		Hint:     "Check for trailing commas, unquoted keys and unbalanced braces.",
	}
	if syntaxErr, ok := err.(*json.SyntaxError); ok {
		merr.Line, merr.Column = position(content, int(syntaxErr.Offset))
	}
	return merr
}

func position(content []byte, offset int) (line, col int) {
	if offset > len(content) {
		offset = len(content)
	}
	prefix := content[:offset]
	line = bytes.Count(prefix, []byte("\n")) + 1
	col = offset - bytes.LastIndexByte(prefix, '\n')
	return line, col
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Merge overlays sibling on header. Sibling values win on conflicting keys.
// Neither input is modified.
func Merge(header, sibling Attributes) Attributes {
	out := make(Attributes, len(header)+len(sibling))
	for k, v := range header {
		out[k] = v
	}
	for k, v := range sibling {
		out[k] = v
	}
	return out
}

// Encode renders attributes as a JSON object with keys in canonical order,
// two-space indentation and a trailing newline. HTML characters are not escaped.
func Encode(attrs Attributes) ([]byte, error) {
	var buf bytes.Buffer
	if len(attrs) == 0 {
		buf.WriteString("{}\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("{\n")
	for i, key := range orderedKeys(attrs) {
		keyJSON, err := marshal(key, "")
		if err != nil {
			return nil, err
		}
		valueJSON, err := marshal(attrs[key], "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", key, err)
		}
		buf.WriteString("  ")
		buf.Write(keyJSON)
		buf.WriteString(": ")
		buf.Write(valueJSON)
		if i < len(attrs)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func orderedKeys(attrs Attributes) []string {
	keys := make([]string, 0, len(attrs))
	seen := make(map[string]bool, len(CanonicalKeyOrder))
	for _, k := range CanonicalKeyOrder {
		if _, ok := attrs[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range attrs {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func marshal(v any, prefix string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, "  ")
	if err := enc.Encode(normalize(v)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// normalize converts YAML-decoded values into JSON-encodable ones.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

// String returns the string value of key, or "" when absent or not a string.
func String(attrs Attributes, key string) string {
	s, _ := attrs[key].(string)
	return strings.TrimSpace(s)
}

// Classify derives category, toolchain and framework from a source path:
// universal/..., toolchains/<toolchain>/[frameworks/<framework>/]..., examples/...
func Classify(sourcePath []string) Classification {
	if len(sourcePath) == 0 {
		return Classification{Category: CategoryUnknown}
	}
	switch sourcePath[0] {
	case "universal":
		return Classification{Category: CategoryUniversal}
	case "toolchains":
		c := Classification{Category: CategoryToolchain}
		if len(sourcePath) > 1 {
			c.Toolchain = sourcePath[1]
		}
		if len(sourcePath) > 3 && sourcePath[2] == "frameworks" {
			c.Framework = sourcePath[3]
		}
		return c
	case "examples":
		return Classification{Category: CategoryExample}
	default:
		return Classification{Category: CategoryUnknown}
	}
}
