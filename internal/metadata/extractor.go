package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var ErrNoMetadata = errors.New("no metadata header found")

const (
	MaxHeaderSize = 64 * 1024
)

const headerDelimiter = "---"

var utf8BOM = []byte("\xef\xbb\xbf")

// FindHeader locates a header block: the document must start with a '---'
// line and the block ends at the next '---' line.
func FindHeader(content []byte) (Header, bool) {
	bom := 0
	if bytes.HasPrefix(content, utf8BOM) {
		bom = len(utf8BOM)
		content = content[bom:]
	}

	first, rest, found := bytes.Cut(content, []byte("\n"))
	if !found || string(bytes.TrimRight(first, " \t\r")) != headerDelimiter {
		return Header{}, false
	}

	start := len(first) + 1
	offset := start
	for len(rest) > 0 {
		line, next, _ := bytes.Cut(rest, []byte("\n"))
		if string(bytes.TrimRight(line, " \t\r")) == headerDelimiter {
			return Header{Start: start + bom, End: offset + bom, Line: 2}, true
		}
		offset += len(line) + 1
		rest = next
	}
	return Header{}, false
}

// ExtractHeader parses the YAML header block of a primary document.
//
// Returns:
//   - Attributes: parsed mapping (never nil on success)
//   - error: ErrNoMetadata if the document has no header, or *MetadataError
//
// Error cases:
//   - Invalid YAML syntax → MetadataError with the document line number
//   - Header is not a mapping → MetadataError
//   - Header exceeds MaxHeaderSize → MetadataError
func ExtractHeader(content []byte, filePath string) (Attributes, error) {
	h, ok := FindHeader(content)
	if !ok {
		return nil, ErrNoMetadata
	}

	body := content[h.Start:h.End]
	if len(body) > MaxHeaderSize {
		return nil, &MetadataError{
			FilePath: filePath,
			Line:     h.Line,
			Message:  fmt.Sprintf("header block exceeds maximum size of %d bytes (got %d bytes)", MaxHeaderSize, len(body)),
			Hint:     "Move long descriptions into the document body or a references/ file.",
		}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return Attributes{}, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(body, &node); err != nil {
		return nil, wrapYAMLError(err, filePath, h.Line)
	}
	if len(node.Content) == 0 {
		return Attributes{}, nil
	}
	if node.Content[0].Kind != yaml.MappingNode {
		return nil, &MetadataError{
			FilePath: filePath,
			Line:     h.Line + node.Content[0].Line - 1,
			Message:  "header block is not a key/value mapping",
			Hint:     "Write one 'key: value' pair per line.",
		}
	}

	v, err := nodeValue(node.Content[0])
	if err != nil {
		return nil, wrapYAMLError(err, filePath, h.Line)
	}
	return Attributes(v.(map[string]any)), nil
}

// nodeValue decodes n like yaml.v3 would, except that integers and floats
// keep their literal text as json.Number so 1.10 is not shortened to 1.1.
func nodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		lines := make(map[string]int, len(n.Content)/2)
		var merged []map[string]any
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if prev, dup := lines[k.Value]; dup && k.ShortTag() != "!!merge" {
				return nil, fmt.Errorf("yaml: line %d: mapping key %q already defined at line %d", k.Line, k.Value, prev)
			}
			lines[k.Value] = k.Line
			val, err := nodeValue(v)
			if err != nil {
				return nil, err
			}
			if k.ShortTag() == "!!merge" {
				merged = append(merged, mergeSources(val)...)
				continue
			}
			out[k.Value] = val
		}
		for _, m := range merged {
			for k, v := range m {
				if _, ok := out[k]; !ok {
					out[k] = v
				}
			}
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			val, err := nodeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int", "!!float":
			if isJSONNumber(n.Value) {
				return json.Number(n.Value), nil
			}
		}
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// mergeSources returns the mappings named by a "<<" key, earliest first wins.
func mergeSources(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		var out []map[string]any
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// isJSONNumber rejects YAML-only forms such as 0x1F, +1 or .inf.
func isJSONNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}
