package metadata

import (
	"fmt"
	"strings"
)

// Validate checks merged metadata for the fields a host runtime relies on.
// It checks:
//   - name and description are present non-empty strings
//   - version, when present, is a string
//   - dependency keys, when present, hold a string or a list of strings
//
// Problems are reported as warnings by callers; they never stop a deployment.
func Validate(attrs Attributes, filePath string) ValidationResult {
	result := ValidationResult{Valid: true, Errors: []string{}}

	for _, key := range []string{"name", "description"} {
		v, ok := attrs[key]
		if !ok {
			result.AddError("%s: required field %q is missing", filePath, key)
			continue
		}
		s, isString := v.(string)
		if !isString {
			result.AddError("%s: field %q must be a string, got %T", filePath, key, v)
			continue
		}
		if strings.TrimSpace(s) == "" {
			result.AddError("%s: field %q is empty", filePath, key)
		}
	}

	if v, ok := attrs["version"]; ok {
		if _, isString := v.(string); !isString {
			result.AddError("%s: field \"version\" should be a string such as \"1.0.0\", got %s", filePath, describe(v))
		}
	}

	for _, key := range DependencyKeys {
		v, ok := attrs[key]
		if !ok {
			continue
		}
		if _, err := StringList(v); err != nil {
			result.AddError("%s: field %q %v", filePath, key, err)
		}
	}

	return result
}

// DependencyKeys are the metadata keys holding references to other packages.
var DependencyKeys = []string{"requires", "depends_on", "dependencies", "related_skills"}

// StringList accepts a string or a list of strings.
func StringList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d must be a string, got %s", i, describe(item))
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return t, nil
	default:
		return nil, fmt.Errorf("must be a string or a list of strings, got %s", describe(v))
	}
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
