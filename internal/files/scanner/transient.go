package scanner

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// TransientMatcher recognizes cache and OS metadata files.
type TransientMatcher struct {
	patterns []string
}

// NewTransientMatcher validates the patterns up front so matching never fails later.
func NewTransientMatcher(patterns []string) (*TransientMatcher, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid transient pattern %q", p)
		}
	}
	return &TransientMatcher{patterns: append([]string(nil), patterns...)}, nil
}

// Match reports whether a slash-separated path relative to the source root is
// transient. A directory matches "dir/**" patterns itself, so its whole
// subtree can be skipped.
func (m *TransientMatcher) Match(rel string, isDir bool) bool {
	for _, pattern := range m.patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if isDir && strings.HasSuffix(pattern, "/**") {
			if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/**"), rel); ok {
				return true
			}
		}
	}
	return false
}
