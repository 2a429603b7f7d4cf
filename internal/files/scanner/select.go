package scanner

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// Select partitions packages by include and exclude doublestar patterns matched
// against their slash-joined source path. An empty include list selects every
// package; exclude wins over include. Input order is preserved.
func Select(packages []*skilldeploy.Package, include, exclude []string) (selected, excluded []*skilldeploy.Package, err error) {
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, nil, fmt.Errorf("invalid package pattern %q: %w", p, skilldeploy.ErrInvalidConfig)
		}
	}

	for _, pkg := range packages {
		key := pkg.SourceKey()
		if (len(include) == 0 || matchAny(include, key)) && !matchAny(exclude, key) {
			selected = append(selected, pkg)
		} else {
			excluded = append(excluded, pkg)
		}
	}
	return selected, excluded, nil
}

func matchAny(patterns []string, key string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, key); ok {
			return true
		}
	}
	return false
}
