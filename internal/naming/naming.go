// Package naming maps hierarchical source paths to flat deployed names.
package naming

import (
	"errors"
	"strings"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// Transformer joins source path segments with a reserved separator.
// It is a pure function of its input and safe for concurrent use.
type Transformer struct {
	separator rune
}

// NewTransformer creates a transformer for the given separator.
// Panics if the separator is a path separator or the zero rune.
func NewTransformer(separator rune) Transformer {
	if separator == 0 || separator == '/' || separator == '\\' {
		panic("separator must not be a path separator or zero")
	}
	return Transformer{separator: separator}
}

// Separator returns the reserved separator.
func (t Transformer) Separator() rune { return t.separator }

// Transform joins the segments. Hyphens and underscores inside segments pass
// through unchanged. A segment that is empty, or contains the separator or a
// path separator, yields an *IllegalSegmentCharacterError.
func (t Transformer) Transform(sourcePath []string) (string, error) {
	joined := strings.Join(sourcePath, "/")
	if len(sourcePath) == 0 {
		return "", &skilldeploy.IllegalSegmentCharacterError{SourcePath: joined, Separator: t.separator}
	}
	for _, seg := range sourcePath {
		if seg == "" || strings.ContainsRune(seg, t.separator) || strings.ContainsAny(seg, `/\`) {
			return "", &skilldeploy.IllegalSegmentCharacterError{
				SourcePath: joined,
				Segment:    seg,
				Separator:  t.separator,
			}
		}
	}
	return strings.Join(sourcePath, string(t.separator)), nil
}

// Assign sets DeployedName on every package it can name and returns all
// failures joined. Packages that fail keep an empty DeployedName.
func (t Transformer) Assign(packages []*skilldeploy.Package) error {
	var errs []error
	for _, pkg := range packages {
		name, err := t.Transform(pkg.SourcePath)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pkg.DeployedName = name
	}
	return errors.Join(errs...)
}
