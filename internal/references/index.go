package references

import (
	"path"
	"strings"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// Index is the cross-package lookup table built once per run. It is
// immutable after construction and safe for concurrent readers.
type Index struct {
	separator      rune
	ecosystemDepth int

	// byKey maps slash-joined source paths to deployed names
	byKey map[string]string

	// names holds every known deployed name
	names map[string]bool

	// deployed holds source keys materialized in this run
	deployed map[string]bool

	// topLevel holds first segments of all package source paths
	topLevel map[string]bool
}

// NewIndex builds an index over every discovered package. Packages in
// selected are deployed in this run; the rest are known but not guaranteed.
// Packages without a deployed name are left out.
func NewIndex(all, selected []*skilldeploy.Package, separator rune, ecosystemDepth int) *Index {
	ix := &Index{
		separator:      separator,
		ecosystemDepth: ecosystemDepth,
		byKey:          make(map[string]string, len(all)),
		names:          make(map[string]bool, len(all)),
		deployed:       make(map[string]bool, len(selected)),
		topLevel:       map[string]bool{},
	}
	for _, p := range all {
		if p.DeployedName == "" || len(p.SourcePath) == 0 {
			continue
		}
		ix.byKey[p.SourceKey()] = p.DeployedName
		ix.names[p.DeployedName] = true
		ix.topLevel[p.SourcePath[0]] = true
	}
	for _, p := range selected {
		if p.DeployedName != "" {
			ix.deployed[p.SourceKey()] = true
		}
	}
	return ix
}

// Len returns the number of indexed packages.
func (ix *Index) Len() int { return len(ix.byKey) }

// Lookup finds the package whose source subtree contains the slash-separated
// source-relative path. The longest matching package wins. rest is the path
// inside that package.
func (ix *Index) Lookup(rel string) (key, rest string, ok bool) {
	for p := rel; p != "." && p != "/" && p != ""; p = path.Dir(p) {
		if _, found := ix.byKey[p]; found {
			return p, strings.TrimPrefix(strings.TrimPrefix(rel, p), "/"), true
		}
	}
	return "", "", false
}

// Name returns the deployed name for a source key.
func (ix *Index) Name(key string) string { return ix.byKey[key] }

// KnownName reports whether name is the deployed name of any indexed package.
func (ix *Index) KnownName(name string) bool { return ix.names[name] }

// Deployed reports whether the package is materialized in this run.
func (ix *Index) Deployed(key string) bool { return ix.deployed[key] }

// TopLevel reports whether segment is the first segment of some package.
func (ix *Index) TopLevel(segment string) bool { return ix.topLevel[segment] }

// Guaranteed reports whether a reference from one package to another can rely
// on the target being present next to the source after deployment.
func (ix *Index) Guaranteed(from, to string) bool {
	if !ix.deployed[to] {
		return false
	}
	if ix.ecosystemDepth > 0 && ecosystem(from, ix.ecosystemDepth) != ecosystem(to, ix.ecosystemDepth) {
		return false
	}
	return true
}

// WouldBeName returns the name a missing package at rel would have had.
// A trailing file name is dropped.
func (ix *Index) WouldBeName(rel string) string {
	segs := strings.Split(rel, "/")
	if len(segs) > 1 && strings.Contains(segs[len(segs)-1], ".") {
		segs = segs[:len(segs)-1]
	}
	return strings.Join(segs, string(ix.separator))
}

func ecosystem(key string, depth int) string {
	segs := strings.Split(key, "/")
	if len(segs) > depth {
		segs = segs[:depth]
	}
	return strings.Join(segs, "/")
}
