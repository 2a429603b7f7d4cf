package skilldeploy

import "context"

// Discoverer finds packages in a source tree.
// Implementations must be safe for concurrent use by multiple goroutines.
type Discoverer interface {
	// Discover walks root and returns every package found. Per-entry problems
	// are collected in the result; the error is reserved for an unreadable root
	// or cancellation.
	Discover(ctx context.Context, root string, opts DiscoveryOptions) (DiscoveryResult, error)
}

// DiscoveryOptions tune what counts as a package and its content.
type DiscoveryOptions struct {
	PrimaryDocument string
	MetadataFile    string
	AuxiliaryDirs   []string

	// TransientPatterns are doublestar globs over slash-separated paths
	// relative to the source root
	TransientPatterns []string

	// SkipDirs are absolute directories that are never descended
	SkipDirs []string
}

// DiscoveryOptionsFor derives discovery options from a deployment configuration.
// The target root is skipped when it lies inside the source tree.
func DiscoveryOptionsFor(c DeploymentConfig) DiscoveryOptions {
	patterns := append(append([]string(nil), DefaultTransientPatterns...), c.TransientPatterns...)
	var skip []string
	if c.TargetRoot != "" {
		skip = append(skip, c.TargetRoot)
	}
	return DiscoveryOptions{
		PrimaryDocument:   c.PrimaryDocument,
		MetadataFile:      c.MetadataFile,
		AuxiliaryDirs:     c.AuxiliaryDirs,
		TransientPatterns: patterns,
		SkipDirs:          skip,
	}
}

// DiscoveryResult contains every package found plus per-entry problems.
type DiscoveryResult struct {
	// Packages are sorted by source key
	Packages []*Package

	// Errors are *DiscoveryError values, sorted by path
	Errors []error

	// Warnings hold non-fatal metadata problems
	Warnings []Warning
}
