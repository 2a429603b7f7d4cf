// Package scanner discovers skill packages in a source tree.
//
// The scanner package is responsible for:
//   - Recursively walking the source tree, following symbolic links
//   - Identifying package directories by their primary document
//   - Collecting each package's metadata file and auxiliary artifacts
//   - Excluding transient files (caches, OS metadata) by doublestar pattern
//   - Merging header and sibling metadata
//   - Selecting packages for a run by include/exclude pattern
//
// Problems with single entries (missing primary document, dangling links,
// unreadable files, invalid metadata) are collected as skilldeploy.DiscoveryError
// values and never stop discovery of other packages.
//
// The scanner is designed to be filesystem-agnostic through the use of
// filesystem.FileSystemProvider interface, enabling both production use
// with the OS filesystem and testing with in-memory filesystems.
package scanner
