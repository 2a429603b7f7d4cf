// Package files groups the source-tree file handling used during deployment:
//   - filesystem: filesystem abstraction with OS and in-memory implementations
//   - scanner: package discovery, auxiliary subtree collection and selection
package files
