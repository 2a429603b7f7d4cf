// Package filesystem provides filesystem abstraction interfaces and implementations.
//
// This package defines interfaces for file and directory operations, enabling
// testability through in-memory implementations while maintaining compatibility
// with the OS filesystem.
//
// Key interfaces:
//   - FileSystemProvider: Factory for creating directory instances and reading files
//   - Writer: Directory creation, file writes, renames and removal
//   - FileSystem: FileSystemProvider and Writer combined
//   - Directory: Represents a directory that can be traversed
//   - File: Represents an individual file with metadata and content
//
// Implementations:
//   - OSFileSystem: Production implementation using OS filesystem; follows symbolic links
//   - MemoryFileSystem: In-memory implementation for testing, with write-failure injection
package filesystem
