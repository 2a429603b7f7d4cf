package filesystem

import (
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
// This provides compatibility with the fs.FS ecosystem while maintaining
// a stable local type for our abstraction layer.
type FileInfo = fs.FileInfo

// SkipDir can be returned from a Walk callback on a directory to skip its subtree.
var SkipDir = fs.SkipDir

// File represents an individual file with its metadata and content accessor
type File interface {
	// Path returns the absolute path to the file
	Path() string

	// RelativePath returns the slash-separated path relative to the walked root
	RelativePath() string

	// Info returns file metadata. For symbolic links it describes the link target,
	// or the link itself when the target does not exist.
	Info() FileInfo

	// ReadContent returns the file's content
	ReadContent() ([]byte, error)
}

// Directory represents a directory that can be traversed to discover files
type Directory interface {
	// Path returns the absolute path to the directory
	Path() string

	// Walk traverses the directory tree in lexical order, calling fn for each file
	// and directory. Symbolic links are followed. A dangling link is reported as a
	// non-nil File together with an error wrapping skilldeploy.ErrDanglingSymlink;
	// walking continues when fn returns nil. Returning SkipDir for a directory
	// skips its subtree. Any other error stops the walk.
	Walk(fn func(File, error) error) error
}

// FileSystemProvider is a factory for creating Directory instances
type FileSystemProvider interface {
	// Open opens a directory at the specified path
	Open(path string) (Directory, error)

	// ReadFile reads a specific file at the given path
	ReadFile(path string) ([]byte, error)

	// ReadDir reads the directory entries at the given path.
	// This is a convenience method that returns a flat list of entries
	// without requiring Walk() for simple directory listing.
	ReadDir(path string) ([]FileInfo, error)

	// Stat returns file information for the given path.
	// Missing paths yield an error wrapping fs.ErrNotExist.
	Stat(path string) (FileInfo, error)
}

// Writer mutates the filesystem. Implementations must be safe for concurrent
// use on disjoint paths.
type Writer interface {
	// MkdirAll creates a directory and any missing parents
	MkdirAll(path string) error

	// WriteFile writes data to path, creating or truncating it.
	// Parent directories must exist.
	WriteFile(path string, data []byte) error

	// Rename atomically replaces newPath with oldPath
	Rename(oldPath, newPath string) error

	// RemoveAll removes path and everything below it. A missing path is not an error.
	RemoveAll(path string) error

	// CheckWritable reports whether path is writable, or could be created, without
	// leaving anything behind.
	CheckWritable(path string) error
}

// FileSystem combines read and write access.
type FileSystem interface {
	FileSystemProvider
	Writer
}
