package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// osFile implements File interface for OS filesystem
type osFile struct {
	absPath string
	relPath string
	info    fs.FileInfo
}

func (f *osFile) Path() string         { return f.absPath }
func (f *osFile) RelativePath() string { return f.relPath }
func (f *osFile) Info() FileInfo       { return f.info }

func (f *osFile) ReadContent() ([]byte, error) {
	return os.ReadFile(f.absPath)
}

// osDirectory implements Directory interface for OS filesystem
type osDirectory struct {
	absPath string
}

func (d *osDirectory) Path() string { return d.absPath }

func (d *osDirectory) Walk(fn func(File, error) error) error {
	info, err := os.Stat(d.absPath)
	if err != nil {
		return fn(nil, err)
	}

	real, err := filepath.EvalSymlinks(d.absPath)
	if err != nil {
		return fn(nil, err)
	}

	visited := map[string]bool{real: true}
	err = d.walk(d.absPath, ".", info, visited, fn)
	if errors.Is(err, fs.SkipDir) {
		return nil
	}
	return err
}

func (d *osDirectory) walk(path, rel string, info fs.FileInfo, visited map[string]bool, fn func(File, error) error) error {
	if err := d.call(fn, &osFile{absPath: path, relPath: rel, info: info}, nil); err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return d.call(fn, &osFile{absPath: path, relPath: rel, info: info}, fmt.Errorf("failed to read directory: %w", err))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		childPath := filepath.Join(path, entry.Name())
		childRel := entry.Name()
		if rel != "." {
			childRel = rel + "/" + entry.Name()
		}

		childInfo, err := os.Stat(childPath)
		if err != nil {
			lstat, lerr := os.Lstat(childPath)
			if lerr == nil && lstat.Mode()&fs.ModeSymlink != 0 && errors.Is(err, fs.ErrNotExist) {
				dangling := &osFile{absPath: childPath, relPath: childRel, info: lstat}
				if cbErr := d.call(fn, dangling, fmt.Errorf("%s: %w", childRel, skilldeploy.ErrDanglingSymlink)); cbErr != nil {
					if errors.Is(cbErr, fs.SkipDir) {
						continue
					}
					return cbErr
				}
				continue
			}
			var entryFile File
			if lerr == nil {
				entryFile = &osFile{absPath: childPath, relPath: childRel, info: lstat}
			}
			if cbErr := d.call(fn, entryFile, err); cbErr != nil && !errors.Is(cbErr, fs.SkipDir) {
				return cbErr
			}
			continue
		}

		if childInfo.IsDir() {
			real, err := filepath.EvalSymlinks(childPath)
			if err != nil {
				if cbErr := d.call(fn, &osFile{absPath: childPath, relPath: childRel, info: childInfo}, err); cbErr != nil && !errors.Is(cbErr, fs.SkipDir) {
					return cbErr
				}
				continue
			}
			if visited[real] {
				continue
			}
			visited[real] = true
		}

		if err := d.walk(childPath, childRel, childInfo, visited, fn); err != nil {
			if errors.Is(err, fs.SkipDir) {
				continue
			}
			return err
		}
	}
	return nil
}

// call invokes fn with panic recovery
func (d *osDirectory) call(fn func(File, error) error, file File, walkErr error) (callbackErr error) {
	defer func() {
		if r := recover(); r != nil {
			at := d.absPath
			if file != nil {
				at = file.Path()
			}
			callbackErr = fmt.Errorf("walk callback panicked at %s: %v", at, r)
		}
	}()
	return fn(file, walkErr)
}

// OSFileSystem implements FileSystem for the OS filesystem
type OSFileSystem struct{}

// NewOSFileSystem creates a new OS filesystem provider
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

var _ FileSystem = (*OSFileSystem)(nil)

func (p *OSFileSystem) Open(path string) (Directory, error) {
	// Verify path exists and is a directory
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	return &osDirectory{absPath: absPath}, nil
}

func (p *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (p *OSFileSystem) ReadDir(path string) ([]FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	result := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to get file info for %s: %w", entry.Name(), err)
		}
		result = append(result, info)
	}

	return result, nil
}

func (p *OSFileSystem) Stat(path string) (FileInfo, error) {
	return os.Stat(path)
}

func (p *OSFileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

// WriteFile writes and syncs data so a following Rename publishes complete content.
func (p *OSFileSystem) WriteFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (p *OSFileSystem) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

func (p *OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// CheckWritable probes the nearest existing ancestor of path with a temporary
// file that is removed immediately.
func (p *OSFileSystem) CheckWritable(path string) error {
	dir := filepath.Clean(path)
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory: %w", dir, skilldeploy.ErrTargetNotWritable)
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", err, skilldeploy.ErrTargetNotWritable)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fmt.Errorf("no existing ancestor for %s: %w", path, skilldeploy.ErrTargetNotWritable)
		}
		dir = parent
	}

	probe, err := os.CreateTemp(dir, ".skilldeploy-probe-*")
	if err != nil {
		return fmt.Errorf("%s: %v: %w", dir, err, skilldeploy.ErrTargetNotWritable)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
