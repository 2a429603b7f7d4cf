package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// memoryFileInfo implements fs.FileInfo for in-memory files
type memoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) Mode() fs.FileMode  { return f.mode }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return f.isDir }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

// memoryFile implements File interface for in-memory files
type memoryFile struct {
	absPath string
	relPath string
	content []byte
	info    fs.FileInfo

	// linkTarget is set for symbolic links
	linkTarget string
}

func (f *memoryFile) Path() string         { return f.absPath }
func (f *memoryFile) RelativePath() string { return f.relPath }
func (f *memoryFile) Info() FileInfo       { return f.info }

func (f *memoryFile) ReadContent() ([]byte, error) {
	return f.content, nil
}

// memoryDirectory implements Directory interface for in-memory filesystem
type memoryDirectory struct {
	absPath string
	fs      *MemoryFileSystem
}

func (d *memoryDirectory) Path() string { return d.absPath }

func (d *memoryDirectory) Walk(fn func(File, error) error) error {
	entries := d.fs.snapshotUnder(d.absPath)

	// Sort by path for deterministic order
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].absPath < entries[j].absPath
	})

	var skipPrefix string
	for _, entry := range entries {
		if skipPrefix != "" && strings.HasPrefix(entry.absPath, skipPrefix) {
			continue
		}

		rel := "."
		if entry.absPath != d.absPath {
			rel = strings.TrimPrefix(entry.absPath, strings.TrimSuffix(d.absPath, "/")+"/")
		}
		view := &memoryFile{absPath: entry.absPath, relPath: rel, content: entry.content, info: entry.info}

		var walkErr error
		if entry.linkTarget != "" {
			target, ok := d.fs.resolve(entry.linkTarget)
			if !ok {
				walkErr = fmt.Errorf("%s: %w", rel, skilldeploy.ErrDanglingSymlink)
			} else {
				view.content = target.content
				view.info = &memoryFileInfo{
					name:    path.Base(entry.absPath),
					size:    target.info.Size(),
					mode:    target.info.Mode(),
					modTime: target.info.ModTime(),
					isDir:   target.info.IsDir(),
				}
			}
		}

		// Recover from panics in callback to prevent crashing the entire walk
		var callbackErr error
		func() {
			defer func() {
				if r := recover(); r != nil {
					callbackErr = fmt.Errorf("walk callback panicked at %s: %v", entry.absPath, r)
				}
			}()

			callbackErr = fn(view, walkErr)
		}()

		if errors.Is(callbackErr, fs.SkipDir) {
			if view.info.IsDir() {
				skipPrefix = entry.absPath + "/"
			}
			continue
		}
		if callbackErr != nil {
			return callbackErr
		}
	}

	return nil
}

// MemoryFileSystem implements FileSystem for in-memory testing.
// It is safe for concurrent use.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string]*memoryFile // map of absolute path -> file
	root  string                 // root directory path

	// failures maps a path prefix to the error returned by writes below it
	failures map[string]error
}

// NewMemoryFileSystem creates a new in-memory filesystem.
// The root path is normalized to use forward slashes for virtual filesystem consistency.
func NewMemoryFileSystem(root string) *MemoryFileSystem {
	root = filepath.ToSlash(root)
	root = path.Clean(root)

	mfs := &MemoryFileSystem{
		files:    make(map[string]*memoryFile),
		root:     root,
		failures: make(map[string]error),
	}

	mfs.files[root] = newMemoryDir(root, ".")
	return mfs
}

var _ FileSystem = (*MemoryFileSystem)(nil)

func newMemoryDir(absPath, relPath string) *memoryFile {
	return &memoryFile{
		absPath: absPath,
		relPath: relPath,
		info: &memoryFileInfo{
			name:    path.Base(absPath),
			mode:    0755 | fs.ModeDir,
			modTime: time.Now(),
			isDir:   true,
		},
	}
}

// Root returns the root directory of the filesystem
func (mfs *MemoryFileSystem) Root() string { return mfs.root }

// AddFile adds a file to the in-memory filesystem
func (mfs *MemoryFileSystem) AddFile(path string, content string) {
	mfs.AddFileWithTime(path, content, time.Now())
}

// AddFileWithTime adds a file with a specific modification time
func (mfs *MemoryFileSystem) AddFileWithTime(filePath string, content string, modTime time.Time) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.putFile(mfs.abs(filePath), []byte(content), modTime)
}

// AddDir adds an empty directory
func (mfs *MemoryFileSystem) AddDir(dirPath string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.mkdirAll(mfs.abs(dirPath))
}

// AddSymlink adds a symbolic link at linkPath pointing to target.
// Only links to files are supported; a missing target makes the link dangling.
func (mfs *MemoryFileSystem) AddSymlink(linkPath, target string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	absPath := mfs.abs(linkPath)
	mfs.files[absPath] = &memoryFile{
		absPath:    absPath,
		relPath:    mfs.rel(absPath),
		linkTarget: mfs.abs(target),
		info: &memoryFileInfo{
			name:    path.Base(absPath),
			mode:    0777 | fs.ModeSymlink,
			modTime: time.Now(),
		},
	}
	mfs.ensureDirectoriesExist(absPath)
}

// FailWrites makes every write at or below prefix return err.
func (mfs *MemoryFileSystem) FailWrites(prefix string, err error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.failures[mfs.abs(prefix)] = err
}

// Paths returns every file path below dir relative to it, sorted. Directories are omitted.
func (mfs *MemoryFileSystem) Paths(dir string) []string {
	base := mfs.abs(dir)
	var out []string
	for _, f := range mfs.snapshotUnder(base) {
		if f.info.IsDir() {
			continue
		}
		out = append(out, strings.TrimPrefix(f.absPath, base+"/"))
	}
	sort.Strings(out)
	return out
}

func (mfs *MemoryFileSystem) abs(p string) string {
	p = filepath.ToSlash(p)
	if p == "" || p == "." {
		return mfs.root
	}
	if !path.IsAbs(p) {
		p = path.Join(mfs.root, p)
	}
	return path.Clean(p)
}

func (mfs *MemoryFileSystem) rel(absPath string) string {
	if absPath == mfs.root {
		return "."
	}
	return strings.TrimPrefix(absPath, strings.TrimSuffix(mfs.root, "/")+"/")
}

// putFile requires mu held for writing
func (mfs *MemoryFileSystem) putFile(absPath string, content []byte, modTime time.Time) {
	mfs.files[absPath] = &memoryFile{
		absPath: absPath,
		relPath: mfs.rel(absPath),
		content: content,
		info: &memoryFileInfo{
			name:    path.Base(absPath),
			size:    int64(len(content)),
			mode:    0644,
			modTime: modTime,
		},
	}
	mfs.ensureDirectoriesExist(absPath)
}

// ensureDirectoriesExist creates directory entries for all parent directories
func (mfs *MemoryFileSystem) ensureDirectoriesExist(filePath string) {
	dir := path.Dir(filePath)
	if dir == "." || dir == filePath {
		return
	}
	if _, exists := mfs.files[dir]; exists {
		return
	}
	mfs.files[dir] = newMemoryDir(dir, mfs.rel(dir))
	mfs.ensureDirectoriesExist(dir)
}

func (mfs *MemoryFileSystem) mkdirAll(absPath string) {
	if _, exists := mfs.files[absPath]; exists {
		return
	}
	mfs.files[absPath] = newMemoryDir(absPath, mfs.rel(absPath))
	mfs.ensureDirectoriesExist(absPath)
}

func (mfs *MemoryFileSystem) resolve(absPath string) (*memoryFile, bool) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	f, ok := mfs.files[absPath]
	if !ok || f.linkTarget != "" {
		return nil, false
	}
	return f, true
}

// snapshotUnder returns all files and directories at or under basePath
func (mfs *MemoryFileSystem) snapshotUnder(basePath string) []*memoryFile {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	basePath = filepath.ToSlash(basePath)
	var entries []*memoryFile
	for p, file := range mfs.files {
		var matched bool
		if basePath == "/" {
			matched = strings.HasPrefix(p, "/")
		} else {
			matched = p == basePath || strings.HasPrefix(p, basePath+"/")
		}
		if matched {
			entries = append(entries, file)
		}
	}
	return entries
}

// failure requires mu held
func (mfs *MemoryFileSystem) failure(absPath string) error {
	for prefix, err := range mfs.failures {
		if absPath == prefix || strings.HasPrefix(absPath, prefix+"/") {
			return err
		}
	}
	return nil
}

func notExist(p string) error {
	return fmt.Errorf("path not found: %s: %w", p, fs.ErrNotExist)
}

// Open implements FileSystemProvider.Open
func (mfs *MemoryFileSystem) Open(openPath string) (Directory, error) {
	absPath := mfs.abs(openPath)

	mfs.mu.RLock()
	file, exists := mfs.files[absPath]
	mfs.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("directory not found: %s: %w", openPath, fs.ErrNotExist)
	}
	if !file.info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", openPath)
	}
	return &memoryDirectory{absPath: absPath, fs: mfs}, nil
}

// ReadFile implements FileSystemProvider.ReadFile
func (mfs *MemoryFileSystem) ReadFile(filePath string) ([]byte, error) {
	absPath := mfs.abs(filePath)

	mfs.mu.RLock()
	file, exists := mfs.files[absPath]
	mfs.mu.RUnlock()

	if !exists {
		return nil, notExist(filePath)
	}
	if file.linkTarget != "" {
		target, ok := mfs.resolve(file.linkTarget)
		if !ok {
			return nil, notExist(file.linkTarget)
		}
		file = target
	}
	if file.info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}
	return append([]byte(nil), file.content...), nil
}

// ReadDir implements FileSystemProvider.ReadDir
func (mfs *MemoryFileSystem) ReadDir(dirPath string) ([]FileInfo, error) {
	absPath := mfs.abs(dirPath)

	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	dir, exists := mfs.files[absPath]
	if !exists {
		return nil, notExist(dirPath)
	}
	if !dir.info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	var result []FileInfo
	for p, f := range mfs.files {
		if p != absPath && path.Dir(p) == absPath {
			result = append(result, f.info)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result, nil
}

// Stat implements FileSystemProvider.Stat
func (mfs *MemoryFileSystem) Stat(statPath string) (FileInfo, error) {
	absPath := mfs.abs(statPath)

	mfs.mu.RLock()
	file, exists := mfs.files[absPath]
	mfs.mu.RUnlock()

	if !exists {
		return nil, notExist(statPath)
	}
	if file.linkTarget != "" {
		target, ok := mfs.resolve(file.linkTarget)
		if !ok {
			return nil, notExist(file.linkTarget)
		}
		return target.info, nil
	}
	return file.info, nil
}

// MkdirAll implements Writer.MkdirAll
func (mfs *MemoryFileSystem) MkdirAll(dirPath string) error {
	absPath := mfs.abs(dirPath)

	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	if err := mfs.failure(absPath); err != nil {
		return err
	}
	if f, ok := mfs.files[absPath]; ok && !f.info.IsDir() {
		return fmt.Errorf("mkdir %s: not a directory", dirPath)
	}
	mfs.mkdirAll(absPath)
	return nil
}

// WriteFile implements Writer.WriteFile
func (mfs *MemoryFileSystem) WriteFile(filePath string, data []byte) error {
	absPath := mfs.abs(filePath)

	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	if err := mfs.failure(absPath); err != nil {
		return err
	}
	parent, ok := mfs.files[path.Dir(absPath)]
	if !ok || !parent.info.IsDir() {
		return fmt.Errorf("open %s: %w", filePath, fs.ErrNotExist)
	}
	if f, ok := mfs.files[absPath]; ok && f.info.IsDir() {
		return fmt.Errorf("open %s: is a directory", filePath)
	}
	mfs.putFile(absPath, append([]byte(nil), data...), time.Now())
	return nil
}

// Rename implements Writer.Rename. Only files can be renamed.
func (mfs *MemoryFileSystem) Rename(oldPath, newPath string) error {
	oldAbs, newAbs := mfs.abs(oldPath), mfs.abs(newPath)

	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	if err := mfs.failure(newAbs); err != nil {
		return err
	}
	f, ok := mfs.files[oldAbs]
	if !ok {
		return notExist(oldPath)
	}
	if f.info.IsDir() {
		return fmt.Errorf("rename %s: directories are not supported", oldPath)
	}
	delete(mfs.files, oldAbs)
	mfs.putFile(newAbs, f.content, f.info.ModTime())
	return nil
}

// RemoveAll implements Writer.RemoveAll
func (mfs *MemoryFileSystem) RemoveAll(p string) error {
	absPath := mfs.abs(p)

	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	if err := mfs.failure(absPath); err != nil {
		return err
	}
	for candidate := range mfs.files {
		if candidate == absPath || strings.HasPrefix(candidate, absPath+"/") {
			delete(mfs.files, candidate)
		}
	}
	return nil
}

// CheckWritable implements Writer.CheckWritable
func (mfs *MemoryFileSystem) CheckWritable(p string) error {
	absPath := mfs.abs(p)

	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	if err := mfs.failure(absPath); err != nil {
		return fmt.Errorf("%s: %v: %w", p, err, skilldeploy.ErrTargetNotWritable)
	}
	if f, ok := mfs.files[absPath]; ok && !f.info.IsDir() {
		return fmt.Errorf("%s is not a directory: %w", p, skilldeploy.ErrTargetNotWritable)
	}
	return nil
}
