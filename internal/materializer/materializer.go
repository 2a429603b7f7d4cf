// Package materializer writes deployed packages into the flat target directory.
package materializer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/vvka-141/skilldeploy/internal/files/filesystem"
	"github.com/vvka-141/skilldeploy/internal/metadata"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// Request describes one package to write.
type Request struct {
	DeployedName string

	// Artifacts are written byte-for-byte at their relative paths
	Artifacts []skilldeploy.Artifact

	// Metadata is encoded into the metadata file
	Metadata metadata.Attributes

	// Overwrite allows replacing a non-empty package directory
	Overwrite bool
}

// Outcome reports what was written for one package.
type Outcome struct {
	Dir string

	// Files holds the written relative paths, sorted
	Files []string

	BytesWritten int64
}

// Materializer writes packages below a target root.
// It is safe for concurrent use on distinct deployed names.
type Materializer struct {
	fs           filesystem.FileSystem
	targetRoot   string
	metadataFile string
	logger       skilldeploy.Logger
}

// New creates a materializer. Panics if fsys or logger is nil.
func New(fsys filesystem.FileSystem, targetRoot, metadataFile string, logger skilldeploy.Logger) *Materializer {
	if fsys == nil {
		panic("fsys cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if metadataFile == "" {
		metadataFile = skilldeploy.DefaultMetadataFile
	}
	return &Materializer{
		fs:           fsys,
		targetRoot:   targetRoot,
		metadataFile: metadataFile,
		logger:       logger,
	}
}

// Dir returns the target directory for a deployed name.
func (m *Materializer) Dir(deployedName string) string {
	return filepath.Join(m.targetRoot, deployedName)
}

// Materialize writes one package directory. An existing non-empty directory
// is replaced only when req.Overwrite is set; it is removed first so files
// from an earlier deployment never survive. On failure the partial directory
// is removed and a *MaterializationError is returned.
//
// The context is checked once before anything is touched. A package that has
// started writing is always finished.
func (m *Materializer) Materialize(ctx context.Context, req Request) (Outcome, error) {
	dir := m.Dir(req.DeployedName)
	fail := func(p string, err error) (Outcome, error) {
		return Outcome{}, &skilldeploy.MaterializationError{DeployedName: req.DeployedName, Path: p, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail("", err)
	}
	if req.DeployedName == "" {
		return fail("", errors.New("deployed name is empty"))
	}

	empty, err := m.isDirectoryEmpty(dir)
	if err != nil {
		return fail(dir, err)
	}
	if !empty {
		if !req.Overwrite {
			return fail(dir, skilldeploy.ErrTargetNotEmpty)
		}
		m.logger.Verbose("Replacing existing directory %s", dir)
		if err := m.fs.RemoveAll(dir); err != nil {
			return fail(dir, fmt.Errorf("failed to remove existing directory: %w", err))
		}
	}

	if err := m.fs.MkdirAll(dir); err != nil {
		return fail(dir, fmt.Errorf("failed to create directory: %w", err))
	}

	out, err := m.write(dir, req)
	if err != nil {
		if rmErr := m.fs.RemoveAll(dir); rmErr != nil {
			m.logger.Warn("Failed to remove partial directory %s: %v", dir, rmErr)
		}
		return Outcome{}, &skilldeploy.MaterializationError{DeployedName: req.DeployedName, Path: out.failedAt, Err: err}
	}

	m.logger.Verbose("Materialized %s (%d files)", req.DeployedName, len(out.Files))
	return out.Outcome, nil
}

type writeResult struct {
	Outcome
	failedAt string
}

func (m *Materializer) write(dir string, req Request) (writeResult, error) {
	res := writeResult{Outcome: Outcome{Dir: dir}}
	created := map[string]bool{".": true}

	put := func(rel string, data []byte) error {
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if parent := path.Dir(rel); !created[parent] {
			if err := m.fs.MkdirAll(filepath.Dir(target)); err != nil {
				res.failedAt = filepath.Dir(target)
				return fmt.Errorf("failed to create directory: %w", err)
			}
			created[parent] = true
		}
		if err := m.fs.WriteFile(target, data); err != nil {
			res.failedAt = target
			return fmt.Errorf("failed to write file: %w", err)
		}
		res.Files = append(res.Files, rel)
		res.BytesWritten += int64(len(data))
		return nil
	}

	for _, a := range req.Artifacts {
		if a.RelativePath == m.metadataFile {
			continue
		}
		if err := put(a.RelativePath, a.Content); err != nil {
			return res, err
		}
	}

	encoded, err := metadata.Encode(req.Metadata)
	if err != nil {
		res.failedAt = filepath.Join(dir, m.metadataFile)
		return res, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := put(m.metadataFile, encoded); err != nil {
		return res, err
	}

	sort.Strings(res.Files)
	return res, nil
}

// isDirectoryEmpty reports whether dir is missing or has no entries.
func (m *Materializer) isDirectoryEmpty(dir string) (bool, error) {
	info, err := m.fs.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check directory: %w", err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("path exists but is not a directory")
	}

	entries, err := m.fs.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("failed to read directory: %w", err)
	}
	return len(entries) == 0, nil
}
