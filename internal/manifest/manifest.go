// Package manifest reads, writes and compares deployment manifests.
//
// The previous manifest is only an oracle for change detection. A new manifest
// is written atomically: encoded into a temporary file next to the destination
// and renamed over it.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/skilldeploy/internal/checksum"
	"github.com/vvka-141/skilldeploy/internal/files/filesystem"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// Manager loads and saves manifests through a filesystem.
type Manager struct {
	fs filesystem.FileSystem
}

// NewManager creates a manager. Panics if fsys is nil.
func NewManager(fsys filesystem.FileSystem) *Manager {
	if fsys == nil {
		panic("fsys cannot be nil")
	}
	return &Manager{fs: fsys}
}

// Load reads the manifest at path. A missing file yields a nil manifest and
// no error.
func (m *Manager) Load(path string) (*skilldeploy.Manifest, error) {
	data, err := m.fs.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	man, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return man, nil
}

// Save writes man to path atomically. The temporary file is removed on
// failure. Errors are *ManifestWriteError.
func (m *Manager) Save(path string, man *skilldeploy.Manifest) error {
	fail := func(err error) error {
		return &skilldeploy.ManifestWriteError{Path: path, Err: err}
	}

	data, err := Encode(man)
	if err != nil {
		return fail(err)
	}

	dir := filepath.Dir(path)
	if err := m.fs.MkdirAll(dir); err != nil {
		return fail(fmt.Errorf("failed to create directory: %w", err))
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := m.fs.WriteFile(tmp, data); err != nil {
		_ = m.fs.RemoveAll(tmp)
		return fail(fmt.Errorf("failed to write temporary file: %w", err))
	}
	if err := m.fs.Rename(tmp, path); err != nil {
		_ = m.fs.RemoveAll(tmp)
		return fail(fmt.Errorf("failed to replace manifest: %w", err))
	}
	return nil
}

// Encode renders a manifest as indented JSON with entries sorted by deployed
// name and a trailing newline. The input is not modified.
func Encode(man *skilldeploy.Manifest) ([]byte, error) {
	if man == nil {
		return nil, errors.New("manifest cannot be nil")
	}
	out := *man
	out.Entries = append([]skilldeploy.ManifestEntry(nil), man.Entries...)
	sort.SliceStable(out.Entries, func(i, j int) bool {
		return out.Entries[i].DeployedName < out.Entries[j].DeployedName
	})
	if out.Entries == nil {
		out.Entries = []skilldeploy.ManifestEntry{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses an encoded manifest.
func Decode(data []byte) (*skilldeploy.Manifest, error) {
	var man skilldeploy.Manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&man); err != nil {
		return nil, err
	}
	if man.SchemaVersion != skilldeploy.ManifestSchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %q", man.SchemaVersion)
	}
	return &man, nil
}

// New creates an empty manifest for a run.
func New(config skilldeploy.DeploymentConfig, runID string, now time.Time) *skilldeploy.Manifest {
	return &skilldeploy.Manifest{
		SchemaVersion: skilldeploy.ManifestSchemaVersion,
		RunID:         runID,
		GeneratedAt:   now.UTC(),
		SourceRoot:    config.SourceRoot,
		TargetRoot:    config.TargetRoot,
		Mode:          config.Mode,
		Entries:       []skilldeploy.ManifestEntry{},
	}
}

// Fingerprint hashes every artifact of a package as discovered, before any
// rewriting.
func Fingerprint(calc checksum.Calculator, pkg *skilldeploy.Package) string {
	artifacts := pkg.Artifacts()
	entries := make([]checksum.Entry, len(artifacts))
	for i, a := range artifacts {
		entries[i] = checksum.Entry{Path: a.RelativePath, Content: a.Content}
	}
	return calc.Fingerprint(entries)
}

// Unchanged reports whether an incremental run may skip a package: the
// previous entry has the same fingerprint and rewrite digest, it was deployed
// or skipped, and the target directory still holds the primary document.
func Unchanged(prev *skilldeploy.ManifestEntry, fingerprint, rewriteDigest string, primaryPresent bool) bool {
	if prev == nil || !primaryPresent {
		return false
	}
	if prev.Status != skilldeploy.StatusDeployed && prev.Status != skilldeploy.StatusSkipped {
		return false
	}
	return prev.Fingerprint == fingerprint && prev.RewriteDigest == rewriteDigest
}

// Owned reports whether the previous manifest recorded a deployed name as
// materialized, so its directory may be replaced without forcing.
func Owned(prev *skilldeploy.Manifest, deployedName string) bool {
	e := prev.Entry(deployedName)
	return e != nil && (e.Status == skilldeploy.StatusDeployed || e.Status == skilldeploy.StatusSkipped)
}

// Diff lists deployed names that differ between two manifests. Each slice is
// sorted.
type Diff struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether the manifests describe the same deployment.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare diffs two manifests. Either may be nil. An entry is changed when its
// fingerprint, rewrite digest or status differs.
func Compare(older, newer *skilldeploy.Manifest) Diff {
	var d Diff
	oldEntries := index(older)
	newEntries := index(newer)

	for name, n := range newEntries {
		o, ok := oldEntries[name]
		switch {
		case !ok:
			d.Added = append(d.Added, name)
		case o.Fingerprint != n.Fingerprint || o.RewriteDigest != n.RewriteDigest || o.Status != n.Status:
			d.Changed = append(d.Changed, name)
		}
	}
	for name := range oldEntries {
		if _, ok := newEntries[name]; !ok {
			d.Removed = append(d.Removed, name)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Changed)
	return d
}

// StaleWarnings reports entries of the previous manifest that the new one no
// longer carries. Their directories are left in place.
func StaleWarnings(prev, next *skilldeploy.Manifest) []skilldeploy.Warning {
	removed := Compare(prev, next).Removed
	var warnings []skilldeploy.Warning
	for _, name := range removed {
		e := prev.Entry(name)
		warnings = append(warnings, skilldeploy.Warning{
			Code:    skilldeploy.WarnStaleEntry,
			Package: name,
			Message: fmt.Sprintf("%s is no longer produced by the source tree; its target directory was left in place", e.SourcePath),
		})
	}
	return warnings
}

func index(m *skilldeploy.Manifest) map[string]*skilldeploy.ManifestEntry {
	out := map[string]*skilldeploy.ManifestEntry{}
	if m == nil {
		return out
	}
	for i := range m.Entries {
		out[m.Entries[i].DeployedName] = &m.Entries[i]
	}
	return out
}
