package scanner

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vvka-141/skilldeploy/internal/files/filesystem"
	"github.com/vvka-141/skilldeploy/internal/metadata"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// Scanner discovers skill packages in a directory tree.
// Scanner is safe for concurrent use by multiple goroutines as long as
// the provided fsProvider is also thread-safe.
type Scanner struct {
	fsProvider filesystem.FileSystemProvider
}

var _ skilldeploy.Discoverer = (*Scanner)(nil)

// NewScanner creates a new scanner over the OS filesystem.
func NewScanner() *Scanner {
	return &Scanner{
		fsProvider: filesystem.NewOSFileSystem(),
	}
}

// NewScannerWithFS creates a new scanner with a custom filesystem provider.
// This is primarily useful for testing with in-memory filesystems.
// Panics if fsProvider is nil.
func NewScannerWithFS(fsProvider filesystem.FileSystemProvider) *Scanner {
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	return &Scanner{
		fsProvider: fsProvider,
	}
}

// walkedFile is one regular file seen during the walk
type walkedFile struct {
	rel  string
	file filesystem.File
}

// tree is the raw outcome of walking the source root
type tree struct {
	root  string
	dirs  map[string]string // rel -> absolute path
	files map[string][]walkedFile
	errs  []error
}

// Discover walks root and returns every package found.
//
// A directory is a package iff it directly contains the primary document.
// Packages may nest; a nested package is independent of its parent. Directories
// below a package's auxiliary subdirectory are content, not packages. Hidden
// directories, transient paths and opts.SkipDirs are never descended.
func (s *Scanner) Discover(ctx context.Context, root string, opts skilldeploy.DiscoveryOptions) (skilldeploy.DiscoveryResult, error) {
	if opts.PrimaryDocument == "" {
		opts.PrimaryDocument = skilldeploy.DefaultPrimaryDocument
	}
	if opts.MetadataFile == "" {
		opts.MetadataFile = skilldeploy.DefaultMetadataFile
	}

	transient, err := NewTransientMatcher(opts.TransientPatterns)
	if err != nil {
		return skilldeploy.DiscoveryResult{}, fmt.Errorf("%v: %w", err, skilldeploy.ErrInvalidConfig)
	}

	t, err := s.walk(ctx, root, opts, transient)
	if err != nil {
		return skilldeploy.DiscoveryResult{}, err
	}

	result := skilldeploy.DiscoveryResult{Errors: t.errs}
	packageDirs := s.packageDirs(t, opts)

	for _, rel := range sortedKeys(t.dirs) {
		if packageDirs[rel] || s.insideAuxiliary(rel, packageDirs, opts.AuxiliaryDirs) {
			continue
		}
		for _, f := range t.files[rel] {
			if path.Base(f.rel) == opts.MetadataFile {
				result.Errors = append(result.Errors, &skilldeploy.DiscoveryError{
					Path: rel,
					Err:  fmt.Errorf("%s present without %s: %w", opts.MetadataFile, opts.PrimaryDocument, skilldeploy.ErrMissingPrimaryDocument),
				})
				break
			}
		}
	}

	for _, rel := range sortedKeys(t.dirs) {
		if !packageDirs[rel] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return skilldeploy.DiscoveryResult{}, err
		}
		pkg, errs, warnings := s.buildPackage(t, rel, packageDirs, opts)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
		if pkg != nil {
			result.Packages = append(result.Packages, pkg)
		}
	}

	sort.SliceStable(result.Errors, func(i, j int) bool {
		return discoveryPath(result.Errors[i]) < discoveryPath(result.Errors[j])
	})
	return result, nil
}

func (s *Scanner) walk(ctx context.Context, root string, opts skilldeploy.DiscoveryOptions, transient *TransientMatcher) (*tree, error) {
	dir, err := s.fsProvider.Open(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open source root: %w", err)
	}

	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		skip[filepath.Clean(d)] = true
	}

	t := &tree{
		root:  dir.Path(),
		dirs:  map[string]string{},
		files: map[string][]walkedFile{},
	}

	err = dir.Walk(func(file filesystem.File, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if file == nil {
				return fmt.Errorf("error walking source tree: %w", walkErr)
			}
			t.errs = append(t.errs, &skilldeploy.DiscoveryError{Path: file.RelativePath(), Err: walkErr})
			return nil
		}

		rel := file.RelativePath()
		if file.Info().IsDir() {
			if rel == "." {
				t.dirs[rel] = file.Path()
				return nil
			}
			if strings.HasPrefix(path.Base(rel), ".") || skip[filepath.Clean(file.Path())] || transient.Match(rel, true) {
				return filesystem.SkipDir
			}
			t.dirs[rel] = file.Path()
			return nil
		}

		if transient.Match(rel, false) {
			return nil
		}
		parent := path.Dir(rel)
		t.files[parent] = append(t.files[parent], walkedFile{rel: rel, file: file})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// packageDirs returns the relative directories that qualify as packages.
func (s *Scanner) packageDirs(t *tree, opts skilldeploy.DiscoveryOptions) map[string]bool {
	candidates := map[string]bool{}
	for dir, files := range t.files {
		for _, f := range files {
			if path.Base(f.rel) == opts.PrimaryDocument {
				candidates[dir] = true
			}
		}
	}

	// Parents sort before children, so an auxiliary subtree is ruled out
	// before any candidate inside it is considered.
	confirmed := map[string]bool{}
	for _, dir := range sortedKeys(candidates) {
		if s.insideAuxiliary(dir, confirmed, opts.AuxiliaryDirs) {
			continue
		}
		confirmed[dir] = true
	}
	return confirmed
}

// insideAuxiliary reports whether rel lies below an auxiliary subdirectory
// of one of the given packages.
func (s *Scanner) insideAuxiliary(rel string, packages map[string]bool, aux []string) bool {
	for p := rel; p != "."; {
		parent := path.Dir(p)
		if packages[parent] && contains(aux, path.Base(p)) {
			return true
		}
		p = parent
	}
	return false
}

func (s *Scanner) buildPackage(t *tree, rel string, packageDirs map[string]bool, opts skilldeploy.DiscoveryOptions) (*skilldeploy.Package, []error, []skilldeploy.Warning) {
	var errs []error
	var warnings []skilldeploy.Warning

	if rel == "." {
		return nil, []error{&skilldeploy.DiscoveryError{
			Path: ".",
			Err:  errors.New("the source root itself cannot be a package"),
		}}, nil
	}

	pkg := &skilldeploy.Package{
		SourcePath: strings.Split(rel, "/"),
		Dir:        t.dirs[rel],
	}

	read := func(f walkedFile) (skilldeploy.Artifact, bool) {
		content, err := f.file.ReadContent()
		if err != nil {
			errs = append(errs, &skilldeploy.DiscoveryError{Path: f.rel, Err: fmt.Errorf("failed to read file: %w", err)})
			return skilldeploy.Artifact{}, false
		}
		return skilldeploy.Artifact{
			RelativePath: strings.TrimPrefix(f.rel, rel+"/"),
			SourcePath:   f.file.Path(),
			Content:      content,
			Size:         int64(len(content)),
		}, true
	}

	var primaryFound bool
	for _, f := range t.files[rel] {
		switch path.Base(f.rel) {
		case opts.PrimaryDocument:
			a, ok := read(f)
			if !ok {
				return nil, errs, nil
			}
			pkg.PrimaryDocument = a
			primaryFound = true
		case opts.MetadataFile:
			if a, ok := read(f); ok {
				pkg.MetadataFile = &a
			}
		}
	}
	if !primaryFound {
		return nil, errs, nil
	}

	for _, auxDir := range opts.AuxiliaryDirs {
		prefix := rel + "/" + auxDir
		for _, dir := range sortedKeys(t.dirs) {
			if dir != prefix && !strings.HasPrefix(dir, prefix+"/") {
				continue
			}
			for _, f := range t.files[dir] {
				if a, ok := read(f); ok {
					pkg.AuxiliaryArtifacts = append(pkg.AuxiliaryArtifacts, a)
				}
			}
		}
	}
	sort.Slice(pkg.AuxiliaryArtifacts, func(i, j int) bool {
		return pkg.AuxiliaryArtifacts[i].RelativePath < pkg.AuxiliaryArtifacts[j].RelativePath
	})

	header, err := metadata.ExtractHeader(pkg.PrimaryDocument.Content, rel+"/"+opts.PrimaryDocument)
	if err != nil && !errors.Is(err, metadata.ErrNoMetadata) {
		warnings = append(warnings, skilldeploy.Warning{
			Code:    skilldeploy.WarnMetadata,
			Package: rel,
			Message: err.Error(),
		})
		header = nil
	}

	var sibling metadata.Attributes
	if pkg.MetadataFile != nil {
		sibling, err = metadata.ParseJSON(pkg.MetadataFile.Content, rel+"/"+opts.MetadataFile)
		if err != nil {
			errs = append(errs, &skilldeploy.DiscoveryError{Path: rel + "/" + opts.MetadataFile, Err: err})
			sibling = nil
		}
	}

	pkg.Metadata = metadata.Merge(header, sibling)
	return pkg, errs, warnings
}

func discoveryPath(err error) string {
	var de *skilldeploy.DiscoveryError
	if errors.As(err, &de) {
		return de.Path
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
