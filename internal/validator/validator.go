// Package validator implements the checks run before anything is written and
// after each package is materialized.
package validator

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/vvka-141/skilldeploy/internal/checksum"
	"github.com/vvka-141/skilldeploy/internal/files/filesystem"
	"github.com/vvka-141/skilldeploy/internal/files/scanner"
	"github.com/vvka-141/skilldeploy/internal/metadata"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// Validator runs pre-flight and post-flight checks.
// It is safe for concurrent use.
type Validator struct {
	fs              filesystem.FileSystem
	calc            checksum.Calculator
	transient       *scanner.TransientMatcher
	primaryDocument string
	metadataFile    string
}

// New creates a validator for the given configuration. Panics if fsys is nil.
func New(fsys filesystem.FileSystem, config skilldeploy.DeploymentConfig) (*Validator, error) {
	if fsys == nil {
		panic("fsys cannot be nil")
	}
	config.ApplyDefaults()
	transient, err := scanner.NewTransientMatcher(skilldeploy.DiscoveryOptionsFor(config).TransientPatterns)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, skilldeploy.ErrInvalidConfig)
	}
	return &Validator{
		fs:              fsys,
		calc:            checksum.New(),
		transient:       transient,
		primaryDocument: config.PrimaryDocument,
		metadataFile:    config.MetadataFile,
	}, nil
}

// PreflightResult holds per-package outcomes of the pre-flight checks.
type PreflightResult struct {
	// Failed maps source keys to the reason the package cannot be deployed
	Failed map[string]error

	Warnings []skilldeploy.Warning
}

// Preflight checks the selected packages before any write.
//
// Per-package failures (empty primary document) land in the result. Naming
// errors, collisions and an unwritable target root are fatal: the returned
// error wraps ErrValidationFailed together with each cause.
func (v *Validator) Preflight(packages []*skilldeploy.Package, targetRoot string, namingErr error) (PreflightResult, error) {
	res := PreflightResult{Failed: map[string]error{}}
	var fatal []error

	if namingErr != nil {
		fatal = append(fatal, namingErr)
	}

	byName := map[string][]string{}
	for _, pkg := range packages {
		key := pkg.SourceKey()
		if len(bytes.TrimSpace(pkg.PrimaryDocument.Content)) == 0 {
			res.Failed[key] = fmt.Errorf("%s/%s is empty", key, v.primaryDocument)
		}
		if pkg.DeployedName != "" {
			byName[pkg.DeployedName] = append(byName[pkg.DeployedName], key)
		}

		check := metadata.Validate(pkg.Metadata, path.Join(key, v.primaryDocument))
		for _, msg := range check.Errors {
			res.Warnings = append(res.Warnings, skilldeploy.Warning{
				Code:    skilldeploy.WarnMetadata,
				Package: pkg.DeployedName,
				Message: msg,
			})
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if keys := byName[name]; len(keys) > 1 {
			sort.Strings(keys)
			fatal = append(fatal, &skilldeploy.NamingCollisionError{DeployedName: name, SourcePaths: keys})
		}
	}

	if err := v.fs.CheckWritable(targetRoot); err != nil {
		fatal = append(fatal, err)
	}

	if len(fatal) > 0 {
		return res, fmt.Errorf("%w: %w", skilldeploy.ErrValidationFailed, errors.Join(fatal...))
	}
	return res, nil
}

// Expectation describes what a materialized package directory must hold.
type Expectation struct {
	// Files are the relative paths that were written
	Files []string

	// Unmodified maps relative paths of artifacts written byte-for-byte to
	// their source content
	Unmodified map[string][]byte
}

// Postflight verifies a materialized package directory. Every problem found
// is returned joined.
func (v *Validator) Postflight(dir string, want Expectation) error {
	var errs []error

	info, err := v.fs.Stat(dir)
	if err != nil {
		return fmt.Errorf("package directory missing: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	for _, required := range []string{v.primaryDocument, v.metadataFile} {
		if _, err := v.fs.Stat(filepath.Join(dir, required)); err != nil {
			errs = append(errs, fmt.Errorf("%s missing: %w", required, err))
		}
	}

	rels := make([]string, 0, len(want.Unmodified))
	for rel := range want.Unmodified {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		got, err := v.fs.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s unreadable: %w", rel, err))
			continue
		}
		if v.calc.CalculateRaw(got) != v.calc.CalculateRaw(want.Unmodified[rel]) {
			errs = append(errs, fmt.Errorf("%s differs from its source", rel))
		}
	}

	expected := make(map[string]bool, len(want.Files))
	for _, f := range want.Files {
		expected[f] = true
	}

	d, err := v.fs.Open(dir)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	walkErr := d.Walk(func(file filesystem.File, err error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		rel := file.RelativePath()
		if rel == "." || file.Info().IsDir() {
			return nil
		}
		switch {
		case v.transient.Match(rel, false):
			errs = append(errs, fmt.Errorf("transient file %s present", rel))
		case !expected[rel]:
			errs = append(errs, fmt.Errorf("unexpected file %s present", rel))
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	return errors.Join(errs...)
}
