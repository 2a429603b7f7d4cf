package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vvka-141/skilldeploy/internal/checksum"
	"github.com/vvka-141/skilldeploy/internal/files/filesystem"
	"github.com/vvka-141/skilldeploy/internal/files/scanner"
	"github.com/vvka-141/skilldeploy/internal/manifest"
	"github.com/vvka-141/skilldeploy/internal/materializer"
	"github.com/vvka-141/skilldeploy/internal/naming"
	"github.com/vvka-141/skilldeploy/internal/references"
	"github.com/vvka-141/skilldeploy/internal/validator"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// DeploymentService implements the Deployer interface.
// Thread-Safety: NOT safe for concurrent Deploy() calls targeting the same
// directory. Create separate instances for concurrent deployments.
type DeploymentService struct {
	discoverer skilldeploy.Discoverer
	fs         filesystem.FileSystem
	approver   skilldeploy.Approver
	logger     skilldeploy.Logger
	classifier references.Classifier
	manifests  *manifest.Manager
	calc       checksum.Calculator

	now   func() time.Time
	runID func() string
}

var _ skilldeploy.Deployer = (*DeploymentService)(nil)

// NewDeploymentService creates a new DeploymentService with all dependencies injected.
//
// Panic vs. Error Boundary Rationale:
//   - Panics on nil dependencies: These are programmer errors that should fail loudly
//     at application startup, not in the middle of a run.
//   - Returns errors for runtime conditions: Configuration validation, unreadable
//     sources and write failures are handled by the caller and recorded in the report.
func NewDeploymentService(
	discoverer skilldeploy.Discoverer,
	fsys filesystem.FileSystem,
	approver skilldeploy.Approver,
	logger skilldeploy.Logger,
) *DeploymentService {
	if discoverer == nil {
		panic("discoverer cannot be nil")
	}
	if fsys == nil {
		panic("fsys cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &DeploymentService{
		discoverer: discoverer,
		fs:         fsys,
		approver:   approver,
		logger:     logger,
		classifier: references.DefaultClassifier{},
		manifests:  manifest.NewManager(fsys),
		calc:       checksum.New(),
		now:        time.Now,
		runID:      uuid.NewString,
	}
}

// WithClassifier replaces the reference classifier. A nil classifier restores
// the default.
func (s *DeploymentService) WithClassifier(c references.Classifier) *DeploymentService {
	if c == nil {
		c = references.DefaultClassifier{}
	}
	s.classifier = c
	return s
}

// run holds the immutable state shared by the per-package workers.
type run struct {
	config       skilldeploy.DeploymentConfig
	prev         *skilldeploy.Manifest
	rewriter     *references.Rewriter
	materializer *materializer.Materializer
	validator    *validator.Validator

	// metaWarnings are pre-flight metadata warnings keyed by deployed name
	metaWarnings map[string][]skilldeploy.Warning
}

// Deploy executes a deployment using the provided configuration.
//
// The run is: discover, select, name, pre-flight, then rewrite, materialize and
// post-flight every package on a bounded worker pool, and finally write the
// manifest. Per-package failures never stop other packages; they are recorded
// in the manifest and the returned error wraps ErrPartialFailure.
func (s *DeploymentService) Deploy(ctx context.Context, config skilldeploy.DeploymentConfig) (*skilldeploy.RunReport, error) {
	report := &skilldeploy.RunReport{DryRun: config.DryRun}

	config, err := s.validateConfig(config)
	if err != nil {
		return report, err
	}

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	prev, err := s.manifests.Load(config.ManifestPath)
	if err != nil {
		// The previous manifest is only an oracle; a broken one means a full comparison.
		s.logger.Warn("Ignoring unreadable previous manifest: %v", err)
		prev = nil
	}

	s.logger.Verbose("Discovering packages in %s", config.SourceRoot)
	discovered, err := s.discoverer.Discover(ctx, config.SourceRoot, skilldeploy.DiscoveryOptionsFor(config))
	if err != nil {
		return report, fmt.Errorf("discovery failed: %w", err)
	}
	report.Discovered = len(discovered.Packages)
	report.Errors = append(report.Errors, discovered.Errors...)
	for _, e := range discovered.Errors {
		s.logger.Error("%v", e)
	}

	selected, excluded, err := scanner.Select(discovered.Packages, config.Include, config.Exclude)
	if err != nil {
		return report, err
	}
	report.Selected = len(selected)
	s.logger.Verbose("Discovered %d package(s), %d selected", report.Discovered, report.Selected)

	transformer := naming.NewTransformer(config.Separator)
	namingErr := transformer.Assign(selected)
	// Excluded packages only feed the reference index.
	if err := transformer.Assign(excluded); err != nil {
		s.logger.Verbose("Excluded packages left out of the reference index: %v", err)
	}

	val, err := validator.New(s.fs, config)
	if err != nil {
		return report, err
	}
	pre, err := val.Preflight(selected, config.TargetRoot, namingErr)
	if err != nil {
		report.Errors = append(report.Errors, err)
		return report, err
	}

	r := &run{
		config:       config,
		prev:         prev,
		rewriter:     references.NewRewriter(references.NewIndex(discovered.Packages, selected, config.Separator, config.EcosystemDepth), s.classifier, config.FixReferences, config.PrimaryDocument, config.MetadataFile),
		materializer: materializer.New(s.fs, config.TargetRoot, config.MetadataFile, s.logger),
		validator:    val,
		metaWarnings: map[string][]skilldeploy.Warning{},
	}
	for _, w := range pre.Warnings {
		r.metaWarnings[w.Package] = append(r.metaWarnings[w.Package], w)
	}

	var jobs []*skilldeploy.Package
	var entries []skilldeploy.ManifestEntry
	for _, pkg := range selected {
		if reason, failed := pre.Failed[pkg.SourceKey()]; failed {
			entry := r.baseEntry(pkg)
			entry.Fingerprint = manifest.Fingerprint(s.calc, pkg)
			entry.Status = skilldeploy.StatusFailed
			entry.Error = reason.Error()
			entries = append(entries, entry)
			report.Errors = append(report.Errors, reason)
			s.logger.Error("✗ %s: %v", pkg.DeployedName, reason)
			continue
		}
		jobs = append(jobs, pkg)
	}

	if err := s.approveOverwrites(ctx, r, jobs); err != nil {
		return report, err
	}

	outcomes, cancelled := s.deployPackages(ctx, r, jobs)
	for _, o := range outcomes {
		entries = append(entries, o.entry)
		report.BytesWritten += o.bytes
		if o.err != nil {
			report.Errors = append(report.Errors, o.err)
		}
	}
	entries = append(entries, r.carryForward(excluded)...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].DeployedName < entries[j].DeployedName })

	next := manifest.New(config, s.runID(), s.now())
	next.Entries = entries
	next.Recount()
	next.Warnings = append(next.Warnings, discovered.Warnings...)
	next.Warnings = append(next.Warnings, staleWarnings(prev, next, excluded)...)
	next.Warnings = append(next.Warnings, s.unexpectedEntries(config, prev, next)...)
	report.Manifest = next
	report.Warnings = next.Warnings
	report.Cancelled = cancelled

	runErr := s.runError(ctx, report)

	if config.DryRun {
		s.logger.Info("Dry run: %d package(s) would be deployed, nothing written", next.Counts.Skipped)
		return report, runErr
	}

	if err := s.manifests.Save(config.ManifestPath, next); err != nil {
		report.Errors = append(report.Errors, err)
		return report, errors.Join(runErr, err)
	}
	report.ManifestWritten = true
	s.logger.Verbose("Manifest written to %s", config.ManifestPath)

	if runErr == nil {
		s.logger.Info("✓ Deployment completed successfully")
	}
	return report, runErr
}

// validateConfig applies defaults and validates the configuration.
func (s *DeploymentService) validateConfig(config skilldeploy.DeploymentConfig) (skilldeploy.DeploymentConfig, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid configuration: %w", err)
	}

	config.SourceRoot = filepath.Clean(config.SourceRoot)
	config.TargetRoot = filepath.Clean(config.TargetRoot)
	if config.Concurrency == 0 {
		config.Concurrency = runtime.NumCPU()
	}

	s.logger.Verbose("Starting %s deployment of %s to %s", config.Mode, config.SourceRoot, config.TargetRoot)
	return config, nil
}

// approveOverwrites asks for confirmation before a forced run replaces
// directories that the previous manifest does not account for.
func (s *DeploymentService) approveOverwrites(ctx context.Context, r *run, jobs []*skilldeploy.Package) error {
	if !r.config.Force || r.config.DryRun {
		return nil
	}

	var dirs []string
	for _, pkg := range jobs {
		if manifest.Owned(r.prev, pkg.DeployedName) {
			continue
		}
		if s.hasContent(r.materializer.Dir(pkg.DeployedName)) {
			dirs = append(dirs, pkg.DeployedName)
		}
	}
	if len(dirs) == 0 {
		return nil
	}

	s.logger.Verbose("%d existing director(ies) in %s would be replaced. Requesting approval.", len(dirs), r.config.TargetRoot)
	approved, err := s.approver.RequestApproval(ctx, r.config.TargetRoot, dirs)
	if err != nil {
		return fmt.Errorf("approval request failed: %w", err)
	}
	if !approved {
		return skilldeploy.ErrApprovalDenied
	}
	return nil
}

// deployPackages runs the per-package phase on a bounded pool. Outcomes are
// stored by index so workers never share writes. Packages not started before
// cancellation are recorded as skipped.
func (s *DeploymentService) deployPackages(ctx context.Context, r *run, jobs []*skilldeploy.Package) ([]packageOutcome, bool) {
	outcomes := make([]packageOutcome, len(jobs))
	for i, pkg := range jobs {
		outcomes[i] = packageOutcome{entry: r.cancelledEntry(s.calc, pkg)}
	}

	var g errgroup.Group
	g.SetLimit(r.config.Concurrency)
	for i, pkg := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = s.deployPackage(ctx, r, pkg)
			return nil
		})
	}
	_ = g.Wait()

	cancelled := false
	for _, o := range outcomes {
		if o.entry.Reason == skilldeploy.ReasonCancelled {
			cancelled = true
			break
		}
	}
	if cancelled {
		s.logger.Warn("Run cancelled: %v", context.Cause(ctx))
	}
	return outcomes, cancelled
}

// runError summarizes per-package problems into the run's error.
func (s *DeploymentService) runError(ctx context.Context, report *skilldeploy.RunReport) error {
	counts := report.Counts()
	switch {
	case report.Cancelled:
		return fmt.Errorf("%w: run cancelled after %d package(s): %w", skilldeploy.ErrPartialFailure, counts.Deployed, context.Cause(ctx))
	case counts.Failed > 0:
		return fmt.Errorf("%w: %d of %d package(s) failed", skilldeploy.ErrPartialFailure, counts.Failed, report.Selected)
	case len(report.Errors) > 0:
		return fmt.Errorf("%w: %d source entr(ies) could not be discovered", skilldeploy.ErrPartialFailure, len(report.Errors))
	}
	return nil
}

// carryForward keeps previous entries of excluded packages so a filtered run
// does not forget what an earlier run deployed.
func (r *run) carryForward(excluded []*skilldeploy.Package) []skilldeploy.ManifestEntry {
	var out []skilldeploy.ManifestEntry
	for _, pkg := range excluded {
		if pkg.DeployedName == "" || !manifest.Owned(r.prev, pkg.DeployedName) {
			continue
		}
		entry := *r.prev.Entry(pkg.DeployedName)
		entry.Status = skilldeploy.StatusSkipped
		entry.Reason = skilldeploy.ReasonExcluded
		entry.Error = ""
		entry.Warnings = nil
		out = append(out, entry)
	}
	return out
}

// staleWarnings reports previous entries the new manifest lacks. Excluded
// packages are filtered out of this run, not gone from the source.
func staleWarnings(prev, next *skilldeploy.Manifest, excluded []*skilldeploy.Package) []skilldeploy.Warning {
	filtered := make(map[string]bool, len(excluded))
	for _, pkg := range excluded {
		filtered[pkg.DeployedName] = true
	}
	var out []skilldeploy.Warning
	for _, w := range manifest.StaleWarnings(prev, next) {
		if !filtered[w.Package] {
			out = append(out, w)
		}
	}
	return out
}

// unexpectedEntries warns about target root entries neither manifest knows.
// Hidden entries and the manifest itself are ignored.
func (s *DeploymentService) unexpectedEntries(config skilldeploy.DeploymentConfig, prev, next *skilldeploy.Manifest) []skilldeploy.Warning {
	infos, err := s.fs.ReadDir(config.TargetRoot)
	if err != nil {
		return nil
	}
	var out []skilldeploy.Warning
	for _, info := range infos {
		name := info.Name()
		if strings.HasPrefix(name, ".") || filepath.Join(config.TargetRoot, name) == config.ManifestPath {
			continue
		}
		if prev.Entry(name) != nil || next.Entry(name) != nil {
			continue
		}
		out = append(out, skilldeploy.Warning{
			Code:    skilldeploy.WarnUnexpectedFile,
			Message: fmt.Sprintf("%s in %s is not managed by any manifest", name, config.TargetRoot),
		})
	}
	return out
}

func (s *DeploymentService) hasContent(dir string) bool {
	entries, err := s.fs.ReadDir(dir)
	return err == nil && len(entries) > 0
}
