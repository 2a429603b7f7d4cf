package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/vvka-141/skilldeploy/internal/checksum"
	"github.com/vvka-141/skilldeploy/internal/manifest"
	"github.com/vvka-141/skilldeploy/internal/materializer"
	"github.com/vvka-141/skilldeploy/internal/metadata"
	"github.com/vvka-141/skilldeploy/internal/references"
	"github.com/vvka-141/skilldeploy/internal/validator"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// packageOutcome is the result of the per-package phase for one package.
type packageOutcome struct {
	entry skilldeploy.ManifestEntry
	bytes int64
	err   error
}

// deployPackage rewrites, fingerprints, materializes and verifies one package.
func (s *DeploymentService) deployPackage(ctx context.Context, r *run, pkg *skilldeploy.Package) packageOutcome {
	entry := r.baseEntry(pkg)
	fail := func(err error) packageOutcome {
		entry.Status = skilldeploy.StatusFailed
		entry.Error = err.Error()
		s.logger.Error("✗ %s: %v", pkg.DeployedName, err)
		return packageOutcome{entry: entry, err: err}
	}

	rewritten, err := r.rewriter.Rewrite(pkg)
	if err != nil {
		return fail(fmt.Errorf("failed to rewrite references: %w", err))
	}
	entry.Fingerprint = manifest.Fingerprint(s.calc, pkg)
	entry.RewriteDigest = rewriteDigest(s.calc, rewritten.References)
	entry.HadReferenceRewrites = rewritten.HadRewrites()
	entry.Warnings = append(entry.Warnings, rewritten.Warnings...)

	dir := r.materializer.Dir(pkg.DeployedName)
	if r.config.Mode == skilldeploy.ModeIncremental {
		present := s.exists(filepath.Join(dir, r.config.PrimaryDocument))
		if manifest.Unchanged(r.prev.Entry(pkg.DeployedName), entry.Fingerprint, entry.RewriteDigest, present) {
			entry.Status = skilldeploy.StatusSkipped
			entry.Reason = skilldeploy.ReasonUnchanged
			s.logger.Verbose("%s unchanged, skipping", pkg.DeployedName)
			return packageOutcome{entry: entry}
		}
	}

	if r.config.DryRun {
		entry.Status = skilldeploy.StatusSkipped
		entry.Reason = skilldeploy.ReasonDryRun
		s.logger.Verbose("Would deploy %s to %s", pkg.SourceKey(), dir)
		return packageOutcome{entry: entry}
	}

	out, err := r.materializer.Materialize(ctx, materializer.Request{
		DeployedName: pkg.DeployedName,
		Artifacts:    rewritten.Artifacts(),
		Metadata:     rewritten.Metadata,
		Overwrite:    r.config.Force || manifest.Owned(r.prev, pkg.DeployedName),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return packageOutcome{entry: r.cancelledEntry(s.calc, pkg)}
		}
		return fail(err)
	}
	entry.Artifacts = out.Files

	if err := r.validator.Postflight(out.Dir, validator.Expectation{
		Files:      out.Files,
		Unmodified: unmodified(rewritten),
	}); err != nil {
		if rmErr := s.fs.RemoveAll(out.Dir); rmErr != nil {
			s.logger.Warn("Failed to remove %s after post-flight failure: %v", out.Dir, rmErr)
		}
		return fail(fmt.Errorf("post-flight check failed: %w", err))
	}

	entry.Status = skilldeploy.StatusDeployed
	s.logger.Verbose("✓ %s → %s (%d files)", pkg.SourceKey(), pkg.DeployedName, len(out.Files))
	return packageOutcome{entry: entry, bytes: out.BytesWritten}
}

// baseEntry fills the descriptive fields of a package's manifest entry.
func (r *run) baseEntry(pkg *skilldeploy.Package) skilldeploy.ManifestEntry {
	class := metadata.Classify(pkg.SourcePath)
	return skilldeploy.ManifestEntry{
		DeployedName: pkg.DeployedName,
		SourcePath:   pkg.SourceKey(),
		Name:         metadata.String(pkg.Metadata, "name"),
		Version:      metadata.String(pkg.Metadata, "version"),
		Category:     class.Category,
		Toolchain:    class.Toolchain,
		Artifacts:    plannedArtifacts(pkg, r.config.MetadataFile),
		Warnings:     append([]skilldeploy.Warning(nil), r.metaWarnings[pkg.DeployedName]...),
	}
}

// cancelledEntry records a package that never started. A previously deployed
// package keeps its prior fingerprint so the next incremental run still sees
// the target as it is.
func (r *run) cancelledEntry(calc checksum.Calculator, pkg *skilldeploy.Package) skilldeploy.ManifestEntry {
	entry := r.baseEntry(pkg)
	entry.Status = skilldeploy.StatusSkipped
	entry.Reason = skilldeploy.ReasonCancelled
	if manifest.Owned(r.prev, pkg.DeployedName) {
		prev := r.prev.Entry(pkg.DeployedName)
		entry.Fingerprint = prev.Fingerprint
		entry.RewriteDigest = prev.RewriteDigest
		entry.HadReferenceRewrites = prev.HadReferenceRewrites
		entry.Artifacts = prev.Artifacts
		return entry
	}
	entry.Fingerprint = manifest.Fingerprint(calc, pkg)
	return entry
}

// plannedArtifacts lists the relative paths a package materializes to.
func plannedArtifacts(pkg *skilldeploy.Package, metadataFile string) []string {
	seen := map[string]bool{metadataFile: true}
	out := []string{metadataFile}
	for _, a := range pkg.Artifacts() {
		if !seen[a.RelativePath] {
			seen[a.RelativePath] = true
			out = append(out, a.RelativePath)
		}
	}
	sort.Strings(out)
	return out
}

// rewriteDigest summarizes how each reference was resolved. It changes when a
// referenced package appears, disappears or changes deployment status even if
// the package's own content does not.
func rewriteDigest(calc checksum.Calculator, refs []skilldeploy.Reference) string {
	if len(refs) == 0 {
		return ""
	}
	parts := make([]string, len(refs))
	for i, ref := range refs {
		parts[i] = fmt.Sprintf("%s:%d:%s:%s:%s", ref.Artifact, ref.Line, ref.Form, ref.Resolution, ref.Target)
	}
	sort.Strings(parts)
	return calc.Digest(parts...)
}

// unmodified maps the relative paths of artifacts written byte-for-byte to
// their content.
func unmodified(res references.Result) map[string][]byte {
	out := map[string][]byte{}
	for _, a := range res.Artifacts() {
		if !res.Modified[a.RelativePath] {
			out[a.RelativePath] = a.Content
		}
	}
	return out
}

func (s *DeploymentService) exists(path string) bool {
	_, err := s.fs.Stat(path)
	return err == nil
}
