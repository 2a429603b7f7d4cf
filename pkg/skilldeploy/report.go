package skilldeploy

// RunReport is the explicit result object threaded through a deployment run.
// It is returned even when the run fails so callers can always print counts
// and warnings.
type RunReport struct {
	// Manifest is nil when the run stopped before the per-package phase
	Manifest *Manifest

	// Discovered is the number of packages found in the source tree
	Discovered int

	// Selected is the number of packages chosen for this run
	Selected int

	Warnings []Warning

	// Errors holds every non-fatal per-package error plus the fatal one, if any
	Errors []error

	// BytesWritten is the total size of artifacts written to the target
	BytesWritten int64

	// ManifestWritten reports whether the new manifest reached disk
	ManifestWritten bool

	DryRun    bool
	Cancelled bool
}

// Counts returns the manifest counts, or zero counts when there is no manifest.
func (r *RunReport) Counts() Counts {
	if r == nil || r.Manifest == nil {
		return Counts{}
	}
	return r.Manifest.Counts
}

// AllWarnings returns run-level warnings followed by every entry's warnings.
func (r *RunReport) AllWarnings() []Warning {
	if r == nil {
		return nil
	}
	out := append([]Warning(nil), r.Warnings...)
	if r.Manifest != nil {
		for _, e := range r.Manifest.Entries {
			out = append(out, e.Warnings...)
		}
	}
	return out
}
