package skilldeploy

import "time"

// EntryStatus is the outcome of one package in a run.
type EntryStatus string

const (
	StatusDeployed EntryStatus = "deployed"
	StatusSkipped  EntryStatus = "skipped"
	StatusFailed   EntryStatus = "failed"
)

// Skip reasons recorded in ManifestEntry.Reason.
const (
	ReasonUnchanged = "unchanged"
	ReasonCancelled = "cancelled"
	ReasonDryRun    = "dry-run"
	ReasonExcluded  = "excluded"
)

// Manifest is the record of one deployment run.
// Field order is fixed so that encoded manifests diff cleanly across runs.
type Manifest struct {
	SchemaVersion string          `json:"schemaVersion"`
	RunID         string          `json:"runId"`
	GeneratedAt   time.Time       `json:"generatedAt"`
	SourceRoot    string          `json:"sourceRoot"`
	TargetRoot    string          `json:"targetRoot"`
	Mode          Mode            `json:"mode"`
	Counts        Counts          `json:"counts"`
	Entries       []ManifestEntry `json:"entries"`
	Warnings      []Warning       `json:"warnings,omitempty"`
}

// Counts summarizes entry statuses.
type Counts struct {
	Deployed int `json:"deployed"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// ManifestEntry records one package.
type ManifestEntry struct {
	DeployedName         string      `json:"deployedName"`
	SourcePath           string      `json:"sourcePath"`
	Name                 string      `json:"name,omitempty"`
	Version              string      `json:"version,omitempty"`
	Category             string      `json:"category"`
	Toolchain            string      `json:"toolchain,omitempty"`
	Artifacts            []string    `json:"artifacts"`
	Fingerprint          string      `json:"fingerprint"`
	RewriteDigest        string      `json:"rewriteDigest,omitempty"`
	HadReferenceRewrites bool        `json:"hadReferenceRewrites"`
	Status               EntryStatus `json:"status"`
	Reason               string      `json:"reason,omitempty"`
	Error                string      `json:"error,omitempty"`
	Warnings             []Warning   `json:"warnings,omitempty"`
}

// Entry returns the entry for a deployed name, or nil.
func (m *Manifest) Entry(deployedName string) *ManifestEntry {
	if m == nil {
		return nil
	}
	for i := range m.Entries {
		if m.Entries[i].DeployedName == deployedName {
			return &m.Entries[i]
		}
	}
	return nil
}

// Recount recomputes Counts from the entries.
func (m *Manifest) Recount() {
	var c Counts
	for _, e := range m.Entries {
		switch e.Status {
		case StatusDeployed:
			c.Deployed++
		case StatusSkipped:
			c.Skipped++
		case StatusFailed:
			c.Failed++
		}
	}
	m.Counts = c
}
