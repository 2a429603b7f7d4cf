package skilldeploy

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// Mode selects between full and incremental deployment.
type Mode string

const (
	// ModeFull rewrites every package regardless of the previous manifest.
	ModeFull Mode = "full"
	// ModeIncremental skips packages whose fingerprint matches the previous manifest.
	ModeIncremental Mode = "incremental"
)

// DeploymentConfig contains all parameters needed for a deployment run.
type DeploymentConfig struct {
	// SourceRoot is the root of the hierarchical package tree
	SourceRoot string

	// TargetRoot is the flat deployment directory
	TargetRoot string

	// ManifestPath is where the manifest is read from and written to.
	// Defaults to TargetRoot/DefaultManifestName.
	ManifestPath string

	Mode Mode

	// DryRun validates and plans without writing anything
	DryRun bool

	// Force overwrites non-empty package directories in the target
	Force bool

	// FixReferences enables the reference rewriter. Without it references are
	// left untouched and hard ones are flagged.
	FixReferences bool

	// Concurrency bounds the per-package worker pool
	Concurrency int

	// Include and Exclude are doublestar patterns over slash-joined source paths
	// selecting which discovered packages are deployed in this run.
	Include []string
	Exclude []string

	// Separator joins source path segments into deployed names
	Separator rune

	PrimaryDocument string
	MetadataFile    string
	AuxiliaryDirs   []string

	// TransientPatterns extend DefaultTransientPatterns
	TransientPatterns []string

	// EcosystemDepth is the number of leading source path segments that define an
	// ecosystem. Hard references across ecosystems are treated as optional.
	// Zero disables the check.
	EcosystemDepth int

	// Timeout bounds the whole run
	Timeout time.Duration

	Verbose bool
}

// ApplyDefaults fills unset fields with their defaults.
func (c *DeploymentConfig) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeFull
	}
	if c.Separator == 0 {
		c.Separator = DefaultSeparator
	}
	if c.PrimaryDocument == "" {
		c.PrimaryDocument = DefaultPrimaryDocument
	}
	if c.MetadataFile == "" {
		c.MetadataFile = DefaultMetadataFile
	}
	if c.AuxiliaryDirs == nil {
		c.AuxiliaryDirs = append([]string(nil), DefaultAuxiliaryDirs...)
	}
	if c.ManifestPath == "" && c.TargetRoot != "" {
		c.ManifestPath = filepath.Join(c.TargetRoot, DefaultManifestName)
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks if the DeploymentConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *DeploymentConfig) Validate() error {
	var errs []error

	if c.SourceRoot == "" {
		errs = append(errs, fmt.Errorf("SourceRoot is required: %w", ErrInvalidConfig))
	}

	if c.TargetRoot == "" {
		errs = append(errs, fmt.Errorf("TargetRoot is required: %w", ErrInvalidConfig))
	}

	if c.Mode != ModeFull && c.Mode != ModeIncremental {
		errs = append(errs, fmt.Errorf("mode must be %q or %q, got %q: %w", ModeFull, ModeIncremental, c.Mode, ErrInvalidConfig))
	}

	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Separator == '/' || c.Separator == '\\' || c.Separator == utf8.RuneError {
		errs = append(errs, fmt.Errorf("separator %q is not allowed: %w", string(c.Separator), ErrInvalidConfig))
	}

	if strings.ContainsAny(c.PrimaryDocument, `/\`) {
		errs = append(errs, fmt.Errorf("primary document must be a file name, got %q: %w", c.PrimaryDocument, ErrInvalidConfig))
	}

	if c.EcosystemDepth < 0 {
		errs = append(errs, fmt.Errorf("ecosystem depth cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// Artifact is one file belonging to a package.
type Artifact struct {
	// RelativePath is slash-separated and relative to the package directory:
	// "SKILL.md", "references/patterns.md"
	RelativePath string

	// SourcePath is the absolute path of the file in the source tree
	SourcePath string

	Content []byte
	Size    int64
}

// Package is one deployable unit rooted at a directory containing a primary document.
type Package struct {
	// SourcePath holds the segments from the source root, e.g.
	// ["toolchains", "python", "frameworks", "django"]
	SourcePath []string

	// Dir is the absolute source directory
	Dir string

	PrimaryDocument Artifact

	// MetadataFile is nil when the package has no sibling metadata file
	MetadataFile *Artifact

	// Metadata is the merged view: sibling file keys win over the embedded header
	Metadata map[string]any

	// AuxiliaryArtifacts are sorted by RelativePath
	AuxiliaryArtifacts []Artifact

	// DeployedName is assigned by the name transformer
	DeployedName string
}

// SourceKey returns the slash-joined source path.
func (p *Package) SourceKey() string {
	return strings.Join(p.SourcePath, "/")
}

// Artifacts returns every artifact of the package: primary document, metadata file
// (if present) and auxiliary artifacts, in that order.
func (p *Package) Artifacts() []Artifact {
	out := make([]Artifact, 0, 2+len(p.AuxiliaryArtifacts))
	out = append(out, p.PrimaryDocument)
	if p.MetadataFile != nil {
		out = append(out, *p.MetadataFile)
	}
	return append(out, p.AuxiliaryArtifacts...)
}

// RefKind classifies how much an artifact depends on a reference resolving.
type RefKind int

const (
	// RefSoft is an informational mention.
	RefSoft RefKind = iota
	// RefHard is a link or dependency whose resolution is required for correctness.
	RefHard
)

func (k RefKind) String() string {
	switch k {
	case RefSoft:
		return "soft"
	case RefHard:
		return "hard"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// RefForm is the syntactic shape a reference was found in.
type RefForm int

const (
	FormProse      RefForm = iota // plain text path mention
	FormLink                      // markdown inline link or image target
	FormDefinition                // markdown reference definition target
	FormDependency                // machine-readable dependency list entry
)

func (f RefForm) String() string {
	switch f {
	case FormProse:
		return "prose"
	case FormLink:
		return "link"
	case FormDefinition:
		return "definition"
	case FormDependency:
		return "dependency"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// Resolution records what the rewriter did with a reference.
type Resolution int

const (
	ResolutionRewritten   Resolution = iota // path replaced by its flat equivalent
	ResolutionConditional                   // name-only mention annotated "if deployed"
	ResolutionDangling                      // target missing, name-only mention
	ResolutionMention                       // soft reference downgraded to a name
	ResolutionFlagged                       // rewriting disabled, left untouched
)

func (r Resolution) String() string {
	switch r {
	case ResolutionRewritten:
		return "rewritten"
	case ResolutionConditional:
		return "conditional"
	case ResolutionDangling:
		return "dangling"
	case ResolutionMention:
		return "mention"
	case ResolutionFlagged:
		return "flagged"
	default:
		return fmt.Sprintf("Unknown(%d)", int(r))
	}
}

// Reference is a detected mention of another package inside an artifact.
type Reference struct {
	SourcePackage string // deployed name of the package holding the artifact
	Artifact      string // artifact relative path
	Line          int    // 1-based
	Offset        int    // byte offset within the artifact

	Kind       RefKind
	Form       RefForm
	Expression string // the path expression as written

	// Target is the deployed name of the referenced package. For dangling
	// references it is the name the path would have had.
	Target string

	Resolution Resolution
}

// Warning codes recorded in the manifest and the run report.
const (
	WarnDanglingHardReference = "DanglingHardReference"
	WarnConditionalReference  = "ConditionalReference"
	WarnUnrewrittenReference  = "UnrewrittenReference"
	WarnMetadata              = "Metadata"
	WarnStaleEntry            = "StaleEntry"
	WarnUnexpectedFile        = "UnexpectedFile"
)

// Warning is a non-fatal problem surfaced in the final report.
type Warning struct {
	Code    string `json:"code"`
	Package string `json:"package,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Package == "" {
		return fmt.Sprintf("%s: %s", w.Code, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Code, w.Package, w.Message)
}
