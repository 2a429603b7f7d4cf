package skilldeploy

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess          = 0  // Deployment completed successfully
	ExitGeneralError     = 1  // Unknown or unclassified error
	ExitUsageError       = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic            = 3  // Internal panic (unexpected crash)
	ExitConfigError      = 10 // Invalid configuration
	ExitApprovalDenied   = 12 // User denied overwrite approval
	ExitValidationFailed = 20 // Pre-flight validation failed, nothing written
	ExitPartialFailure   = 21 // Some packages failed, others were deployed
	ExitManifestFailed   = 22 // Packages written but the manifest could not be recorded
)

const (
	// DefaultPrimaryDocument is the file whose presence makes a directory a package.
	DefaultPrimaryDocument = "SKILL.md"

	// DefaultMetadataFile is the optional sibling structured metadata file.
	DefaultMetadataFile = "metadata.json"

	// DefaultSeparator joins source path segments into a deployed name.
	DefaultSeparator = '-'

	// DefaultManifestName is the manifest file name inside the target root.
	DefaultManifestName = ".skilldeploy-manifest.json"

	// DefaultTimeout bounds a whole deployment run.
	DefaultTimeout = 10 * time.Minute

	// DefaultForceApprovalCountdown is the countdown shown before a forced overwrite
	// proceeds without confirmation.
	DefaultForceApprovalCountdown = 3 * time.Second

	// ManifestSchemaVersion is written into every manifest.
	ManifestSchemaVersion = "1"
)

// DefaultAuxiliaryDirs are the well-known subdirectories holding auxiliary artifacts.
var DefaultAuxiliaryDirs = []string{"references", "examples"}

// DefaultTransientPatterns are doublestar globs for cache and OS metadata files
// that are never part of a package's deployable content.
var DefaultTransientPatterns = []string{
	"**/.DS_Store",
	"**/Thumbs.db",
	"**/desktop.ini",
	"**/__pycache__/**",
	"**/*.pyc",
	"**/*.pyo",
	"**/.pytest_cache/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.git/**",
}
