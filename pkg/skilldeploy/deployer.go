package skilldeploy

import "context"

// Deployer is the main interface for executing skill deployments.
// Implementations handle the full workflow: discovery, validation, naming,
// reference rewriting, materialization and manifest writing.
type Deployer interface {
	// Deploy executes a deployment using the provided configuration.
	// The report is non-nil whenever discovery started, even on error.
	Deploy(ctx context.Context, config DeploymentConfig) (*RunReport, error)
}
