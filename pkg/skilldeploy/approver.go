package skilldeploy

import "context"

// Approver handles user interaction for approval workflows,
// particularly for overwriting package directories that a previous run did not create.
//
// Implementations:
//   - ForcedApprover: Shows countdown and automatically approves
//   - InteractiveApprover: Prompts user to type the target root for confirmation
type Approver interface {
	// RequestApproval prompts for confirmation before replacing directories in the target.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - target: Target root holding the directories
	//   - dirs: Deployed names whose existing directories would be replaced
	//
	// Returns:
	//   - bool: true if approved, false if denied
	//   - error: Any error that occurred during the approval process
	RequestApproval(ctx context.Context, target string, dirs []string) (bool, error)
}
