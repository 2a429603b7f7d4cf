package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// InteractiveApprover implements the Approver interface for console-based
// interactive confirmation. It prompts the user to type the target directory
// name to confirm replacing directories it did not create.
type InteractiveApprover struct {
	verbose bool
	input   io.Reader
	output  io.Writer
}

// NewInteractiveApprover creates a new InteractiveApprover.
func NewInteractiveApprover(verbose bool) skilldeploy.Approver {
	return &InteractiveApprover{verbose: verbose, input: os.Stdin, output: os.Stderr}
}

// RequestApproval prompts the user to type the base name of the target root.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, target string, dirs []string) (bool, error) {
	expected := filepath.Base(target)

	fmt.Fprintf(a.output, "\n⚠️  WARNING: You are about to REPLACE %d director(ies) in '%s'\n", len(dirs), target)
	fmt.Fprintln(a.output, listDirs(dirs))
	fmt.Fprintln(a.output, "Their current content will be permanently deleted!")
	fmt.Fprintf(a.output, "\nTo confirm, type '%s' and press Enter: ", expected)

	// Read user input with context cancellation support
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(a.input)
		input, err := reader.ReadString('\n')
		if err != nil {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(input)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		if input == expected {
			fmt.Fprintln(a.output, "✓ Confirmed. Proceeding with overwrite...")
			return true, nil
		}
		fmt.Fprintf(a.output, "✗ Input '%s' does not match '%s'. Operation cancelled.\n", input, expected)
		return false, nil
	}
}

// Verify InteractiveApprover implements the Approver interface at compile time
var _ skilldeploy.Approver = (*InteractiveApprover)(nil)
