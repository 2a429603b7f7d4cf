package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vvka-141/skilldeploy/internal/tui"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// ForcedApprover implements the Approver interface for forced (non-interactive)
// approval. It lists the directories about to be replaced, counts down and
// approves. Used when --force is given outside an interactive terminal.
type ForcedApprover struct {
	verbose bool
	output  io.Writer
	sleepFn func(time.Duration)

	// immediate skips the countdown (--yes)
	immediate bool
}

// NewForcedApprover creates a new ForcedApprover.
func NewForcedApprover(verbose bool) skilldeploy.Approver {
	return &ForcedApprover{verbose: verbose, output: os.Stderr, sleepFn: time.Sleep}
}

// NewImmediateApprover creates a ForcedApprover that still lists the
// directories but approves without a countdown.
func NewImmediateApprover(verbose bool) skilldeploy.Approver {
	return &ForcedApprover{verbose: verbose, output: os.Stderr, sleepFn: time.Sleep, immediate: true}
}

// RequestApproval displays a countdown and automatically approves after the countdown.
func (a *ForcedApprover) RequestApproval(ctx context.Context, target string, dirs []string) (bool, error) {
	fmt.Fprintln(a.output)
	fmt.Fprintln(a.output, tui.WarningStyle.Render(fmt.Sprintf("%s  DANGER: --force replaces %d existing director(ies) in %s", tui.SymbolWarning, len(dirs), target)))
	fmt.Fprintln(a.output, "These directories were not created by a previous skilldeploy run:")
	fmt.Fprintln(a.output, listDirs(dirs))

	countdownSeconds := int(skilldeploy.DefaultForceApprovalCountdown.Seconds())
	if a.immediate {
		countdownSeconds = 0
	}
	for i := countdownSeconds; i > 0; i-- {
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.output)
			return false, ctx.Err()
		default:
			fmt.Fprintf(a.output, "\rReplacing in: %d seconds... (Press Ctrl+C to cancel)", i)
			a.sleepFn(1 * time.Second)
		}
	}
	if err := ctx.Err(); err != nil {
		fmt.Fprintln(a.output)
		return false, err
	}

	fmt.Fprintf(a.output, "\r%s Proceeding with overwrite...                              \n", tui.SymbolCheck)
	return true, nil
}

func listDirs(dirs []string) string {
	var b strings.Builder
	for _, d := range dirs {
		fmt.Fprintf(&b, "  %s %s\n", tui.SymbolBullet, d)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Verify ForcedApprover implements the Approver interface at compile time
var _ skilldeploy.Approver = (*ForcedApprover)(nil)
