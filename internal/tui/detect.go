package tui

import (
	"os"

	"golang.org/x/term"
)

// EnvNonInteractive disables prompts when set to "1".
const EnvNonInteractive = "SKILLDEPLOY_NON_INTERACTIVE"

// IsInteractive reports whether a human can answer an overwrite prompt.
// Pipelines are detected through SKILLDEPLOY_NON_INTERACTIVE=1, CI, NO_COLOR
// and stdin or stdout not being a terminal.
func IsInteractive() bool {
	return interactive(os.Getenv, term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())))
}

func interactive(getenv func(string) string, terminal bool) bool {
	if getenv(EnvNonInteractive) == "1" || getenv("CI") != "" || getenv("NO_COLOR") != "" {
		return false
	}
	return terminal
}

// UseColor reports whether styled output should be written to f.
func UseColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
