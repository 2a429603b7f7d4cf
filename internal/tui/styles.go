package tui

import "github.com/charmbracelet/lipgloss"

// 256-color palette shared by the report and the approvers.
var (
	colorAccent  = lipgloss.Color("39")
	colorSubtle  = lipgloss.Color("245")
	colorDeploy  = lipgloss.Color("34")
	colorWarn    = lipgloss.Color("214")
	colorFail    = lipgloss.Color("196")
	colorSkipped = lipgloss.Color("240")
)

var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	SubtitleStyle = lipgloss.NewStyle().Foreground(colorSubtle)

	// BoxStyle frames the deployment summary.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(0, 2)

	// NameStyle renders deployed names; DescriptionStyle the text beside them.
	NameStyle        = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	DescriptionStyle = lipgloss.NewStyle().Foreground(colorSkipped)

	SuccessStyle = lipgloss.NewStyle().Foreground(colorDeploy)
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorFail)
	WarningStyle = lipgloss.NewStyle().Foreground(colorWarn)
	MutedStyle   = lipgloss.NewStyle().Foreground(colorSkipped)
)

// Status symbols.
const (
	SymbolCheck      = "✓"
	SymbolCross      = "✗"
	SymbolSkip       = "↷"
	SymbolWarning    = "⚠"
	SymbolArrowRight = "→"
	SymbolBullet     = "•"
)
