package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/vvka-141/skilldeploy/internal/manifest"
	"github.com/vvka-141/skilldeploy/internal/metadata"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// Printer renders reports, package listings and manifests for humans.
// Without color every style is dropped so output stays greppable.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

func (p *Printer) paint(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p *Printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

// Report prints deployed/skipped/failed counts, every failed package and
// every warning. It is always safe to call, even with a nil report.
func (p *Printer) Report(r *skilldeploy.RunReport, manifestPath string) {
	counts := r.Counts()

	title := "Deployment summary"
	if r != nil && r.DryRun {
		title += " (dry run)"
	}
	if r != nil && r.Cancelled {
		title += " (cancelled)"
	}

	var lines []string
	lines = append(lines, p.paint(TitleStyle, title))
	lines = append(lines, fmt.Sprintf("%s deployed  %d", p.paint(SuccessStyle, SymbolCheck), counts.Deployed))
	lines = append(lines, fmt.Sprintf("%s skipped   %d", p.paint(MutedStyle, SymbolSkip), counts.Skipped))
	lines = append(lines, fmt.Sprintf("%s failed    %d", p.paint(ErrorStyle, SymbolCross), counts.Failed))
	if r != nil {
		lines = append(lines, p.paint(DescriptionStyle, fmt.Sprintf("discovered %d, selected %d, written %s",
			r.Discovered, r.Selected, humanize.Bytes(uint64(r.BytesWritten)))))
		if r.ManifestWritten && manifestPath != "" {
			lines = append(lines, p.paint(DescriptionStyle, "manifest "+manifestPath))
		}
	}

	summary := strings.Join(lines, "\n")
	if p.color {
		summary = BoxStyle.Render(summary)
	}
	p.printf("%s\n", summary)

	if r == nil {
		return
	}

	if r.Manifest != nil {
		for _, e := range r.Manifest.Entries {
			if e.Status == skilldeploy.StatusFailed {
				p.printf("%s %s: %s\n", p.paint(ErrorStyle, SymbolCross), p.paint(NameStyle, e.DeployedName), e.Error)
			}
		}
	}

	warnings := r.AllWarnings()
	if len(warnings) > 0 {
		p.printf("\n%s\n", p.paint(WarningStyle, fmt.Sprintf("Warnings (%d)", len(warnings))))
		for _, w := range warnings {
			p.printf("  %s %s\n", p.paint(WarningStyle, SymbolWarning), w)
		}
	}
}

// Packages lists discovered packages with their deployed names and categories.
func (p *Printer) Packages(pkgs []*skilldeploy.Package) {
	width := 0
	for _, pkg := range pkgs {
		if n := len(pkg.DeployedName); n > width {
			width = n
		}
	}
	for _, pkg := range pkgs {
		class := metadata.Classify(pkg.SourcePath)
		name := fmt.Sprintf("%-*s", width, pkg.DeployedName)
		p.printf("%s  %s %s  %s\n",
			p.paint(NameStyle, name),
			SymbolArrowRight,
			pkg.SourceKey(),
			p.paint(DescriptionStyle, class.Category))
	}
	p.printf("%s\n", p.paint(SubtitleStyle, fmt.Sprintf("%d package(s)", len(pkgs))))
}

// Manifest prints a manifest as a status table.
func (p *Printer) Manifest(m *skilldeploy.Manifest) {
	p.printf("%s\n", p.paint(TitleStyle, "Manifest "+m.RunID))
	p.printf("%s\n", p.paint(SubtitleStyle, fmt.Sprintf("%s %s %s, %s, generated %s",
		m.SourceRoot, SymbolArrowRight, m.TargetRoot, m.Mode, humanize.Time(m.GeneratedAt))))

	width, warnings := 0, len(m.Warnings)
	for _, e := range m.Entries {
		if n := len(e.DeployedName); n > width {
			width = n
		}
		warnings += len(e.Warnings)
	}
	for _, e := range m.Entries {
		status := string(e.Status)
		if e.Reason != "" {
			status += " (" + e.Reason + ")"
		}
		p.printf("  %s %s  %s\n", p.statusSymbol(e.Status), fmt.Sprintf("%-*s", width, e.DeployedName), p.paint(DescriptionStyle, status))
	}
	p.printf("%s\n", p.paint(SubtitleStyle, fmt.Sprintf("%d deployed, %d skipped, %d failed, %d warning(s)",
		m.Counts.Deployed, m.Counts.Skipped, m.Counts.Failed, warnings)))
}

// Diff prints the differences between two manifests.
func (p *Printer) Diff(d manifest.Diff) {
	if d.Empty() {
		p.printf("%s\n", p.paint(SuccessStyle, SymbolCheck+" manifests are equivalent"))
		return
	}
	for _, name := range d.Added {
		p.printf("%s %s\n", p.paint(SuccessStyle, "+"), name)
	}
	for _, name := range d.Removed {
		p.printf("%s %s\n", p.paint(ErrorStyle, "-"), name)
	}
	for _, name := range d.Changed {
		p.printf("%s %s\n", p.paint(WarningStyle, "~"), name)
	}
}

func (p *Printer) statusSymbol(s skilldeploy.EntryStatus) string {
	switch s {
	case skilldeploy.StatusDeployed:
		return p.paint(SuccessStyle, SymbolCheck)
	case skilldeploy.StatusFailed:
		return p.paint(ErrorStyle, SymbolCross)
	default:
		return p.paint(MutedStyle, SymbolSkip)
	}
}
