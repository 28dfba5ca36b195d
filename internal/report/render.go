package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/passcan/passcan/internal/types"
)

type PrintOptions struct {
	NoColor bool
	// ShowSecrets prints matches verbatim instead of masked.
	ShowSecrets bool
	// Verbose lists skipped files under the summary.
	Verbose bool
}

var (
	sevCriticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	sevHighStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sevMedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	sevLowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	addedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	removedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// PrintTable renders findings as a bordered table followed by the summary.
func PrintTable(w io.Writer, snap Snapshot, opts PrintOptions) error {
	if len(snap.Findings) == 0 {
		fmt.Fprintln(w, "No secrets found ✅")
	} else {
		table := tablewriter.NewTable(w,
			tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
				Symbols: tw.NewSymbols(tw.StyleLight),
			})),
		)
		table.Header("SEVERITY", "RULE", "FILE", "LINE", "MATCH", "CONFIDENCE")
		for _, f := range snap.Findings {
			row := []string{
				severity(f.Severity, opts.NoColor),
				f.RuleID,
				f.Path,
				strconv.Itoa(f.Line) + ":" + strconv.Itoa(f.Column),
				display(f.Match, opts),
				strconv.FormatFloat(f.Confidence, 'f', 2, 64),
			}
			if err := table.Append(row); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	printSummary(w, snap, opts)
	return nil
}

// PrintText renders one finding per line, for narrow terminals and logs.
func PrintText(w io.Writer, snap Snapshot, opts PrintOptions) {
	if len(snap.Findings) == 0 {
		fmt.Fprintln(w, "No secrets found ✅")
	} else {
		maxRule := 8
		for _, f := range snap.Findings {
			if l := len(f.RuleID); l > maxRule {
				maxRule = l
			}
		}
		fmt.Fprintf(w, "Findings: %d\n", len(snap.Findings))
		for _, f := range snap.Findings {
			fmt.Fprintf(w, "%-8s %-*s %s:%d:%d  %s\n",
				severity(f.Severity, opts.NoColor), maxRule, f.RuleID, f.Path, f.Line, f.Column, display(f.Match, opts))
		}
	}
	printSummary(w, snap, opts)
}

// PrintDelta renders the outcome of one incremental flush.
func PrintDelta(w io.Writer, d Delta, opts PrintOptions) {
	stamp := d.At.Format(time.TimeOnly)
	if d.Empty() {
		line := fmt.Sprintf("[%s] re-scanned %d path(s), no change", stamp, len(d.Paths))
		if !opts.NoColor {
			line = dimStyle.Render(line)
		}
		fmt.Fprintln(w, line)
		return
	}
	fmt.Fprintf(w, "[%s] re-scanned %d path(s): +%d -%d\n", stamp, len(d.Paths), len(d.Added), len(d.Removed))
	for _, f := range d.Added {
		mark := "+"
		if !opts.NoColor {
			mark = addedStyle.Render(mark)
		}
		fmt.Fprintf(w, "  %s %s %s %s:%d  %s\n", mark, severity(f.Severity, opts.NoColor), f.RuleID, f.Path, f.Line, display(f.Match, opts))
	}
	for _, f := range d.Removed {
		mark := "-"
		if !opts.NoColor {
			mark = removedStyle.Render(mark)
		}
		fmt.Fprintf(w, "  %s %s %s:%d\n", mark, f.RuleID, f.Path, f.Line)
	}
}

func printSummary(w io.Writer, snap Snapshot, opts PrintOptions) {
	counts := snap.CountBySeverity()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Findings: %d (critical: %d, high: %d, medium: %d, low: %d)\n",
		len(snap.Findings), counts[types.SevCritical], counts[types.SevHigh], counts[types.SevMed], counts[types.SevLow])
	fmt.Fprintf(w, "Files with secrets: %d\n", snap.FilesWithFindings())
	fmt.Fprintf(w, "Files scanned: %d\n", snap.FilesScanned)
	if len(snap.Skipped) > 0 {
		fmt.Fprintf(w, "Files skipped: %d\n", len(snap.Skipped))
		if opts.Verbose {
			for _, s := range snap.Skipped {
				fmt.Fprintf(w, "  - %s\n", s)
			}
		}
	}
	if snap.Duration > 0 {
		fmt.Fprintf(w, "Scan duration: %.2fs\n", snap.Duration.Seconds())
	}
}

func display(match string, opts PrintOptions) string {
	if opts.ShowSecrets {
		return match
	}
	return Mask(match)
}

// Mask hides all but the first and last four characters of s.
func Mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "…" + s[len(s)-4:]
}

func severity(s types.Severity, noColor bool) string {
	if noColor {
		return string(s)
	}
	return severityStyle(s).Render(string(s))
}

func severityStyle(s types.Severity) lipgloss.Style {
	switch s {
	case types.SevCritical:
		return sevCriticalStyle
	case types.SevHigh:
		return sevHighStyle
	case types.SevMed:
		return sevMedStyle
	default:
		return sevLowStyle
	}
}
