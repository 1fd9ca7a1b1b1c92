// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle output formatting but delegate
// business logic to services.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/example/ecoprog/internal/ports/primary"
)

const rule = "────────────────────────────────────────────────────────────────"

// statusLabel colors an evidence or signal status.
func statusLabel(status string) string {
	switch status {
	case "approved", "succeeded":
		return color.New(color.FgGreen).Sprint(status)
	case "pending", "leased":
		return color.New(color.FgYellow).Sprint(status)
	case "rejected", "dead":
		return color.New(color.FgRed).Sprint(status)
	default:
		return status
	}
}

// checkMark renders a completion flag.
func checkMark(done bool) string {
	if done {
		return color.New(color.FgGreen).Sprint("✓")
	}
	return color.New(color.FgHiBlack).Sprint("·")
}

// progressBar renders a ten-cell bar for a percentage.
func progressBar(pct int) string {
	filled := pct / 10
	if filled > 10 {
		filled = 10
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", 10-filled) + "]"
}

// spaces pads a colored cell, since escape codes defeat %-Ns widths.
func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printProgression writes the progression summary and stage breakdown.
func printProgression(out io.Writer, p *primary.Progression) {
	fmt.Fprintf(out, "\nSchool:   %s (round %d)\n", p.SchoolID, p.Round)
	fmt.Fprintf(out, "Progress: %s %d%%\n", progressBar(p.ProgressPercentage), p.ProgressPercentage)
	fmt.Fprintf(out, "Current:  %s\n", p.CurrentStage)
	fmt.Fprintf(out, "Awards:   %d rounds completed", p.RoundsCompleted)
	if p.AwardCompleted {
		fmt.Fprintf(out, " %s", color.New(color.FgHiGreen).Sprint("[award complete]"))
	}
	fmt.Fprintln(out)

	if len(p.Stages) > 0 {
		fmt.Fprintln(out, rule)
		for _, s := range p.Stages {
			fmt.Fprintf(out, "%s %-12s %d required", checkMark(s.Complete), s.Stage, s.Required)
			if len(s.SatisfiedByEvidence) > 0 {
				fmt.Fprintf(out, "  evidence: %s", strings.Join(s.SatisfiedByEvidence, ", "))
			}
			if len(s.SatisfiedByOverride) > 0 {
				fmt.Fprintf(out, "  override: %s", strings.Join(s.SatisfiedByOverride, ", "))
			}
			if len(s.Missing) > 0 {
				fmt.Fprintf(out, "  %s", color.New(color.FgYellow).Sprintf("missing: %s", strings.Join(s.Missing, ", ")))
			}
			fmt.Fprintln(out)
		}
	}
	if p.UpdatedAt != "" {
		fmt.Fprintf(out, "Updated:  %s\n", p.UpdatedAt)
	}
	fmt.Fprintln(out)
}
