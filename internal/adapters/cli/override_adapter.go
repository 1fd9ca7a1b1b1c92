package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/example/ecoprog/internal/ports/primary"
)

// OverrideAdapter translates CLI operations to OverrideService calls.
type OverrideAdapter struct {
	service primary.OverrideService
	out     io.Writer
}

// NewOverrideAdapter creates a new OverrideAdapter.
func NewOverrideAdapter(service primary.OverrideService, out io.Writer) *OverrideAdapter {
	return &OverrideAdapter{service: service, out: out}
}

// Toggle flips an override and reports the resulting progression.
func (a *OverrideAdapter) Toggle(ctx context.Context, schoolID, requirementID string, round int) error {
	resp, err := a.service.ToggleOverride(ctx, primary.ToggleOverrideRequest{
		SchoolID:      schoolID,
		RequirementID: requirementID,
		Round:         round,
	})
	if err != nil {
		return err
	}

	if resp.Created {
		fmt.Fprintf(a.out, "✓ Override set: %s satisfied for %s in round %d\n", requirementID, schoolID, resp.Round)
	} else {
		fmt.Fprintf(a.out, "✓ Override removed: %s for %s in round %d\n", requirementID, schoolID, resp.Round)
	}
	if resp.Progression != nil {
		printProgression(a.out, resp.Progression)
	}
	return nil
}

// List lists a school's overrides.
func (a *OverrideAdapter) List(ctx context.Context, schoolID string, round int) error {
	overrides, err := a.service.ListOverrides(ctx, schoolID, round)
	if err != nil {
		return fmt.Errorf("failed to list overrides: %w", err)
	}

	if len(overrides) == 0 {
		fmt.Fprintln(a.out, "No overrides found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-6s %-10s %-12s %-10s %s\n", "ROUND", "REQ", "STAGE", "MARKED BY", "CREATED")
	fmt.Fprintln(a.out, rule)
	for _, o := range overrides {
		fmt.Fprintf(a.out, "%-6d %-10s %-12s %-10s %s\n", o.RoundNumber, o.RequirementID, o.Stage, orDash(o.MarkedBy), o.CreatedAt)
	}
	fmt.Fprintln(a.out)

	return nil
}
