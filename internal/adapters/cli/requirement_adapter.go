package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/example/ecoprog/internal/ports/primary"
)

// RequirementAdapter translates CLI operations to RequirementService calls.
type RequirementAdapter struct {
	service primary.RequirementService
	out     io.Writer
}

// NewRequirementAdapter creates a new RequirementAdapter.
func NewRequirementAdapter(service primary.RequirementService, out io.Writer) *RequirementAdapter {
	return &RequirementAdapter{service: service, out: out}
}

// Add creates a catalog requirement.
func (a *RequirementAdapter) Add(ctx context.Context, req primary.CreateRequirementRequest) error {
	r, err := a.service.CreateRequirement(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Created requirement %s: %s (%s #%d)\n", r.ID, r.Title, r.Stage, r.OrderIndex)
	return nil
}

// List lists the catalog.
func (a *RequirementAdapter) List(ctx context.Context, stage string) error {
	reqs, err := a.service.ListRequirements(ctx, stage)
	if err != nil {
		return fmt.Errorf("failed to list requirements: %w", err)
	}

	if len(reqs) == 0 {
		fmt.Fprintln(a.out, "No requirements found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-10s %-12s %-5s %s\n", "ID", "STAGE", "ORDER", "TITLE")
	fmt.Fprintln(a.out, rule)
	for _, r := range reqs {
		fmt.Fprintf(a.out, "%-10s %-12s %-5d %s\n", r.ID, r.Stage, r.OrderIndex, r.Title)
	}
	fmt.Fprintln(a.out)

	return nil
}

// Show displays one requirement.
func (a *RequirementAdapter) Show(ctx context.Context, requirementID string) error {
	r, err := a.service.GetRequirement(ctx, requirementID)
	if err != nil {
		return fmt.Errorf("failed to get requirement: %w", err)
	}

	fmt.Fprintf(a.out, "\nRequirement: %s\n", r.ID)
	fmt.Fprintf(a.out, "Title:       %s\n", r.Title)
	fmt.Fprintf(a.out, "Stage:       %s (order %d)\n", r.Stage, r.OrderIndex)
	if len(r.ResourceRefs) > 0 {
		fmt.Fprintf(a.out, "Resources:   %s\n", strings.Join(r.ResourceRefs, ", "))
	}
	fmt.Fprintf(a.out, "Created:     %s\n", r.CreatedAt)
	fmt.Fprintln(a.out)

	return nil
}

// Update changes a requirement.
func (a *RequirementAdapter) Update(ctx context.Context, req primary.UpdateRequirementRequest) error {
	if req.Stage == nil && req.Title == nil && req.OrderIndex == nil && !req.SetResources {
		return fmt.Errorf("must specify at least one of --stage, --title, --order or --resource")
	}

	r, err := a.service.UpdateRequirement(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Requirement %s updated\n", r.ID)
	return nil
}

// Delete removes an unreferenced requirement.
func (a *RequirementAdapter) Delete(ctx context.Context, requirementID string) error {
	if err := a.service.DeleteRequirement(ctx, requirementID); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Deleted requirement %s\n", requirementID)
	return nil
}
