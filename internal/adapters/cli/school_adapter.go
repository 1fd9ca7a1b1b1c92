package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/example/ecoprog/internal/ports/primary"
)

// SchoolAdapter translates CLI operations to SchoolService calls.
type SchoolAdapter struct {
	service     primary.SchoolService
	progression primary.ProgressionService
	out         io.Writer
}

// NewSchoolAdapter creates a new SchoolAdapter.
func NewSchoolAdapter(service primary.SchoolService, progression primary.ProgressionService, out io.Writer) *SchoolAdapter {
	return &SchoolAdapter{
		service:     service,
		progression: progression,
		out:         out,
	}
}

// Create registers a school.
func (a *SchoolAdapter) Create(ctx context.Context, name string) error {
	school, err := a.service.CreateSchool(ctx, primary.CreateSchoolRequest{Name: name})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Created school %s: %s (round %d)\n", school.ID, school.Name, school.CurrentRound)
	return nil
}

// List lists all schools.
func (a *SchoolAdapter) List(ctx context.Context) error {
	schools, err := a.service.ListSchools(ctx)
	if err != nil {
		return fmt.Errorf("failed to list schools: %w", err)
	}

	if len(schools) == 0 {
		fmt.Fprintln(a.out, "No schools found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-10s %-6s %s\n", "ID", "ROUND", "NAME")
	fmt.Fprintln(a.out, rule)
	for _, s := range schools {
		fmt.Fprintf(a.out, "%-10s %-6d %s\n", s.ID, s.CurrentRound, s.Name)
	}
	fmt.Fprintln(a.out)

	return nil
}

// Show displays a school with its current progression.
func (a *SchoolAdapter) Show(ctx context.Context, schoolID string) error {
	school, err := a.service.GetSchool(ctx, schoolID)
	if err != nil {
		return fmt.Errorf("failed to get school: %w", err)
	}

	fmt.Fprintf(a.out, "\nSchool:  %s\n", school.ID)
	fmt.Fprintf(a.out, "Name:    %s\n", school.Name)
	fmt.Fprintf(a.out, "Round:   %d\n", school.CurrentRound)
	fmt.Fprintf(a.out, "Created: %s\n", school.CreatedAt)

	p, err := a.progression.GetProgression(ctx, schoolID)
	if err != nil {
		return fmt.Errorf("failed to get progression: %w", err)
	}
	printProgression(a.out, p)

	return nil
}

// Advance moves a school into its next round.
func (a *SchoolAdapter) Advance(ctx context.Context, schoolID string, force bool) error {
	resp, err := a.service.AdvanceRound(ctx, primary.AdvanceRoundRequest{
		SchoolID: schoolID,
		Force:    force,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ School %s advanced from round %d to round %d\n", resp.SchoolID, resp.PreviousRound, resp.NewRound)
	if resp.Progression != nil {
		printProgression(a.out, resp.Progression)
	}
	return nil
}
