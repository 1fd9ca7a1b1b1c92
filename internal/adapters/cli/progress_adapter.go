package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/example/ecoprog/internal/ports/primary"
)

// ProgressAdapter translates CLI operations to ProgressionService calls.
type ProgressAdapter struct {
	service primary.ProgressionService
	out     io.Writer
}

// NewProgressAdapter creates a new ProgressAdapter.
func NewProgressAdapter(service primary.ProgressionService, out io.Writer) *ProgressAdapter {
	return &ProgressAdapter{service: service, out: out}
}

// Show displays a school's stored progression.
func (a *ProgressAdapter) Show(ctx context.Context, schoolID string) error {
	p, err := a.service.GetProgression(ctx, schoolID)
	if err != nil {
		return fmt.Errorf("failed to get progression: %w", err)
	}
	printProgression(a.out, p)
	return nil
}

// Recompute re-derives one school's progression.
func (a *ProgressAdapter) Recompute(ctx context.Context, schoolID string) error {
	res, err := a.service.Recompute(ctx, schoolID)
	if err != nil {
		return err
	}

	if res.Changed {
		fmt.Fprintf(a.out, "✓ Progression for %s updated\n", schoolID)
	} else {
		fmt.Fprintf(a.out, "✓ Progression for %s unchanged\n", schoolID)
	}
	for _, key := range res.Signals {
		fmt.Fprintf(a.out, "  signal: %s\n", key)
	}
	printProgression(a.out, res.Progression)
	return nil
}

// RecomputeAll re-derives every school.
func (a *ProgressAdapter) RecomputeAll(ctx context.Context) error {
	res, err := a.service.RecomputeAll(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Recomputed %d schools (%d changed, %d signals)\n", res.Schools, res.Changed, res.Signals)
	return nil
}

// Preview calculates a round without persisting it.
func (a *ProgressAdapter) Preview(ctx context.Context, schoolID string, round int) error {
	p, err := a.service.PreviewRound(ctx, schoolID, round)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Preview (not saved):")
	printProgression(a.out, p)
	return nil
}

// Rebuild re-derives award history.
func (a *ProgressAdapter) Rebuild(ctx context.Context, schoolID string) error {
	res, err := a.service.RebuildHistory(ctx, schoolID)
	if err != nil {
		return err
	}

	rounds := make([]string, len(res.AwardedRounds))
	for i, r := range res.AwardedRounds {
		rounds[i] = fmt.Sprintf("%d", r)
	}
	fmt.Fprintf(a.out, "✓ %s: %d rounds completed [%s]\n", res.SchoolID, res.RoundsCompleted, strings.Join(rounds, ", "))
	return nil
}
