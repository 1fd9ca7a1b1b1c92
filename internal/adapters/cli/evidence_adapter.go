package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/example/ecoprog/internal/ports/primary"
)

// EvidenceAdapter translates CLI operations to EvidenceService calls.
type EvidenceAdapter struct {
	service primary.EvidenceService
	out     io.Writer
}

// NewEvidenceAdapter creates a new EvidenceAdapter.
func NewEvidenceAdapter(service primary.EvidenceService, out io.Writer) *EvidenceAdapter {
	return &EvidenceAdapter{service: service, out: out}
}

// Submit records a submission.
func (a *EvidenceAdapter) Submit(ctx context.Context, req primary.SubmitEvidenceRequest) error {
	ev, err := a.service.SubmitEvidence(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Submitted evidence %s for %s (%s, round %d) [%s]\n",
		ev.ID, ev.SchoolID, ev.Stage, ev.RoundNumber, statusLabel(ev.Status))
	return nil
}

// Review approves or rejects one submission.
func (a *EvidenceAdapter) Review(ctx context.Context, evidenceID, decision, notes string) error {
	ev, err := a.service.ReviewEvidence(ctx, primary.ReviewEvidenceRequest{
		EvidenceID: evidenceID,
		Decision:   decision,
		Notes:      notes,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Evidence %s %s\n", ev.ID, statusLabel(ev.Status))
	return nil
}

// BulkReview applies one decision to many submissions.
func (a *EvidenceAdapter) BulkReview(ctx context.Context, evidenceIDs []string, decision, notes string) error {
	resp, err := a.service.BulkReview(ctx, primary.BulkReviewRequest{
		EvidenceIDs: evidenceIDs,
		Decision:    decision,
		Notes:       notes,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ %s %d submissions\n", statusLabel(decision), len(resp.Reviewed))
	if len(resp.SchoolsRecomputed) > 0 {
		fmt.Fprintf(a.out, "  recomputed: %s\n", strings.Join(resp.SchoolsRecomputed, ", "))
	}
	return nil
}

// Edit applies a direct admin edit.
func (a *EvidenceAdapter) Edit(ctx context.Context, req primary.EditEvidenceRequest) error {
	if req.Status == nil && req.Visibility == nil && req.RequirementID == nil && req.Title == nil {
		return fmt.Errorf("must specify at least one of --status, --visibility, --requirement or --title")
	}

	ev, err := a.service.EditEvidence(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Evidence %s updated [%s]\n", ev.ID, statusLabel(ev.Status))
	return nil
}

// Delete removes a pending submission.
func (a *EvidenceAdapter) Delete(ctx context.Context, evidenceID string) error {
	if err := a.service.DeleteEvidence(ctx, evidenceID); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Deleted evidence %s\n", evidenceID)
	return nil
}

// List lists submissions.
func (a *EvidenceAdapter) List(ctx context.Context, filters primary.EvidenceFilters) error {
	items, err := a.service.ListEvidence(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list evidence: %w", err)
	}
	a.printTable(items)
	return nil
}

// Gallery lists approved public submissions.
func (a *EvidenceAdapter) Gallery(ctx context.Context, stage string) error {
	items, err := a.service.ListGallery(ctx, stage)
	if err != nil {
		return fmt.Errorf("failed to list gallery: %w", err)
	}
	a.printTable(items)
	return nil
}

func (a *EvidenceAdapter) printTable(items []*primary.Evidence) {
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No evidence found")
		return
	}

	fmt.Fprintf(a.out, "\n%-10s %-9s %-12s %-5s %-10s %-10s %s\n", "ID", "SCHOOL", "STAGE", "ROUND", "STATUS", "REQ", "TITLE")
	fmt.Fprintln(a.out, rule)
	for _, e := range items {
		status := statusLabel(e.Status) + spaces(10-len(e.Status))
		fmt.Fprintf(a.out, "%-10s %-9s %-12s %-5d %s %-10s %s\n",
			e.ID, e.SchoolID, e.Stage, e.RoundNumber, status, orDash(e.RequirementID), e.Title)
	}
	fmt.Fprintln(a.out)
}
