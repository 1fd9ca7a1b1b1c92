package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/example/ecoprog/internal/ports/primary"
)

func TestEvidenceAdapter_Submit(t *testing.T) {
	svc := &mockEvidenceService{}
	out := &bytes.Buffer{}
	adapter := NewEvidenceAdapter(svc, out)

	req := primary.SubmitEvidenceRequest{SchoolID: "SCH-001", Stage: "inspire", RequirementID: "REQ-001", Title: "Committee photo"}
	if err := adapter.Submit(context.Background(), req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if svc.lastSubmitReq != req {
		t.Errorf("expected request to pass through, got %+v", svc.lastSubmitReq)
	}
	if !strings.Contains(out.String(), "Submitted evidence EVD-0001 for SCH-001 (inspire, round 2) [pending]") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestEvidenceAdapter_Review(t *testing.T) {
	svc := &mockEvidenceService{}
	out := &bytes.Buffer{}
	adapter := NewEvidenceAdapter(svc, out)

	if err := adapter.Review(context.Background(), "EVD-0002", "approved", "nice work"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if svc.lastReviewReq.Decision != "approved" || svc.lastReviewReq.Notes != "nice work" {
		t.Errorf("unexpected review request: %+v", svc.lastReviewReq)
	}
	if !strings.Contains(out.String(), "Evidence EVD-0002 approved") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestEvidenceAdapter_BulkReview(t *testing.T) {
	svc := &mockEvidenceService{}
	out := &bytes.Buffer{}
	adapter := NewEvidenceAdapter(svc, out)

	ids := []string{"EVD-1", "EVD-2", "EVD-3"}
	if err := adapter.BulkReview(context.Background(), ids, "approved", ""); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(svc.lastBulkReq.EvidenceIDs) != 3 {
		t.Errorf("expected 3 ids, got %v", svc.lastBulkReq.EvidenceIDs)
	}
	if !strings.Contains(out.String(), "approved 3 submissions") || !strings.Contains(out.String(), "recomputed: SCH-001, SCH-002") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestEvidenceAdapter_EditRequiresAField(t *testing.T) {
	svc := &mockEvidenceService{}
	adapter := NewEvidenceAdapter(svc, &bytes.Buffer{})

	if err := adapter.Edit(context.Background(), primary.EditEvidenceRequest{EvidenceID: "EVD-1"}); err == nil {
		t.Fatal("expected error when no field is set")
	}
	if svc.editCalled {
		t.Error("service should not be called without changes")
	}

	title := "Renamed"
	if err := adapter.Edit(context.Background(), primary.EditEvidenceRequest{EvidenceID: "EVD-1", Title: &title}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !svc.editCalled {
		t.Error("expected service to be called")
	}
}

func TestEvidenceAdapter_ListAndGallery(t *testing.T) {
	svc := &mockEvidenceService{items: []*primary.Evidence{
		{ID: "EVD-0001", SchoolID: "SCH-001", Stage: "inspire", RoundNumber: 1, Status: "approved", RequirementID: "REQ-001", Title: "Committee photo"},
		{ID: "EVD-0009", SchoolID: "SCH-003", Stage: "investigate", RoundNumber: 1, Status: "rejected", Title: "Unlinked notes"},
	}}
	out := &bytes.Buffer{}
	adapter := NewEvidenceAdapter(svc, out)

	if err := adapter.List(context.Background(), primary.EvidenceFilters{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "Committee photo") || !strings.Contains(out.String(), "Unlinked notes") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	svc.items = nil
	if err := adapter.Gallery(context.Background(), "act"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if svc.lastGallery != "act" {
		t.Errorf("expected stage filter act, got %q", svc.lastGallery)
	}
	if !strings.Contains(out.String(), "No evidence found") {
		t.Errorf("unexpected output: %q", out.String())
	}
}
