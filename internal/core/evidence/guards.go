// Package evidence contains the pure business logic for evidence submissions.
// This is part of the Functional Core - no I/O, only pure functions.
package evidence

import (
	"fmt"
	"time"

	"github.com/example/ecoprog/internal/core/stage"
)

// Status represents the review state of an evidence submission.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Visibility controls who may see an evidence submission.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilitySchool  Visibility = "school"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is a known visibility tag.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilitySchool, VisibilityPublic:
		return true
	}
	return false
}

// DefaultVisibility is applied when a submission does not specify one.
const DefaultVisibility = VisibilitySchool

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string // Human-readable reason (populated when not allowed)
}

// Error returns the guard result as an error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// InitialStatus returns the status a new submission starts in.
// Submissions made by an admin are approved on creation.
func InitialStatus(submitterIsAdmin bool) Status {
	if submitterIsAdmin {
		return StatusApproved
	}
	return StatusPending
}

// SubmitContext provides context for the submission guard.
// Requirement fields are only consulted when RequirementID is set.
type SubmitContext struct {
	SchoolID          string
	SchoolExists      bool
	Stage             stage.Stage
	Visibility        Visibility
	RequirementID     string
	RequirementExists bool
	RequirementStage  stage.Stage
}

// CanSubmit evaluates whether a new submission may be recorded.
// Rule: a linked requirement must exist and belong to the submission's stage.
func CanSubmit(ctx SubmitContext) GuardResult {
	if !ctx.SchoolExists {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("school %s not found", ctx.SchoolID)}
	}
	if !ctx.Stage.Valid() {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("invalid stage %q", ctx.Stage)}
	}
	if !ctx.Visibility.Valid() {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("invalid visibility %q", ctx.Visibility)}
	}
	if ctx.RequirementID == "" {
		return GuardResult{Allowed: true}
	}
	if !ctx.RequirementExists {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("requirement %s not found", ctx.RequirementID)}
	}
	if ctx.RequirementStage != ctx.Stage {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("requirement %s belongs to stage %s, not %s",
				ctx.RequirementID, ctx.RequirementStage, ctx.Stage),
		}
	}
	return GuardResult{Allowed: true}
}

// ReviewContext provides context for a review decision.
type ReviewContext struct {
	EvidenceID      string
	CurrentStatus   Status
	Decision        Status
	ReviewerIsAdmin bool
}

// CanReview evaluates whether a review decision may be applied.
// Rules: only admins review; only pending evidence is reviewed;
// the decision is approved or rejected.
func CanReview(ctx ReviewContext) GuardResult {
	if !ctx.ReviewerIsAdmin {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("only admins can review evidence (evidence: %s)", ctx.EvidenceID)}
	}
	if ctx.Decision != StatusApproved && ctx.Decision != StatusRejected {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("invalid review decision %q: must be approved or rejected", ctx.Decision)}
	}
	if ctx.CurrentStatus != StatusPending {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("evidence %s is %s; only pending evidence can be reviewed. Use edit to change a reviewed item", ctx.EvidenceID, ctx.CurrentStatus),
		}
	}
	return GuardResult{Allowed: true}
}

// EditContext provides context for a direct admin edit.
type EditContext struct {
	EvidenceID    string
	ActorIsAdmin  bool
	NewStatus     Status     // empty when unchanged
	NewVisibility Visibility // empty when unchanged
}

// CanEdit evaluates whether a direct edit may be applied.
// Rule: only admins edit evidence directly; new values must be valid.
func CanEdit(ctx EditContext) GuardResult {
	if !ctx.ActorIsAdmin {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("only admins can edit evidence (evidence: %s)", ctx.EvidenceID)}
	}
	if ctx.NewStatus != "" && !ctx.NewStatus.Valid() {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("invalid status %q", ctx.NewStatus)}
	}
	if ctx.NewVisibility != "" && !ctx.NewVisibility.Valid() {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("invalid visibility %q", ctx.NewVisibility)}
	}
	return GuardResult{Allowed: true}
}

// DeleteContext provides context for evidence deletion.
type DeleteContext struct {
	EvidenceID string
	Status     Status
}

// CanDelete evaluates whether a submission may be deleted.
// Rule: only pending evidence can be deleted.
func CanDelete(ctx DeleteContext) GuardResult {
	if ctx.Status != StatusPending {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("evidence %s is %s; only pending evidence can be deleted", ctx.EvidenceID, ctx.Status),
		}
	}
	return GuardResult{Allowed: true}
}

// Snapshot is the progression-relevant view of an evidence record.
type Snapshot struct {
	Status        Status
	Stage         stage.Stage
	RequirementID string
}

// AffectsProgression reports whether moving from before to after can change
// the approved-evidence counts for the record's school and round.
func AffectsProgression(before, after Snapshot) bool {
	wasApproved := before.Status == StatusApproved
	isApproved := after.Status == StatusApproved
	if wasApproved != isApproved {
		return true
	}
	if !isApproved {
		return false
	}
	return before.Stage != after.Stage || before.RequirementID != after.RequirementID
}

// ReviewTransition captures the result of applying a review decision.
type ReviewTransition struct {
	NewStatus  Status
	ReviewedBy string
	ReviewedAt time.Time
	Notes      string
}

// ApplyReview applies a review decision and returns the review metadata to persist.
func ApplyReview(decision Status, reviewer, notes string, now time.Time) ReviewTransition {
	return ReviewTransition{
		NewStatus:  decision,
		ReviewedBy: reviewer,
		ReviewedAt: now.UTC(),
		Notes:      notes,
	}
}
