// Package requirement contains the pure business logic for the requirement catalog.
// This is part of the Functional Core - no I/O, only pure functions.
package requirement

import (
	"errors"
	"fmt"

	"github.com/example/ecoprog/internal/core/stage"
)

// ErrRequirementInUse is returned when a requirement that is still referenced
// by evidence or overrides would be deleted or moved to another stage.
var ErrRequirementInUse = errors.New("requirement in use")

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string // Human-readable reason (populated when not allowed)
	InUse   bool   // Set when refusal is due to existing references
}

// Error returns the guard result as an error if not allowed, nil otherwise.
// Reference refusals wrap ErrRequirementInUse.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	if r.InUse {
		return fmt.Errorf("%w: %s", ErrRequirementInUse, r.Reason)
	}
	return fmt.Errorf("%s", r.Reason)
}

// CreateContext provides context for creating a requirement.
type CreateContext struct {
	Stage      stage.Stage
	Title      string
	OrderIndex int
}

// CanCreate evaluates whether a requirement may be added to the catalog.
func CanCreate(ctx CreateContext) GuardResult {
	if !ctx.Stage.Valid() {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("invalid stage %q", ctx.Stage)}
	}
	if ctx.Title == "" {
		return GuardResult{Allowed: false, Reason: "requirement title is required"}
	}
	if ctx.OrderIndex < 0 {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("order index must not be negative (got %d)", ctx.OrderIndex)}
	}
	return GuardResult{Allowed: true}
}

// DeleteContext provides context for requirement deletion guards.
// Populated by the caller with pre-fetched reference counts.
type DeleteContext struct {
	RequirementID string
	EvidenceCount int
	OverrideCount int
}

// CanDelete evaluates whether a requirement can be deleted.
// Rule: referenced requirements are never deleted; there is no force option
// because removing them would rewrite progression history.
func CanDelete(ctx DeleteContext) GuardResult {
	if ctx.EvidenceCount > 0 || ctx.OverrideCount > 0 {
		return GuardResult{
			Allowed: false,
			InUse:   true,
			Reason: fmt.Sprintf("requirement %s is referenced by %d evidence submissions and %d overrides",
				ctx.RequirementID, ctx.EvidenceCount, ctx.OverrideCount),
		}
	}
	return GuardResult{Allowed: true}
}

// UpdateContext provides context for requirement updates.
type UpdateContext struct {
	RequirementID string
	CurrentStage  stage.Stage
	NewStage      stage.Stage // empty when unchanged
	NewOrderIndex *int
	EvidenceCount int
	OverrideCount int
}

// CanUpdate evaluates whether a requirement update may be applied.
// Rule: a referenced requirement keeps its stage, since overrides denormalize it
// and linked evidence was submitted against it.
func CanUpdate(ctx UpdateContext) GuardResult {
	if ctx.NewOrderIndex != nil && *ctx.NewOrderIndex < 0 {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("order index must not be negative (got %d)", *ctx.NewOrderIndex)}
	}
	if ctx.NewStage == "" || ctx.NewStage == ctx.CurrentStage {
		return GuardResult{Allowed: true}
	}
	if !ctx.NewStage.Valid() {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("invalid stage %q", ctx.NewStage)}
	}
	if ctx.EvidenceCount > 0 || ctx.OverrideCount > 0 {
		return GuardResult{
			Allowed: false,
			InUse:   true,
			Reason: fmt.Sprintf("requirement %s cannot move from %s to %s while referenced by %d evidence submissions and %d overrides",
				ctx.RequirementID, ctx.CurrentStage, ctx.NewStage, ctx.EvidenceCount, ctx.OverrideCount),
		}
	}
	return GuardResult{Allowed: true}
}
