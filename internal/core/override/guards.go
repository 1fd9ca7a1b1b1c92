// Package override contains the pure business logic for requirement overrides.
// This is part of the Functional Core - no I/O, only pure functions.
package override

import (
	"errors"
	"fmt"
)

// ErrConcurrentOverrideConflict signals that an override insert collided with an
// existing row for the same (school, requirement, round). The registry resolves
// it by deleting the row; callers never see it.
var ErrConcurrentOverrideConflict = errors.New("override already exists")

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

// ToggleContext provides context for override toggle guards.
type ToggleContext struct {
	SchoolID          string
	SchoolExists      bool
	RequirementID     string
	RequirementExists bool
	Round             int
	CurrentRound      int
	ActorIsAdmin      bool
}

// CanToggle evaluates whether an override may be toggled.
// Rules: admins only; the requirement and school exist; the round has started.
func CanToggle(ctx ToggleContext) GuardResult {
	if !ctx.ActorIsAdmin {
		return GuardResult{Allowed: false, Reason: "only admins can toggle overrides"}
	}
	if !ctx.SchoolExists {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("school %s not found", ctx.SchoolID)}
	}
	if !ctx.RequirementExists {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("requirement %s not found", ctx.RequirementID)}
	}
	if ctx.Round < 1 {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("round must be at least 1 (got %d)", ctx.Round)}
	}
	if ctx.Round > ctx.CurrentRound {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("school %s is in round %d; cannot override round %d before it starts", ctx.SchoolID, ctx.CurrentRound, ctx.Round),
		}
	}
	return GuardResult{Allowed: true}
}
