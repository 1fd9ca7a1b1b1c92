// Package round contains the pure business logic for program rounds.
// This is part of the Functional Core - no I/O, only pure functions.
package round

import (
	"errors"
	"fmt"
)

// First is the round every school starts in.
const First = 1

// ErrInvalidRoundTransition marks a recompute trigger whose round does not
// match the school's current round. It is informational: the coordinator
// recomputes the current round instead of failing.
var ErrInvalidRoundTransition = errors.New("invalid round transition")

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

// AdvanceContext provides context for round advancement guards.
type AdvanceContext struct {
	SchoolID       string
	CurrentRound   int
	AwardCompleted bool
	ActorIsAdmin   bool
	Force          bool
}

// CanAdvance evaluates whether a school may start its next round.
// Rule: admins only; the current round's award must be complete unless forced.
func CanAdvance(ctx AdvanceContext) GuardResult {
	if !ctx.ActorIsAdmin {
		return GuardResult{Allowed: false, Reason: "only admins can advance rounds"}
	}
	if !ctx.AwardCompleted && !ctx.Force {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("school %s has not completed round %d. Use --force to advance anyway", ctx.SchoolID, ctx.CurrentRound),
		}
	}
	return GuardResult{Allowed: true}
}

// Next returns the round after current.
func Next(current int) int {
	if current < First {
		return First
	}
	return current + 1
}

// CheckTrigger classifies a recompute trigger against the school's current round.
// A zero trigger round means "current round". Mismatches wrap ErrInvalidRoundTransition.
func CheckTrigger(triggerRound, currentRound int) error {
	if triggerRound == 0 || triggerRound == currentRound {
		return nil
	}
	return fmt.Errorf("%w: trigger for round %d while school is in round %d",
		ErrInvalidRoundTransition, triggerRound, currentRound)
}

// Validate checks that n is a usable round number.
func Validate(n int) error {
	if n < First {
		return fmt.Errorf("round must be at least %d (got %d)", First, n)
	}
	return nil
}
