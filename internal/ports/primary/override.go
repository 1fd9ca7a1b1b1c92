package primary

import "context"

// OverrideService defines the primary port for requirement overrides.
type OverrideService interface {
	// ToggleOverride creates the override if absent, otherwise removes it,
	// and recomputes the school in the same transaction.
	ToggleOverride(ctx context.Context, req ToggleOverrideRequest) (*ToggleOverrideResponse, error)

	// ListOverrides lists a school's overrides. A zero round lists every round.
	ListOverrides(ctx context.Context, schoolID string, round int) ([]*Override, error)
}

// ToggleOverrideRequest contains parameters for toggling an override.
type ToggleOverrideRequest struct {
	SchoolID      string
	RequirementID string
	Round         int // zero means the school's current round
}

// ToggleOverrideResponse contains the result of a toggle.
type ToggleOverrideResponse struct {
	Created     bool
	Round       int
	Progression *Progression
}

// Override represents an override at the port boundary.
type Override struct {
	ID            string
	SchoolID      string
	RequirementID string
	RoundNumber   int
	Stage         string
	MarkedBy      string
	CreatedAt     string
}
