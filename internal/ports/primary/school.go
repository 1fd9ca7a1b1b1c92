package primary

import "context"

// SchoolService defines the primary port for school and round operations.
type SchoolService interface {
	// CreateSchool registers a school in round 1 with an initial progression record.
	CreateSchool(ctx context.Context, req CreateSchoolRequest) (*School, error)

	// GetSchool retrieves a school by ID.
	GetSchool(ctx context.Context, schoolID string) (*School, error)

	// ListSchools retrieves all schools.
	ListSchools(ctx context.Context) ([]*School, error)

	// AdvanceRound moves a school into its next round and recomputes progression.
	AdvanceRound(ctx context.Context, req AdvanceRoundRequest) (*AdvanceRoundResponse, error)
}

// CreateSchoolRequest contains parameters for creating a school.
type CreateSchoolRequest struct {
	Name string
}

// AdvanceRoundRequest contains parameters for advancing a school's round.
type AdvanceRoundRequest struct {
	SchoolID string
	Force    bool // advance even when the current award is incomplete
}

// AdvanceRoundResponse contains the result of advancing a round.
type AdvanceRoundResponse struct {
	SchoolID      string
	PreviousRound int
	NewRound      int
	Progression   *Progression
}

// School represents a school at the port boundary.
type School struct {
	ID           string
	Name         string
	CurrentRound int
	CreatedAt    string
	UpdatedAt    string
}
