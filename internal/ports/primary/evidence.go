package primary

import "context"

// EvidenceService defines the primary port for the evidence ledger.
// Every operation that moves evidence into or out of approved recomputes the
// affected school before returning.
type EvidenceService interface {
	// SubmitEvidence records a submission stamped with the school's current round.
	SubmitEvidence(ctx context.Context, req SubmitEvidenceRequest) (*Evidence, error)

	// ReviewEvidence approves or rejects a pending submission.
	ReviewEvidence(ctx context.Context, req ReviewEvidenceRequest) (*Evidence, error)

	// BulkReview applies one decision to many submissions in a single transaction.
	BulkReview(ctx context.Context, req BulkReviewRequest) (*BulkReviewResponse, error)

	// EditEvidence applies a direct admin edit.
	EditEvidence(ctx context.Context, req EditEvidenceRequest) (*Evidence, error)

	// DeleteEvidence removes a pending submission.
	DeleteEvidence(ctx context.Context, evidenceID string) error

	// GetEvidence retrieves a submission by ID.
	GetEvidence(ctx context.Context, evidenceID string) (*Evidence, error)

	// ListEvidence lists submissions matching the filters.
	ListEvidence(ctx context.Context, filters EvidenceFilters) ([]*Evidence, error)

	// ListGallery lists approved public submissions, optionally for one stage.
	ListGallery(ctx context.Context, stage string) ([]*Evidence, error)
}

// SubmitEvidenceRequest contains parameters for submitting evidence.
type SubmitEvidenceRequest struct {
	SchoolID      string
	Stage         string
	RequirementID string
	Title         string
	Visibility    string // empty uses the default
	FileRef       string
}

// ReviewEvidenceRequest contains parameters for reviewing evidence.
type ReviewEvidenceRequest struct {
	EvidenceID string
	Decision   string // "approved" or "rejected"
	Notes      string
}

// BulkReviewRequest contains parameters for reviewing many submissions.
type BulkReviewRequest struct {
	EvidenceIDs []string
	Decision    string
	Notes       string
}

// BulkReviewResponse contains the result of a bulk review.
type BulkReviewResponse struct {
	Reviewed          []string
	SchoolsRecomputed []string
}

// EditEvidenceRequest contains parameters for a direct admin edit.
// Nil fields are left unchanged.
type EditEvidenceRequest struct {
	EvidenceID    string
	Status        *string
	Visibility    *string
	RequirementID *string // pointer to empty string unlinks
	Title         *string
}

// EvidenceFilters contains filter options for listing evidence.
type EvidenceFilters struct {
	SchoolID   string
	Stage      string
	Status     string
	Visibility string
	Round      int
	Limit      int
}

// Evidence represents an evidence submission at the port boundary.
type Evidence struct {
	ID            string
	SchoolID      string
	SubmittedBy   string
	Stage         string
	RoundNumber   int
	Status        string
	RequirementID string
	Visibility    string
	Title         string
	FileRef       string
	ReviewedBy    string
	ReviewedAt    string
	ReviewNotes   string
	CreatedAt     string
	UpdatedAt     string
}
