package primary

import "context"

// ProgressionService defines the primary port for progression state.
type ProgressionService interface {
	// GetProgression returns the stored record with a live stage breakdown.
	GetProgression(ctx context.Context, schoolID string) (*Progression, error)

	// Recompute re-derives a school's progression in its own transaction.
	Recompute(ctx context.Context, schoolID string) (*RecomputeResult, error)

	// RecomputeAll recomputes every school, one transaction per school.
	RecomputeAll(ctx context.Context) (*RecomputeAllResult, error)

	// PreviewRound calculates progression for any started round without persisting it.
	PreviewRound(ctx context.Context, schoolID string, round int) (*Progression, error)

	// RebuildHistory re-derives awarded rounds 1..current from the ledger.
	RebuildHistory(ctx context.Context, schoolID string) (*RebuildHistoryResult, error)
}

// Progression represents a school's progression at the port boundary.
type Progression struct {
	SchoolID             string
	Round                int
	CurrentStage         string
	InspireCompleted     bool
	InvestigateCompleted bool
	ActCompleted         bool
	AwardCompleted       bool
	ProgressPercentage   int
	RoundsCompleted      int
	UpdatedAt            string
	Stages               []StageReport
}

// StageReport is the per-stage breakdown behind a completion flag.
type StageReport struct {
	Stage               string
	Complete            bool
	Required            int
	SatisfiedByEvidence []string
	SatisfiedByOverride []string
	Missing             []string
	HasApprovedEvidence bool
}

// RecomputeResult contains the outcome of one recompute.
type RecomputeResult struct {
	Progression *Progression
	Changed     bool
	Signals     []string // dedupe keys of enqueued signals
}

// RecomputeAllResult summarizes a catalog-wide recompute.
type RecomputeAllResult struct {
	Schools int
	Changed int
	Signals int
}

// RebuildHistoryResult contains the re-derived award history.
type RebuildHistoryResult struct {
	SchoolID        string
	AwardedRounds   []int
	RoundsCompleted int
}
