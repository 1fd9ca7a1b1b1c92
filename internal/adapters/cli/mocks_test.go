package cli

import (
	"context"

	"github.com/example/ecoprog/internal/ports/primary"
)

// mockSchoolService implements primary.SchoolService for testing
type mockSchoolService struct {
	createFn  func(ctx context.Context, req primary.CreateSchoolRequest) (*primary.School, error)
	listFn    func(ctx context.Context) ([]*primary.School, error)
	advanceFn func(ctx context.Context, req primary.AdvanceRoundRequest) (*primary.AdvanceRoundResponse, error)

	lastAdvanceReq primary.AdvanceRoundRequest
}

func (m *mockSchoolService) CreateSchool(ctx context.Context, req primary.CreateSchoolRequest) (*primary.School, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &primary.School{ID: "SCH-001", Name: req.Name, CurrentRound: 1}, nil
}

func (m *mockSchoolService) GetSchool(ctx context.Context, schoolID string) (*primary.School, error) {
	return &primary.School{ID: schoolID, Name: "Riverside Primary", CurrentRound: 2, CreatedAt: "2026-01-01T00:00:00Z"}, nil
}

func (m *mockSchoolService) ListSchools(ctx context.Context) ([]*primary.School, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*primary.School{}, nil
}

func (m *mockSchoolService) AdvanceRound(ctx context.Context, req primary.AdvanceRoundRequest) (*primary.AdvanceRoundResponse, error) {
	m.lastAdvanceReq = req
	if m.advanceFn != nil {
		return m.advanceFn(ctx, req)
	}
	return &primary.AdvanceRoundResponse{SchoolID: req.SchoolID, PreviousRound: 1, NewRound: 2}, nil
}

// mockProgressionService implements primary.ProgressionService for testing
type mockProgressionService struct {
	progression *primary.Progression
	recompute   *primary.RecomputeResult
	err         error

	lastPreviewRound int
}

func (m *mockProgressionService) GetProgression(ctx context.Context, schoolID string) (*primary.Progression, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.progression, nil
}

func (m *mockProgressionService) Recompute(ctx context.Context, schoolID string) (*primary.RecomputeResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.recompute, nil
}

func (m *mockProgressionService) RecomputeAll(ctx context.Context) (*primary.RecomputeAllResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &primary.RecomputeAllResult{Schools: 3, Changed: 1, Signals: 2}, nil
}

func (m *mockProgressionService) PreviewRound(ctx context.Context, schoolID string, round int) (*primary.Progression, error) {
	m.lastPreviewRound = round
	if m.err != nil {
		return nil, m.err
	}
	return m.progression, nil
}

func (m *mockProgressionService) RebuildHistory(ctx context.Context, schoolID string) (*primary.RebuildHistoryResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &primary.RebuildHistoryResult{SchoolID: schoolID, AwardedRounds: []int{1, 3}, RoundsCompleted: 2}, nil
}

// mockEvidenceService implements primary.EvidenceService for testing
type mockEvidenceService struct {
	items []*primary.Evidence
	err   error

	lastSubmitReq primary.SubmitEvidenceRequest
	lastReviewReq primary.ReviewEvidenceRequest
	lastBulkReq   primary.BulkReviewRequest
	editCalled    bool
	lastGallery   string
}

func (m *mockEvidenceService) SubmitEvidence(ctx context.Context, req primary.SubmitEvidenceRequest) (*primary.Evidence, error) {
	m.lastSubmitReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &primary.Evidence{ID: "EVD-0001", SchoolID: req.SchoolID, Stage: req.Stage, RoundNumber: 2, Status: "pending"}, nil
}

func (m *mockEvidenceService) ReviewEvidence(ctx context.Context, req primary.ReviewEvidenceRequest) (*primary.Evidence, error) {
	m.lastReviewReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &primary.Evidence{ID: req.EvidenceID, Status: req.Decision}, nil
}

func (m *mockEvidenceService) BulkReview(ctx context.Context, req primary.BulkReviewRequest) (*primary.BulkReviewResponse, error) {
	m.lastBulkReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &primary.BulkReviewResponse{Reviewed: req.EvidenceIDs, SchoolsRecomputed: []string{"SCH-001", "SCH-002"}}, nil
}

func (m *mockEvidenceService) EditEvidence(ctx context.Context, req primary.EditEvidenceRequest) (*primary.Evidence, error) {
	m.editCalled = true
	return &primary.Evidence{ID: req.EvidenceID, Status: "approved"}, nil
}

func (m *mockEvidenceService) DeleteEvidence(ctx context.Context, evidenceID string) error {
	return m.err
}

func (m *mockEvidenceService) GetEvidence(ctx context.Context, evidenceID string) (*primary.Evidence, error) {
	return &primary.Evidence{ID: evidenceID}, nil
}

func (m *mockEvidenceService) ListEvidence(ctx context.Context, filters primary.EvidenceFilters) ([]*primary.Evidence, error) {
	return m.items, m.err
}

func (m *mockEvidenceService) ListGallery(ctx context.Context, stage string) ([]*primary.Evidence, error) {
	m.lastGallery = stage
	return m.items, m.err
}

// mockOverrideService implements primary.OverrideService for testing
type mockOverrideService struct {
	created   bool
	overrides []*primary.Override
	err       error

	lastToggleReq primary.ToggleOverrideRequest
}

func (m *mockOverrideService) ToggleOverride(ctx context.Context, req primary.ToggleOverrideRequest) (*primary.ToggleOverrideResponse, error) {
	m.lastToggleReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &primary.ToggleOverrideResponse{Created: m.created, Round: 2}, nil
}

func (m *mockOverrideService) ListOverrides(ctx context.Context, schoolID string, round int) ([]*primary.Override, error) {
	return m.overrides, m.err
}

// mockRequirementService implements primary.RequirementService for testing
type mockRequirementService struct {
	reqs []*primary.Requirement
	err  error

	lastCreateReq primary.CreateRequirementRequest
	updateCalled  bool
}

func (m *mockRequirementService) CreateRequirement(ctx context.Context, req primary.CreateRequirementRequest) (*primary.Requirement, error) {
	m.lastCreateReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &primary.Requirement{ID: "REQ-006", Stage: req.Stage, Title: req.Title, OrderIndex: 3}, nil
}

func (m *mockRequirementService) GetRequirement(ctx context.Context, requirementID string) (*primary.Requirement, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &primary.Requirement{ID: requirementID, Stage: "act", Title: "Action plan", OrderIndex: 1, ResourceRefs: []string{"guide.pdf"}}, nil
}

func (m *mockRequirementService) UpdateRequirement(ctx context.Context, req primary.UpdateRequirementRequest) (*primary.Requirement, error) {
	m.updateCalled = true
	return &primary.Requirement{ID: req.RequirementID}, m.err
}

func (m *mockRequirementService) DeleteRequirement(ctx context.Context, requirementID string) error {
	return m.err
}

func (m *mockRequirementService) ListRequirements(ctx context.Context, stage string) ([]*primary.Requirement, error) {
	return m.reqs, m.err
}

// mockOutboxService implements primary.OutboxService for testing
type mockOutboxService struct {
	signals []*primary.Signal
	err     error
}

func (m *mockOutboxService) DispatchOnce(ctx context.Context) (*primary.DispatchResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &primary.DispatchResult{Leased: 4, Succeeded: 3, Retried: 1}, nil
}

func (m *mockOutboxService) Run(ctx context.Context) error { return m.err }

func (m *mockOutboxService) ListSignals(ctx context.Context, filters primary.SignalFilters) ([]*primary.Signal, error) {
	return m.signals, m.err
}

// mockLogService implements primary.LogService for testing
type mockLogService struct {
	entries  []*primary.LogEntry
	pruned   int
	lastDays int
}

func (m *mockLogService) ListLogs(ctx context.Context, filters primary.LogFilters) ([]*primary.LogEntry, error) {
	return m.entries, nil
}

func (m *mockLogService) PruneLogs(ctx context.Context, olderThanDays int) (int, error) {
	m.lastDays = olderThanDays
	return m.pruned, nil
}

func sampleProgression() *primary.Progression {
	return &primary.Progression{
		SchoolID:           "SCH-001",
		Round:              2,
		CurrentStage:       "investigate",
		InspireCompleted:   true,
		ProgressPercentage: 33,
		RoundsCompleted:    1,
		Stages: []primary.StageReport{
			{Stage: "inspire", Complete: true, Required: 2, SatisfiedByEvidence: []string{"REQ-001"}, SatisfiedByOverride: []string{"REQ-002"}},
			{Stage: "investigate", Required: 1, Missing: []string{"REQ-003"}},
			{Stage: "act", Required: 1, Missing: []string{"REQ-005"}},
		},
	}
}
