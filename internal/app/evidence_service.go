package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/example/ecoprog/internal/core/evidence"
	"github.com/example/ecoprog/internal/core/stage"
	"github.com/example/ecoprog/internal/ctxutil"
	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/ports/secondary"
)

// EvidenceServiceImpl implements the EvidenceService interface.
type EvidenceServiceImpl struct {
	tx          secondary.Transactor
	coordinator *ProgressionCoordinator
	now         func() time.Time
}

// NewEvidenceService creates a new EvidenceService with injected dependencies.
func NewEvidenceService(tx secondary.Transactor, coordinator *ProgressionCoordinator) *EvidenceServiceImpl {
	return &EvidenceServiceImpl{
		tx:          tx,
		coordinator: coordinator,
		now:         time.Now,
	}
}

// SubmitEvidence records a submission stamped with the school's current round.
func (s *EvidenceServiceImpl) SubmitEvidence(ctx context.Context, req primary.SubmitEvidenceRequest) (*primary.Evidence, error) {
	actor := ctxutil.ActorFromContext(ctx)
	if actor.ID == "" {
		return nil, fmt.Errorf("no acting user: set --as or actor.id")
	}

	unlock := s.coordinator.locks.Lock(req.SchoolID)
	defer unlock()

	var (
		created *secondary.EvidenceRecord
		signals int
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		// 1. Gather guard context
		guardCtx := evidence.SubmitContext{
			SchoolID:      req.SchoolID,
			Stage:         stage.Stage(req.Stage),
			Visibility:    evidence.Visibility(req.Visibility),
			RequirementID: req.RequirementID,
		}
		if guardCtx.Visibility == "" {
			guardCtx.Visibility = evidence.DefaultVisibility
		}

		school, err := stores.Schools.GetByID(ctx, req.SchoolID)
		if err != nil && !errors.Is(err, secondary.ErrNotFound) {
			return fmt.Errorf("failed to get school: %w", err)
		}
		guardCtx.SchoolExists = school != nil

		if req.RequirementID != "" {
			requirement, err := stores.Requirements.GetByID(ctx, req.RequirementID)
			if err != nil && !errors.Is(err, secondary.ErrNotFound) {
				return fmt.Errorf("failed to get requirement: %w", err)
			}
			if requirement != nil {
				guardCtx.RequirementExists = true
				guardCtx.RequirementStage = stage.Stage(requirement.Stage)
			}
		}

		// 2. Check guard
		if err := evidence.CanSubmit(guardCtx).Error(); err != nil {
			return err
		}

		// 3. Create the record in the school's current round
		status := evidence.InitialStatus(actor.Admin)
		record := &secondary.EvidenceRecord{
			ID:            uuid.NewString(),
			SchoolID:      req.SchoolID,
			SubmittedBy:   actor.ID,
			Stage:         req.Stage,
			RoundNumber:   school.CurrentRound,
			Status:        string(status),
			RequirementID: req.RequirementID,
			Visibility:    string(guardCtx.Visibility),
			Title:         req.Title,
			FileRef:       req.FileRef,
		}
		if status == evidence.StatusApproved {
			record.ReviewedBy = actor.ID
			record.ReviewedAt = s.now().UTC().Format(time.RFC3339)
		}
		if err := stores.Evidence.Create(ctx, record); err != nil {
			return fmt.Errorf("failed to create evidence: %w", err)
		}
		if err := stores.Log.LogCreate(ctx, record.SchoolID, "evidence", record.ID); err != nil {
			return fmt.Errorf("failed to log evidence: %w", err)
		}

		// 4. Auto-approved submissions count immediately
		if status == evidence.StatusApproved {
			res, err := s.coordinator.RecomputeInTx(ctx, stores, Trigger{SchoolID: record.SchoolID, Round: record.RoundNumber})
			if err != nil {
				return err
			}
			signals = len(res.Signals)
		}

		created, err = stores.Evidence.GetByID(ctx, record.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.coordinator.notifyCommitted(signals)
	return recordToEvidence(created), nil
}

// ReviewEvidence approves or rejects a pending submission.
func (s *EvidenceServiceImpl) ReviewEvidence(ctx context.Context, req primary.ReviewEvidenceRequest) (*primary.Evidence, error) {
	existing, err := s.tx.Stores().Evidence.GetByID(ctx, req.EvidenceID)
	if err != nil {
		return nil, err
	}

	unlock := s.coordinator.locks.Lock(existing.SchoolID)
	defer unlock()

	var (
		reviewed *secondary.EvidenceRecord
		signals  int
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		record, affects, err := s.applyReview(ctx, stores, req.EvidenceID, req.Decision, req.Notes)
		if err != nil {
			return err
		}
		if affects {
			res, err := s.coordinator.RecomputeInTx(ctx, stores, Trigger{SchoolID: record.SchoolID, Round: record.RoundNumber})
			if err != nil {
				return err
			}
			signals = len(res.Signals)
		}
		reviewed = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.coordinator.notifyCommitted(signals)
	return recordToEvidence(reviewed), nil
}

// BulkReview applies one decision to many submissions in a single transaction,
// then recomputes each affected school once per touched round.
func (s *EvidenceServiceImpl) BulkReview(ctx context.Context, req primary.BulkReviewRequest) (*primary.BulkReviewResponse, error) {
	ids := uniqueSorted(req.EvidenceIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("no evidence IDs given")
	}

	// Pre-read the schools so every lock is taken before the transaction.
	readStores := s.tx.Stores()
	schoolIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		record, err := readStores.Evidence.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		schoolIDs = append(schoolIDs, record.SchoolID)
	}

	unlock := s.coordinator.locks.LockAll(schoolIDs)
	defer unlock()

	resp := &primary.BulkReviewResponse{}
	var signals int
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		// 1. Apply every status change first
		affected := make(map[string]map[int]bool)
		for _, id := range ids {
			record, affects, err := s.applyReview(ctx, stores, id, req.Decision, req.Notes)
			if err != nil {
				return err
			}
			resp.Reviewed = append(resp.Reviewed, id)
			if !affects {
				continue
			}
			if affected[record.SchoolID] == nil {
				affected[record.SchoolID] = make(map[int]bool)
			}
			affected[record.SchoolID][record.RoundNumber] = true
		}

		// 2. Recompute once per affected (school, round) pair
		schools := make([]string, 0, len(affected))
		for id := range affected {
			schools = append(schools, id)
		}
		sort.Strings(schools)

		for _, schoolID := range schools {
			rounds := make([]int, 0, len(affected[schoolID]))
			for r := range affected[schoolID] {
				rounds = append(rounds, r)
			}
			sort.Ints(rounds)

			for _, r := range rounds {
				res, err := s.coordinator.RecomputeInTx(ctx, stores, Trigger{SchoolID: schoolID, Round: r})
				if err != nil {
					return err
				}
				signals += len(res.Signals)
			}
		}
		resp.SchoolsRecomputed = schools
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.coordinator.notifyCommitted(signals)
	return resp, nil
}

// applyReview runs the review guard and writes the decision.
// It reports whether the change can move the school's progression.
func (s *EvidenceServiceImpl) applyReview(ctx context.Context, stores secondary.Stores, evidenceID, decision, notes string) (*secondary.EvidenceRecord, bool, error) {
	actor := ctxutil.ActorFromContext(ctx)

	record, err := stores.Evidence.GetByID(ctx, evidenceID)
	if err != nil {
		return nil, false, err
	}

	guardCtx := evidence.ReviewContext{
		EvidenceID:      record.ID,
		CurrentStatus:   evidence.Status(record.Status),
		Decision:        evidence.Status(decision),
		ReviewerIsAdmin: actor.Admin,
	}
	if err := evidence.CanReview(guardCtx).Error(); err != nil {
		return nil, false, err
	}

	before := snapshotOf(record)
	transition := evidence.ApplyReview(evidence.Status(decision), actor.ID, notes, s.now())
	record.Status = string(transition.NewStatus)
	record.ReviewedBy = transition.ReviewedBy
	record.ReviewedAt = transition.ReviewedAt.Format(time.RFC3339)
	record.ReviewNotes = transition.Notes

	if err := stores.Evidence.Update(ctx, record); err != nil {
		return nil, false, fmt.Errorf("failed to review evidence: %w", err)
	}
	if err := stores.Log.LogUpdate(ctx, record.SchoolID, "evidence", record.ID, "status", string(before.Status), record.Status); err != nil {
		return nil, false, fmt.Errorf("failed to log review: %w", err)
	}

	return record, evidence.AffectsProgression(before, snapshotOf(record)), nil
}

// EditEvidence applies a direct admin edit.
func (s *EvidenceServiceImpl) EditEvidence(ctx context.Context, req primary.EditEvidenceRequest) (*primary.Evidence, error) {
	actor := ctxutil.ActorFromContext(ctx)

	existing, err := s.tx.Stores().Evidence.GetByID(ctx, req.EvidenceID)
	if err != nil {
		return nil, err
	}

	unlock := s.coordinator.locks.Lock(existing.SchoolID)
	defer unlock()

	var (
		edited  *secondary.EvidenceRecord
		signals int
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		record, err := stores.Evidence.GetByID(ctx, req.EvidenceID)
		if err != nil {
			return err
		}

		// 1. Check guard
		guardCtx := evidence.EditContext{EvidenceID: record.ID, ActorIsAdmin: actor.Admin}
		if req.Status != nil {
			guardCtx.NewStatus = evidence.Status(*req.Status)
		}
		if req.Visibility != nil {
			guardCtx.NewVisibility = evidence.Visibility(*req.Visibility)
		}
		if err := evidence.CanEdit(guardCtx).Error(); err != nil {
			return err
		}

		// 2. Apply field changes
		before := snapshotOf(record)
		var changes []fieldChange

		if req.Status != nil && *req.Status != record.Status {
			changes = append(changes, fieldChange{"status", record.Status, *req.Status})
			record.Status = *req.Status
			if evidence.Status(record.Status) == evidence.StatusPending {
				record.ReviewedBy, record.ReviewedAt = "", ""
			} else {
				record.ReviewedBy = actor.ID
				record.ReviewedAt = s.now().UTC().Format(time.RFC3339)
			}
		}
		if req.Visibility != nil && *req.Visibility != record.Visibility {
			changes = append(changes, fieldChange{"visibility", record.Visibility, *req.Visibility})
			record.Visibility = *req.Visibility
		}
		if req.RequirementID != nil && *req.RequirementID != record.RequirementID {
			if *req.RequirementID != "" {
				requirement, err := stores.Requirements.GetByID(ctx, *req.RequirementID)
				if err != nil {
					return err
				}
				if requirement.Stage != record.Stage {
					return fmt.Errorf("requirement %s belongs to stage %s, not %s", requirement.ID, requirement.Stage, record.Stage)
				}
			}
			changes = append(changes, fieldChange{"requirement_id", record.RequirementID, *req.RequirementID})
			record.RequirementID = *req.RequirementID
		}
		if req.Title != nil && *req.Title != record.Title {
			changes = append(changes, fieldChange{"title", record.Title, *req.Title})
			record.Title = *req.Title
		}

		if len(changes) == 0 {
			edited = record
			return nil
		}

		// 3. Persist and log
		if err := stores.Evidence.Update(ctx, record); err != nil {
			return fmt.Errorf("failed to edit evidence: %w", err)
		}
		for _, ch := range changes {
			if err := stores.Log.LogUpdate(ctx, record.SchoolID, "evidence", record.ID, ch.field, ch.old, ch.new); err != nil {
				return fmt.Errorf("failed to log edit: %w", err)
			}
		}

		// 4. Recompute when the approved set moved
		if evidence.AffectsProgression(before, snapshotOf(record)) {
			res, err := s.coordinator.RecomputeInTx(ctx, stores, Trigger{SchoolID: record.SchoolID, Round: record.RoundNumber})
			if err != nil {
				return err
			}
			signals = len(res.Signals)
		}

		edited, err = stores.Evidence.GetByID(ctx, record.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.coordinator.notifyCommitted(signals)
	return recordToEvidence(edited), nil
}

// DeleteEvidence removes a pending submission.
func (s *EvidenceServiceImpl) DeleteEvidence(ctx context.Context, evidenceID string) error {
	existing, err := s.tx.Stores().Evidence.GetByID(ctx, evidenceID)
	if err != nil {
		return err
	}

	unlock := s.coordinator.locks.Lock(existing.SchoolID)
	defer unlock()

	return s.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		record, err := stores.Evidence.GetByID(ctx, evidenceID)
		if err != nil {
			return err
		}

		if err := evidence.CanDelete(evidence.DeleteContext{EvidenceID: record.ID, Status: evidence.Status(record.Status)}).Error(); err != nil {
			return err
		}

		if err := stores.Evidence.Delete(ctx, record.ID); err != nil {
			return fmt.Errorf("failed to delete evidence: %w", err)
		}
		return stores.Log.LogDelete(ctx, record.SchoolID, "evidence", record.ID)
	})
}

// GetEvidence retrieves a submission by ID.
func (s *EvidenceServiceImpl) GetEvidence(ctx context.Context, evidenceID string) (*primary.Evidence, error) {
	record, err := s.tx.Stores().Evidence.GetByID(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	return recordToEvidence(record), nil
}

// ListEvidence lists submissions matching the filters.
func (s *EvidenceServiceImpl) ListEvidence(ctx context.Context, filters primary.EvidenceFilters) ([]*primary.Evidence, error) {
	records, err := s.tx.Stores().Evidence.List(ctx, secondary.EvidenceFilters{
		SchoolID:   filters.SchoolID,
		Stage:      filters.Stage,
		Status:     filters.Status,
		Visibility: filters.Visibility,
		Round:      filters.Round,
		Limit:      filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}

	list := make([]*primary.Evidence, len(records))
	for i, r := range records {
		list[i] = recordToEvidence(r)
	}
	return list, nil
}

// ListGallery lists approved public submissions.
func (s *EvidenceServiceImpl) ListGallery(ctx context.Context, stageFilter string) ([]*primary.Evidence, error) {
	if stageFilter != "" {
		if _, err := stage.Parse(stageFilter); err != nil {
			return nil, err
		}
	}
	return s.ListEvidence(ctx, primary.EvidenceFilters{
		Stage:      stageFilter,
		Status:     string(evidence.StatusApproved),
		Visibility: string(evidence.VisibilityPublic),
	})
}

// Helper methods

type fieldChange struct {
	field, old, new string
}

func snapshotOf(r *secondary.EvidenceRecord) evidence.Snapshot {
	return evidence.Snapshot{
		Status:        evidence.Status(r.Status),
		Stage:         stage.Stage(r.Stage),
		RequirementID: r.RequirementID,
	}
}

func recordToEvidence(r *secondary.EvidenceRecord) *primary.Evidence {
	return &primary.Evidence{
		ID:            r.ID,
		SchoolID:      r.SchoolID,
		SubmittedBy:   r.SubmittedBy,
		Stage:         r.Stage,
		RoundNumber:   r.RoundNumber,
		Status:        r.Status,
		RequirementID: r.RequirementID,
		Visibility:    r.Visibility,
		Title:         r.Title,
		FileRef:       r.FileRef,
		ReviewedBy:    r.ReviewedBy,
		ReviewedAt:    r.ReviewedAt,
		ReviewNotes:   r.ReviewNotes,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// Ensure EvidenceServiceImpl implements the interface.
var _ primary.EvidenceService = (*EvidenceServiceImpl)(nil)
