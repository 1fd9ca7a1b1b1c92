package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/ecoprog/internal/core/round"
	"github.com/example/ecoprog/internal/ctxutil"
	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/ports/secondary"
)

// SchoolServiceImpl implements the SchoolService interface.
type SchoolServiceImpl struct {
	tx          secondary.Transactor
	coordinator *ProgressionCoordinator
}

// NewSchoolService creates a new SchoolService with injected dependencies.
func NewSchoolService(tx secondary.Transactor, coordinator *ProgressionCoordinator) *SchoolServiceImpl {
	return &SchoolServiceImpl{
		tx:          tx,
		coordinator: coordinator,
	}
}

// CreateSchool registers a school in round 1 with an initial progression record.
func (s *SchoolServiceImpl) CreateSchool(ctx context.Context, req primary.CreateSchoolRequest) (*primary.School, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("school name is required")
	}

	var (
		created *secondary.SchoolRecord
		signals int
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		id, err := stores.Schools.GetNextID(ctx)
		if err != nil {
			return fmt.Errorf("failed to generate school ID: %w", err)
		}

		if err := stores.Schools.Create(ctx, &secondary.SchoolRecord{ID: id, Name: name, CurrentRound: round.First}); err != nil {
			return fmt.Errorf("failed to create school: %w", err)
		}
		if err := stores.Log.LogCreate(ctx, id, "school", id); err != nil {
			return fmt.Errorf("failed to log school: %w", err)
		}

		res, err := s.coordinator.RecomputeInTx(ctx, stores, Trigger{SchoolID: id, Round: round.First})
		if err != nil {
			return err
		}
		signals = len(res.Signals)

		created, err = stores.Schools.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.coordinator.notifyCommitted(signals)
	return recordToSchool(created), nil
}

// GetSchool retrieves a school by ID.
func (s *SchoolServiceImpl) GetSchool(ctx context.Context, schoolID string) (*primary.School, error) {
	record, err := s.tx.Stores().Schools.GetByID(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	return recordToSchool(record), nil
}

// ListSchools retrieves all schools.
func (s *SchoolServiceImpl) ListSchools(ctx context.Context) ([]*primary.School, error) {
	records, err := s.tx.Stores().Schools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}

	schools := make([]*primary.School, len(records))
	for i, r := range records {
		schools[i] = recordToSchool(r)
	}
	return schools, nil
}

// AdvanceRound moves a school into its next round and recomputes progression
// against the new round's empty baseline.
func (s *SchoolServiceImpl) AdvanceRound(ctx context.Context, req primary.AdvanceRoundRequest) (*primary.AdvanceRoundResponse, error) {
	actor := ctxutil.ActorFromContext(ctx)

	unlock := s.coordinator.locks.Lock(req.SchoolID)
	defer unlock()

	resp := &primary.AdvanceRoundResponse{SchoolID: req.SchoolID}
	var signals int
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		school, err := stores.Schools.GetByID(ctx, req.SchoolID)
		if err != nil {
			return err
		}

		// 1. The current round's award decides whether advancing is allowed
		stored, err := stores.Progression.Get(ctx, req.SchoolID)
		if err != nil {
			return fmt.Errorf("failed to get progression: %w", err)
		}
		awarded := stored != nil && stored.CurrentRound == school.CurrentRound && stored.AwardCompleted

		guardCtx := round.AdvanceContext{
			SchoolID:       req.SchoolID,
			CurrentRound:   school.CurrentRound,
			AwardCompleted: awarded,
			ActorIsAdmin:   actor.Admin,
			Force:          req.Force,
		}
		if err := round.CanAdvance(guardCtx).Error(); err != nil {
			return err
		}

		// 2. Move to the next round
		next := round.Next(school.CurrentRound)
		if err := stores.Schools.UpdateRound(ctx, req.SchoolID, next); err != nil {
			return fmt.Errorf("failed to advance round: %w", err)
		}
		if err := stores.Log.LogUpdate(ctx, req.SchoolID, "school", req.SchoolID, "current_round",
			strconv.Itoa(school.CurrentRound), strconv.Itoa(next)); err != nil {
			return fmt.Errorf("failed to log round advance: %w", err)
		}

		// 3. Recompute the new round
		res, err := s.coordinator.RecomputeInTx(ctx, stores, Trigger{SchoolID: req.SchoolID, Round: next})
		if err != nil {
			return err
		}

		resp.PreviousRound = school.CurrentRound
		resp.NewRound = next
		resp.Progression = res.Progression
		signals = len(res.Signals)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.coordinator.notifyCommitted(signals)
	return resp, nil
}

// Helper methods

func recordToSchool(r *secondary.SchoolRecord) *primary.School {
	return &primary.School{
		ID:           r.ID,
		Name:         r.Name,
		CurrentRound: r.CurrentRound,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// Ensure SchoolServiceImpl implements the interface.
var _ primary.SchoolService = (*SchoolServiceImpl)(nil)
