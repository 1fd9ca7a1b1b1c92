package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/ecoprog/internal/core/override"
	"github.com/example/ecoprog/internal/ctxutil"
	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/ports/secondary"
)

// OverrideServiceImpl implements the OverrideService interface.
type OverrideServiceImpl struct {
	tx          secondary.Transactor
	coordinator *ProgressionCoordinator
}

// NewOverrideService creates a new OverrideService with injected dependencies.
func NewOverrideService(tx secondary.Transactor, coordinator *ProgressionCoordinator) *OverrideServiceImpl {
	return &OverrideServiceImpl{
		tx:          tx,
		coordinator: coordinator,
	}
}

// ToggleOverride creates the override if absent, otherwise removes it.
// The insert is attempted first; the unique index decides which way the
// toggle goes, so two concurrent toggles can never both create a row.
func (s *OverrideServiceImpl) ToggleOverride(ctx context.Context, req primary.ToggleOverrideRequest) (*primary.ToggleOverrideResponse, error) {
	actor := ctxutil.ActorFromContext(ctx)

	unlock := s.coordinator.locks.Lock(req.SchoolID)
	defer unlock()

	resp := &primary.ToggleOverrideResponse{}
	var signals int
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		// 1. Gather guard context
		guardCtx := override.ToggleContext{
			SchoolID:      req.SchoolID,
			RequirementID: req.RequirementID,
			Round:         req.Round,
			ActorIsAdmin:  actor.Admin,
		}

		school, err := stores.Schools.GetByID(ctx, req.SchoolID)
		if err != nil && !errors.Is(err, secondary.ErrNotFound) {
			return fmt.Errorf("failed to get school: %w", err)
		}
		if school != nil {
			guardCtx.SchoolExists = true
			guardCtx.CurrentRound = school.CurrentRound
			if guardCtx.Round == 0 {
				guardCtx.Round = school.CurrentRound
			}
		}

		requirement, err := stores.Requirements.GetByID(ctx, req.RequirementID)
		if err != nil && !errors.Is(err, secondary.ErrNotFound) {
			return fmt.Errorf("failed to get requirement: %w", err)
		}
		guardCtx.RequirementExists = requirement != nil

		// 2. Check guard
		if err := override.CanToggle(guardCtx).Error(); err != nil {
			return err
		}
		resp.Round = guardCtx.Round

		// 3. Insert, or delete when the row already exists
		record := &secondary.OverrideRecord{
			ID:            uuid.NewString(),
			SchoolID:      req.SchoolID,
			RequirementID: req.RequirementID,
			RoundNumber:   guardCtx.Round,
			Stage:         requirement.Stage,
			MarkedBy:      actor.ID,
		}
		err = stores.Overrides.Insert(ctx, record)
		switch {
		case err == nil:
			resp.Created = true
			if err := stores.Log.LogCreate(ctx, req.SchoolID, "override", overrideEntityID(record)); err != nil {
				return fmt.Errorf("failed to log override: %w", err)
			}
		case errors.Is(err, override.ErrConcurrentOverrideConflict):
			if err := stores.Overrides.Delete(ctx, req.SchoolID, req.RequirementID, guardCtx.Round); err != nil {
				return fmt.Errorf("failed to remove override: %w", err)
			}
			if err := stores.Log.LogDelete(ctx, req.SchoolID, "override", overrideEntityID(record)); err != nil {
				return fmt.Errorf("failed to log override: %w", err)
			}
		default:
			return fmt.Errorf("failed to create override: %w", err)
		}

		// 4. Recompute in the same transaction
		res, err := s.coordinator.RecomputeInTx(ctx, stores, Trigger{SchoolID: req.SchoolID, Round: guardCtx.Round})
		if err != nil {
			return err
		}
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

// ListOverrides lists a school's overrides.
func (s *OverrideServiceImpl) ListOverrides(ctx context.Context, schoolID string, round int) ([]*primary.Override, error) {
	records, err := s.tx.Stores().Overrides.List(ctx, schoolID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}

	overrides := make([]*primary.Override, len(records))
	for i, r := range records {
		overrides[i] = &primary.Override{
			ID:            r.ID,
			SchoolID:      r.SchoolID,
			RequirementID: r.RequirementID,
			RoundNumber:   r.RoundNumber,
			Stage:         r.Stage,
			MarkedBy:      r.MarkedBy,
			CreatedAt:     r.CreatedAt,
		}
	}
	return overrides, nil
}

// overrideEntityID names an override by its natural key in the activity log,
// since a toggled-off row's surrogate ID is gone.
func overrideEntityID(r *secondary.OverrideRecord) string {
	return fmt.Sprintf("%s/%s/r%d", r.SchoolID, r.RequirementID, r.RoundNumber)
}

// Ensure OverrideServiceImpl implements the interface.
var _ primary.OverrideService = (*OverrideServiceImpl)(nil)
