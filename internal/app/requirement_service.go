package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/ecoprog/internal/core/requirement"
	"github.com/example/ecoprog/internal/core/stage"
	"github.com/example/ecoprog/internal/ctxutil"
	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/ports/secondary"
)

// errAdminOnly is returned when a non-admin edits the catalog.
var errAdminOnly = errors.New("only admins can manage requirements")

// RequirementServiceImpl implements the RequirementService interface.
// Catalog changes alter every school's required set, so each committed
// change is followed by a catalog-wide recompute.
type RequirementServiceImpl struct {
	tx          secondary.Transactor
	coordinator *ProgressionCoordinator
	logger      *zap.Logger
}

// NewRequirementService creates a new RequirementService with injected dependencies.
func NewRequirementService(tx secondary.Transactor, coordinator *ProgressionCoordinator, logger *zap.Logger) *RequirementServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequirementServiceImpl{
		tx:          tx,
		coordinator: coordinator,
		logger:      logger,
	}
}

// CreateRequirement adds a requirement and recomputes every school.
func (s *RequirementServiceImpl) CreateRequirement(ctx context.Context, req primary.CreateRequirementRequest) (*primary.Requirement, error) {
	if !ctxutil.ActorFromContext(ctx).Admin {
		return nil, errAdminOnly
	}

	var created *secondary.RequirementRecord
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		st := stage.Stage(req.Stage)
		title := strings.TrimSpace(req.Title)

		// 1. Resolve order: nil appends after the stage's last requirement
		order := 0
		if req.OrderIndex != nil {
			order = *req.OrderIndex
		} else if st.Valid() {
			existing, err := stores.Requirements.List(ctx, req.Stage)
			if err != nil {
				return fmt.Errorf("failed to list requirements: %w", err)
			}
			order = 1
			for _, r := range existing {
				if r.OrderIndex >= order {
					order = r.OrderIndex + 1
				}
			}
		}

		// 2. Check guard
		if err := requirement.CanCreate(requirement.CreateContext{Stage: st, Title: title, OrderIndex: order}).Error(); err != nil {
			return err
		}

		// 3. Persist
		id, err := stores.Requirements.GetNextID(ctx)
		if err != nil {
			return fmt.Errorf("failed to generate requirement ID: %w", err)
		}
		record := &secondary.RequirementRecord{
			ID:           id,
			Stage:        req.Stage,
			OrderIndex:   order,
			Title:        title,
			ResourceRefs: req.ResourceRefs,
		}
		if err := stores.Requirements.Create(ctx, record); err != nil {
			return fmt.Errorf("failed to create requirement: %w", err)
		}
		if err := stores.Log.LogCreate(ctx, "", "requirement", id); err != nil {
			return fmt.Errorf("failed to log requirement: %w", err)
		}

		created, err = stores.Requirements.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recomputeCatalog(ctx, "create", created.ID)
	return recordToRequirement(created), nil
}

// GetRequirement retrieves a requirement by ID.
func (s *RequirementServiceImpl) GetRequirement(ctx context.Context, requirementID string) (*primary.Requirement, error) {
	record, err := s.tx.Stores().Requirements.GetByID(ctx, requirementID)
	if err != nil {
		return nil, err
	}
	return recordToRequirement(record), nil
}

// UpdateRequirement changes title, order, resources or (while unreferenced) stage.
func (s *RequirementServiceImpl) UpdateRequirement(ctx context.Context, req primary.UpdateRequirementRequest) (*primary.Requirement, error) {
	if !ctxutil.ActorFromContext(ctx).Admin {
		return nil, errAdminOnly
	}

	var (
		updated      *secondary.RequirementRecord
		stageChanged bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		record, err := stores.Requirements.GetByID(ctx, req.RequirementID)
		if err != nil {
			return err
		}

		// 1. Gather guard context
		guardCtx := requirement.UpdateContext{
			RequirementID: req.RequirementID,
			CurrentStage:  stage.Stage(record.Stage),
			NewOrderIndex: req.OrderIndex,
		}
		if req.Stage != nil {
			guardCtx.NewStage = stage.Stage(*req.Stage)
		}
		if guardCtx.NewStage != "" && guardCtx.NewStage != guardCtx.CurrentStage {
			if guardCtx.EvidenceCount, err = stores.Evidence.CountByRequirement(ctx, req.RequirementID); err != nil {
				return fmt.Errorf("failed to count evidence: %w", err)
			}
			if guardCtx.OverrideCount, err = stores.Overrides.CountByRequirement(ctx, req.RequirementID); err != nil {
				return fmt.Errorf("failed to count overrides: %w", err)
			}
		}

		// 2. Check guard
		if err := requirement.CanUpdate(guardCtx).Error(); err != nil {
			return err
		}

		// 3. Apply and log field changes
		var changes []fieldChange
		if guardCtx.NewStage != "" && guardCtx.NewStage != guardCtx.CurrentStage {
			changes = append(changes, fieldChange{"stage", record.Stage, string(guardCtx.NewStage)})
			record.Stage = string(guardCtx.NewStage)
			stageChanged = true
		}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return fmt.Errorf("requirement title is required")
			}
			if title != record.Title {
				changes = append(changes, fieldChange{"title", record.Title, title})
				record.Title = title
			}
		}
		if req.OrderIndex != nil && *req.OrderIndex != record.OrderIndex {
			changes = append(changes, fieldChange{"order_index", strconv.Itoa(record.OrderIndex), strconv.Itoa(*req.OrderIndex)})
			record.OrderIndex = *req.OrderIndex
		}
		if req.SetResources {
			old, next := strings.Join(record.ResourceRefs, ","), strings.Join(req.ResourceRefs, ",")
			if old != next {
				changes = append(changes, fieldChange{"resource_refs", old, next})
				record.ResourceRefs = req.ResourceRefs
			}
		}

		if len(changes) == 0 {
			updated = record
			return nil
		}

		if err := stores.Requirements.Update(ctx, record); err != nil {
			return fmt.Errorf("failed to update requirement: %w", err)
		}
		for _, c := range changes {
			if err := stores.Log.LogUpdate(ctx, "", "requirement", record.ID, c.field, c.old, c.new); err != nil {
				return fmt.Errorf("failed to log requirement update: %w", err)
			}
		}

		updated, err = stores.Requirements.GetByID(ctx, record.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if stageChanged {
		s.recomputeCatalog(ctx, "update", updated.ID)
	}
	return recordToRequirement(updated), nil
}

// DeleteRequirement removes an unreferenced requirement and recomputes every school.
func (s *RequirementServiceImpl) DeleteRequirement(ctx context.Context, requirementID string) error {
	if !ctxutil.ActorFromContext(ctx).Admin {
		return errAdminOnly
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		if _, err := stores.Requirements.GetByID(ctx, requirementID); err != nil {
			return err
		}

		// 1. Gather reference counts
		evidenceCount, err := stores.Evidence.CountByRequirement(ctx, requirementID)
		if err != nil {
			return fmt.Errorf("failed to count evidence: %w", err)
		}
		overrideCount, err := stores.Overrides.CountByRequirement(ctx, requirementID)
		if err != nil {
			return fmt.Errorf("failed to count overrides: %w", err)
		}

		// 2. Check guard
		guardCtx := requirement.DeleteContext{
			RequirementID: requirementID,
			EvidenceCount: evidenceCount,
			OverrideCount: overrideCount,
		}
		if err := requirement.CanDelete(guardCtx).Error(); err != nil {
			return err
		}

		// 3. Delete; the schema refuses a reference that appeared meanwhile
		if err := stores.Requirements.Delete(ctx, requirementID); err != nil {
			return fmt.Errorf("failed to delete requirement: %w", err)
		}
		if err := stores.Log.LogDelete(ctx, "", "requirement", requirementID); err != nil {
			return fmt.Errorf("failed to log requirement delete: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recomputeCatalog(ctx, "delete", requirementID)
	return nil
}

// ListRequirements lists the catalog ordered by stage and order index.
func (s *RequirementServiceImpl) ListRequirements(ctx context.Context, stageFilter string) ([]*primary.Requirement, error) {
	if stageFilter != "" {
		if _, err := stage.Parse(stageFilter); err != nil {
			return nil, err
		}
	}

	records, err := s.tx.Stores().Requirements.List(ctx, stageFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}

	requirements := make([]*primary.Requirement, len(records))
	for i, r := range records {
		requirements[i] = recordToRequirement(r)
	}
	return requirements, nil
}

// Helper methods

// recomputeCatalog recomputes every school after a committed catalog change.
// The catalog change stands even if some schools fail; they are logged and
// picked up by the next recompute.
func (s *RequirementServiceImpl) recomputeCatalog(ctx context.Context, action, requirementID string) {
	summary, err := s.coordinator.RecomputeAll(ctx)
	if err != nil {
		s.logger.Warn("catalog recompute incomplete",
			zap.String("action", action),
			zap.String("requirement_id", requirementID),
			zap.Error(err))
		return
	}
	s.logger.Debug("catalog recompute finished",
		zap.String("action", action),
		zap.String("requirement_id", requirementID),
		zap.Int("schools", summary.Schools),
		zap.Int("changed", summary.Changed))
}

func recordToRequirement(r *secondary.RequirementRecord) *primary.Requirement {
	return &primary.Requirement{
		ID:           r.ID,
		Stage:        r.Stage,
		OrderIndex:   r.OrderIndex,
		Title:        r.Title,
		ResourceRefs: r.ResourceRefs,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// Ensure RequirementServiceImpl implements the interface.
var _ primary.RequirementService = (*RequirementServiceImpl)(nil)
