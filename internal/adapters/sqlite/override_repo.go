package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/ecoprog/internal/core/override"
	"github.com/example/ecoprog/internal/ports/secondary"
)

// OverrideRepository implements secondary.OverrideRepository with SQLite.
type OverrideRepository struct {
	db DBTX
}

// NewOverrideRepository creates a new SQLite override repository.
func NewOverrideRepository(db DBTX) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Insert persists a new override. The (school, requirement, round) unique
// constraint surfaces as override.ErrConcurrentOverrideConflict.
func (r *OverrideRepository) Insert(ctx context.Context, o *secondary.OverrideRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO overrides (id, school_id, requirement_id, round_number, stage, marked_by) VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.SchoolID, o.RequirementID, o.RoundNumber, o.Stage, o.MarkedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s/%s round %d", override.ErrConcurrentOverrideConflict, o.SchoolID, o.RequirementID, o.RoundNumber)
		}
		return fmt.Errorf("failed to create override: %w", err)
	}

	return nil
}

// Delete removes the override for a school, requirement and round.
func (r *OverrideRepository) Delete(ctx context.Context, schoolID, requirementID string, round int) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM overrides WHERE school_id = ? AND requirement_id = ? AND round_number = ?",
		schoolID, requirementID, round,
	)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("override %s/%s round %d %w", schoolID, requirementID, round, secondary.ErrNotFound)
	}

	return nil
}

// OverridesFor returns the requirement IDs overridden for a school and round.
func (r *OverrideRepository) OverridesFor(ctx context.Context, schoolID string, round int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT requirement_id FROM overrides WHERE school_id = ? AND round_number = ? ORDER BY requirement_id",
		schoolID, round,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// List retrieves overrides for a school, optionally for one round.
func (r *OverrideRepository) List(ctx context.Context, schoolID string, round int) ([]*secondary.OverrideRecord, error) {
	query := `SELECT id, school_id, requirement_id, round_number, stage, marked_by, created_at FROM overrides WHERE school_id = ?`
	args := []any{schoolID}

	if round > 0 {
		query += " AND round_number = ?"
		args = append(args, round)
	}

	query += " ORDER BY round_number ASC, requirement_id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	defer rows.Close()

	var list []*secondary.OverrideRecord
	for rows.Next() {
		var createdAt time.Time
		record := &secondary.OverrideRecord{}
		if err := rows.Scan(&record.ID, &record.SchoolID, &record.RequirementID, &record.RoundNumber, &record.Stage, &record.MarkedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		record.CreatedAt = formatTime(createdAt)
		list = append(list, record)
	}

	return list, rows.Err()
}

// CountByRequirement counts overrides referencing a requirement.
func (r *OverrideRepository) CountByRequirement(ctx context.Context, requirementID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM overrides WHERE requirement_id = ?",
		requirementID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overrides for requirement: %w", err)
	}
	return count, nil
}

// Ensure OverrideRepository implements the interface.
var _ secondary.OverrideRepository = (*OverrideRepository)(nil)
