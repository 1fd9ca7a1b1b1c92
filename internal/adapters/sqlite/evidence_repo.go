package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/ecoprog/internal/ports/secondary"
)

// EvidenceRepository implements secondary.EvidenceRepository with SQLite.
type EvidenceRepository struct {
	db DBTX
}

// NewEvidenceRepository creates a new SQLite evidence repository.
func NewEvidenceRepository(db DBTX) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

const evidenceColumns = `id, school_id, submitted_by, stage, round_number, status, requirement_id, visibility, title,
	file_ref, reviewed_by, reviewed_at, review_notes, created_at, updated_at`

// Create persists a new evidence submission.
func (r *EvidenceRepository) Create(ctx context.Context, evidence *secondary.EvidenceRecord) error {
	reviewedAt, err := parseNullTime(evidence.ReviewedAt)
	if err != nil {
		return fmt.Errorf("invalid reviewed_at: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO evidence (id, school_id, submitted_by, stage, round_number, status, requirement_id, visibility, title, file_ref, reviewed_by, reviewed_at, review_notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evidence.ID,
		evidence.SchoolID,
		evidence.SubmittedBy,
		evidence.Stage,
		evidence.RoundNumber,
		evidence.Status,
		nullString(evidence.RequirementID),
		evidence.Visibility,
		evidence.Title,
		nullString(evidence.FileRef),
		nullString(evidence.ReviewedBy),
		reviewedAt,
		nullString(evidence.ReviewNotes),
	)
	if err != nil {
		return fmt.Errorf("failed to create evidence: %w", err)
	}

	return nil
}

// GetByID retrieves an evidence submission by its ID.
func (r *EvidenceRepository) GetByID(ctx context.Context, id string) (*secondary.EvidenceRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+evidenceColumns+" FROM evidence WHERE id = ?", id)
	record, err := scanEvidence(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("evidence %s %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evidence: %w", err)
	}
	return record, nil
}

// Update writes the mutable columns. round_number is never written.
func (r *EvidenceRepository) Update(ctx context.Context, evidence *secondary.EvidenceRecord) error {
	reviewedAt, err := parseNullTime(evidence.ReviewedAt)
	if err != nil {
		return fmt.Errorf("invalid reviewed_at: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE evidence SET
			status = ?,
			requirement_id = ?,
			visibility = ?,
			title = ?,
			file_ref = ?,
			reviewed_by = ?,
			reviewed_at = ?,
			review_notes = ?,
			updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		evidence.Status,
		nullString(evidence.RequirementID),
		evidence.Visibility,
		evidence.Title,
		nullString(evidence.FileRef),
		nullString(evidence.ReviewedBy),
		reviewedAt,
		nullString(evidence.ReviewNotes),
		evidence.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update evidence: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("evidence %s %w", evidence.ID, secondary.ErrNotFound)
	}

	return nil
}

// Delete removes an evidence submission.
func (r *EvidenceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM evidence WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete evidence: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("evidence %s %w", id, secondary.ErrNotFound)
	}

	return nil
}

// List retrieves evidence matching the given filters.
func (r *EvidenceRepository) List(ctx context.Context, filters secondary.EvidenceFilters) ([]*secondary.EvidenceRecord, error) {
	query := "SELECT " + evidenceColumns + " FROM evidence WHERE 1=1"
	args := []any{}

	if filters.SchoolID != "" {
		query += " AND school_id = ?"
		args = append(args, filters.SchoolID)
	}

	if filters.Stage != "" {
		query += " AND stage = ?"
		args = append(args, filters.Stage)
	}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}

	if filters.Visibility != "" {
		query += " AND visibility = ?"
		args = append(args, filters.Visibility)
	}

	if filters.RequirementID != "" {
		query += " AND requirement_id = ?"
		args = append(args, filters.RequirementID)
	}

	if filters.Round > 0 {
		query += " AND round_number = ?"
		args = append(args, filters.Round)
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	var list []*secondary.EvidenceRecord
	for rows.Next() {
		record, err := scanEvidence(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		list = append(list, record)
	}

	return list, rows.Err()
}

// CountApprovedByRequirement counts approved, linked evidence per requirement
// for one school, stage and round.
func (r *EvidenceRepository) CountApprovedByRequirement(ctx context.Context, schoolID, stage string, round int) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT requirement_id, COUNT(*) FROM evidence
		 WHERE school_id = ? AND stage = ? AND round_number = ? AND status = 'approved' AND requirement_id IS NOT NULL
		 GROUP BY requirement_id`,
		schoolID, stage, round,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count approved evidence: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			requirementID string
			n             int
		)
		if err := rows.Scan(&requirementID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan evidence count: %w", err)
		}
		counts[requirementID] = n
	}

	return counts, rows.Err()
}

// HasAnyApproved reports whether any approved evidence exists for one
// school, stage and round.
func (r *EvidenceRepository) HasAnyApproved(ctx context.Context, schoolID, stage string, round int) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM evidence
		 WHERE school_id = ? AND stage = ? AND round_number = ? AND status = 'approved')`,
		schoolID, stage, round,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check approved evidence: %w", err)
	}
	return exists == 1, nil
}

// CountByRequirement counts evidence of any status linked to a requirement.
func (r *EvidenceRepository) CountByRequirement(ctx context.Context, requirementID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM evidence WHERE requirement_id = ?",
		requirementID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count evidence for requirement: %w", err)
	}
	return count, nil
}

func scanEvidence(scan func(dest ...any) error) (*secondary.EvidenceRecord, error) {
	var (
		requirementID sql.NullString
		fileRef       sql.NullString
		reviewedBy    sql.NullString
		reviewedAt    sql.NullTime
		reviewNotes   sql.NullString
		createdAt     time.Time
		updatedAt     time.Time
	)

	record := &secondary.EvidenceRecord{}
	err := scan(&record.ID,
		&record.SchoolID,
		&record.SubmittedBy,
		&record.Stage,
		&record.RoundNumber,
		&record.Status,
		&requirementID,
		&record.Visibility,
		&record.Title,
		&fileRef,
		&reviewedBy,
		&reviewedAt,
		&reviewNotes,
		&createdAt,
		&updatedAt)
	if err != nil {
		return nil, err
	}

	record.RequirementID = requirementID.String
	record.FileRef = fileRef.String
	record.ReviewedBy = reviewedBy.String
	record.ReviewedAt = formatNullTime(reviewedAt)
	record.ReviewNotes = reviewNotes.String
	record.CreatedAt = formatTime(createdAt)
	record.UpdatedAt = formatTime(updatedAt)

	return record, nil
}

// Ensure EvidenceRepository implements the interface.
var _ secondary.EvidenceRepository = (*EvidenceRepository)(nil)
