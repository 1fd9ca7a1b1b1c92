package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/ecoprog/internal/ports/secondary"
)

// SchoolRepository implements secondary.SchoolRepository with SQLite.
type SchoolRepository struct {
	db DBTX
}

// NewSchoolRepository creates a new SQLite school repository.
func NewSchoolRepository(db DBTX) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// Create persists a new school.
func (r *SchoolRepository) Create(ctx context.Context, school *secondary.SchoolRecord) error {
	round := school.CurrentRound
	if round < 1 {
		round = 1
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO schools (id, name, current_round) VALUES (?, ?, ?)",
		school.ID, school.Name, round,
	)
	if err != nil {
		return fmt.Errorf("failed to create school: %w", err)
	}

	return nil
}

// GetByID retrieves a school by its ID.
func (r *SchoolRepository) GetByID(ctx context.Context, id string) (*secondary.SchoolRecord, error) {
	var (
		createdAt time.Time
		updatedAt time.Time
	)

	record := &secondary.SchoolRecord{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, current_round, created_at, updated_at FROM schools WHERE id = ?",
		id,
	).Scan(&record.ID, &record.Name, &record.CurrentRound, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("school %s %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get school: %w", err)
	}

	record.CreatedAt = formatTime(createdAt)
	record.UpdatedAt = formatTime(updatedAt)

	return record, nil
}

// List retrieves all schools ordered by ID.
func (r *SchoolRepository) List(ctx context.Context) ([]*secondary.SchoolRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, current_round, created_at, updated_at FROM schools ORDER BY id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	defer rows.Close()

	var schools []*secondary.SchoolRecord
	for rows.Next() {
		var (
			createdAt time.Time
			updatedAt time.Time
		)

		record := &secondary.SchoolRecord{}
		if err := rows.Scan(&record.ID, &record.Name, &record.CurrentRound, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		record.CreatedAt = formatTime(createdAt)
		record.UpdatedAt = formatTime(updatedAt)

		schools = append(schools, record)
	}

	return schools, rows.Err()
}

// UpdateRound sets the school's current round.
func (r *SchoolRepository) UpdateRound(ctx context.Context, id string, round int) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE schools SET current_round = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		round, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update school round: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("school %s %w", id, secondary.ErrNotFound)
	}

	return nil
}

// GetNextID returns the next available school ID.
func (r *SchoolRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 5) AS INTEGER)), 0) FROM schools WHERE id LIKE 'SCH-%'",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next school ID: %w", err)
	}

	return fmt.Sprintf("SCH-%03d", maxID+1), nil
}

// Ensure SchoolRepository implements the interface.
var _ secondary.SchoolRepository = (*SchoolRepository)(nil)
