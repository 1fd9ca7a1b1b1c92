package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/ecoprog/internal/ports/secondary"
)

// ProgressionRepository implements secondary.ProgressionRepository with SQLite.
type ProgressionRepository struct {
	db DBTX
}

// NewProgressionRepository creates a new SQLite progression repository.
func NewProgressionRepository(db DBTX) *ProgressionRepository {
	return &ProgressionRepository{db: db}
}

const progressionColumns = `school_id, current_stage, current_round, inspire_completed, investigate_completed,
	act_completed, award_completed, progress_percentage, rounds_completed, updated_at`

// Get retrieves the progression record for a school, or nil when none exists.
func (r *ProgressionRepository) Get(ctx context.Context, schoolID string) (*secondary.ProgressionRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+progressionColumns+" FROM school_progress WHERE school_id = ?", schoolID)
	record, err := scanProgression(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progression: %w", err)
	}
	return record, nil
}

// Upsert writes the progression record for a school.
func (r *ProgressionRepository) Upsert(ctx context.Context, p *secondary.ProgressionRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO school_progress (school_id, current_stage, current_round, inspire_completed, investigate_completed,
			act_completed, award_completed, progress_percentage, rounds_completed, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(school_id) DO UPDATE SET
			current_stage = excluded.current_stage,
			current_round = excluded.current_round,
			inspire_completed = excluded.inspire_completed,
			investigate_completed = excluded.investigate_completed,
			act_completed = excluded.act_completed,
			award_completed = excluded.award_completed,
			progress_percentage = excluded.progress_percentage,
			rounds_completed = excluded.rounds_completed,
			updated_at = CURRENT_TIMESTAMP`,
		p.SchoolID,
		p.CurrentStage,
		p.CurrentRound,
		boolToInt(p.InspireCompleted),
		boolToInt(p.InvestigateCompleted),
		boolToInt(p.ActCompleted),
		boolToInt(p.AwardCompleted),
		p.ProgressPercentage,
		p.RoundsCompleted,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert progression: %w", err)
	}

	return nil
}

// List retrieves all progression records ordered by school ID.
func (r *ProgressionRepository) List(ctx context.Context) ([]*secondary.ProgressionRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+progressionColumns+" FROM school_progress ORDER BY school_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list progression: %w", err)
	}
	defer rows.Close()

	var list []*secondary.ProgressionRecord
	for rows.Next() {
		record, err := scanProgression(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progression: %w", err)
		}
		list = append(list, record)
	}

	return list, rows.Err()
}

func scanProgression(scan func(dest ...any) error) (*secondary.ProgressionRecord, error) {
	var (
		inspire, investigate, act, award int
		updatedAt                        time.Time
	)

	record := &secondary.ProgressionRecord{}
	err := scan(&record.SchoolID,
		&record.CurrentStage,
		&record.CurrentRound,
		&inspire,
		&investigate,
		&act,
		&award,
		&record.ProgressPercentage,
		&record.RoundsCompleted,
		&updatedAt)
	if err != nil {
		return nil, err
	}

	record.InspireCompleted = inspire == 1
	record.InvestigateCompleted = investigate == 1
	record.ActCompleted = act == 1
	record.AwardCompleted = award == 1
	record.UpdatedAt = formatTime(updatedAt)

	return record, nil
}

// Ensure ProgressionRepository implements the interface.
var _ secondary.ProgressionRepository = (*ProgressionRepository)(nil)
