package sqlite

import (
	"context"
	"fmt"

	"github.com/example/ecoprog/internal/ports/secondary"
)

// RoundAwardRepository implements secondary.RoundAwardRepository with SQLite.
type RoundAwardRepository struct {
	db DBTX
}

// NewRoundAwardRepository creates a new SQLite round award repository.
func NewRoundAwardRepository(db DBTX) *RoundAwardRepository {
	return &RoundAwardRepository{db: db}
}

// Record marks a round as awarded.
func (r *RoundAwardRepository) Record(ctx context.Context, schoolID string, round int) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO round_awards (school_id, round_number) VALUES (?, ?)",
		schoolID, round,
	)
	if err != nil {
		return fmt.Errorf("failed to record round award: %w", err)
	}
	return nil
}

// Remove clears the award for a round.
func (r *RoundAwardRepository) Remove(ctx context.Context, schoolID string, round int) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM round_awards WHERE school_id = ? AND round_number = ?",
		schoolID, round,
	)
	if err != nil {
		return fmt.Errorf("failed to remove round award: %w", err)
	}
	return nil
}

// ListRounds returns the awarded rounds for a school in ascending order.
func (r *RoundAwardRepository) ListRounds(ctx context.Context, schoolID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT round_number FROM round_awards WHERE school_id = ? ORDER BY round_number ASC",
		schoolID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list round awards: %w", err)
	}
	defer rows.Close()

	var rounds []int
	for rows.Next() {
		var round int
		if err := rows.Scan(&round); err != nil {
			return nil, fmt.Errorf("failed to scan round award: %w", err)
		}
		rounds = append(rounds, round)
	}

	return rounds, rows.Err()
}

// Ensure RoundAwardRepository implements the interface.
var _ secondary.RoundAwardRepository = (*RoundAwardRepository)(nil)
