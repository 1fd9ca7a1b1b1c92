package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/ecoprog/internal/core/requirement"
	"github.com/example/ecoprog/internal/ports/secondary"
)

// RequirementRepository implements secondary.RequirementRepository with SQLite.
type RequirementRepository struct {
	db DBTX
}

// NewRequirementRepository creates a new SQLite requirement repository.
func NewRequirementRepository(db DBTX) *RequirementRepository {
	return &RequirementRepository{db: db}
}

const requirementColumns = "id, stage, order_index, title, resource_refs, created_at, updated_at"

// Create persists a new requirement.
func (r *RequirementRepository) Create(ctx context.Context, req *secondary.RequirementRecord) error {
	refs, err := encodeRefs(req.ResourceRefs)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO requirements (id, stage, order_index, title, resource_refs) VALUES (?, ?, ?, ?, ?)",
		req.ID, req.Stage, req.OrderIndex, req.Title, refs,
	)
	if err != nil {
		return fmt.Errorf("failed to create requirement: %w", err)
	}

	return nil
}

// GetByID retrieves a requirement by its ID.
func (r *RequirementRepository) GetByID(ctx context.Context, id string) (*secondary.RequirementRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+requirementColumns+" FROM requirements WHERE id = ?",
		id,
	)
	record, err := scanRequirement(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("requirement %s %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get requirement: %w", err)
	}
	return record, nil
}

// Update writes stage, order, title and resource refs.
func (r *RequirementRepository) Update(ctx context.Context, req *secondary.RequirementRecord) error {
	refs, err := encodeRefs(req.ResourceRefs)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE requirements
		 SET stage = ?, order_index = ?, title = ?, resource_refs = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		req.Stage, req.OrderIndex, req.Title, refs, req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update requirement: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("requirement %s %w", req.ID, secondary.ErrNotFound)
	}

	return nil
}

// Delete removes a requirement. A requirement still referenced by evidence
// or overrides is refused by the schema and reported as ErrRequirementInUse.
func (r *RequirementRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM requirements WHERE id = ?", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: requirement %s is still referenced", requirement.ErrRequirementInUse, id)
		}
		return fmt.Errorf("failed to delete requirement: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("requirement %s %w", id, secondary.ErrNotFound)
	}

	return nil
}

// List retrieves requirements ordered by stage, order index, then ID.
func (r *RequirementRepository) List(ctx context.Context, stage string) ([]*secondary.RequirementRecord, error) {
	query := "SELECT " + requirementColumns + " FROM requirements"
	args := []any{}
	if stage != "" {
		query += " WHERE stage = ?"
		args = append(args, stage)
	}
	query += ` ORDER BY CASE stage WHEN 'inspire' THEN 0 WHEN 'investigate' THEN 1 ELSE 2 END, order_index ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}
	defer rows.Close()

	var requirements []*secondary.RequirementRecord
	for rows.Next() {
		record, err := scanRequirement(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		requirements = append(requirements, record)
	}

	return requirements, rows.Err()
}

// GetNextID returns the next available requirement ID.
func (r *RequirementRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 5) AS INTEGER)), 0) FROM requirements WHERE id LIKE 'REQ-%'",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next requirement ID: %w", err)
	}

	return fmt.Sprintf("REQ-%03d", maxID+1), nil
}

func scanRequirement(scan func(dest ...any) error) (*secondary.RequirementRecord, error) {
	var (
		refs      string
		createdAt time.Time
		updatedAt time.Time
	)

	record := &secondary.RequirementRecord{}
	if err := scan(&record.ID, &record.Stage, &record.OrderIndex, &record.Title, &refs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if refs != "" {
		if err := json.Unmarshal([]byte(refs), &record.ResourceRefs); err != nil {
			return nil, fmt.Errorf("decode resource refs for %s: %w", record.ID, err)
		}
	}
	record.CreatedAt = formatTime(createdAt)
	record.UpdatedAt = formatTime(updatedAt)
	return record, nil
}

func encodeRefs(refs []string) (string, error) {
	if refs == nil {
		refs = []string{}
	}
	data, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("encode resource refs: %w", err)
	}
	return string(data), nil
}

// Ensure RequirementRepository implements the interface.
var _ secondary.RequirementRepository = (*RequirementRepository)(nil)
