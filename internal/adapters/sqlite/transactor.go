package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/ecoprog/internal/ports/secondary"
)

// Transactor implements secondary.Transactor over a *sql.DB.
// Opened through db.Open, every transaction begins IMMEDIATE and holds the
// database write lock until commit or rollback.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a new Transactor.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx runs fn in a transaction, committing when fn returns nil.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, stores secondary.Stores) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, NewStores(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Stores returns stores bound to the plain connection.
func (t *Transactor) Stores() secondary.Stores {
	return NewStores(t.db)
}

// NewStores binds every repository to the same connection or transaction.
func NewStores(conn DBTX) secondary.Stores {
	return secondary.Stores{
		Schools:      NewSchoolRepository(conn),
		Evidence:     NewEvidenceRepository(conn),
		Requirements: NewRequirementRepository(conn),
		Overrides:    NewOverrideRepository(conn),
		Progression:  NewProgressionRepository(conn),
		Awards:       NewRoundAwardRepository(conn),
		Outbox:       NewOutboxRepository(conn),
		Log:          NewLogWriterAdapter(NewActivityLogRepository(conn)),
	}
}

// Ensure Transactor implements the interface.
var _ secondary.Transactor = (*Transactor)(nil)
