package sqlite

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/ecoprog/internal/ctxutil"
	"github.com/example/ecoprog/internal/ports/secondary"
)

// LogWriterAdapter implements secondary.LogWriter using ActivityLogRepository.
type LogWriterAdapter struct {
	logRepo secondary.ActivityLogRepository
}

// NewLogWriterAdapter creates a new LogWriterAdapter.
func NewLogWriterAdapter(logRepo secondary.ActivityLogRepository) *LogWriterAdapter {
	return &LogWriterAdapter{logRepo: logRepo}
}

// LogCreate logs a create operation for an entity.
func (w *LogWriterAdapter) LogCreate(ctx context.Context, schoolID, entityType, entityID string) error {
	return w.writeLog(ctx, schoolID, entityType, entityID, "create", "", "", "")
}

// LogUpdate logs an update operation for an entity field.
func (w *LogWriterAdapter) LogUpdate(ctx context.Context, schoolID, entityType, entityID, fieldName, oldValue, newValue string) error {
	return w.writeLog(ctx, schoolID, entityType, entityID, "update", fieldName, oldValue, newValue)
}

// LogDelete logs a delete operation for an entity.
func (w *LogWriterAdapter) LogDelete(ctx context.Context, schoolID, entityType, entityID string) error {
	return w.writeLog(ctx, schoolID, entityType, entityID, "delete", "", "", "")
}

func (w *LogWriterAdapter) writeLog(ctx context.Context, schoolID, entityType, entityID, action, fieldName, oldValue, newValue string) error {
	record := &secondary.ActivityLogRecord{
		ID:         uuid.NewString(),
		SchoolID:   schoolID,
		ActorID:    ctxutil.ActorIDFromContext(ctx),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		FieldName:  fieldName,
		OldValue:   oldValue,
		NewValue:   newValue,
	}

	return w.logRepo.Create(ctx, record)
}

// Ensure LogWriterAdapter implements the interface
var _ secondary.LogWriter = (*LogWriterAdapter)(nil)
