package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/ports/secondary"
)

// Entity types written to a school's activity trail.
var activityEntities = []string{"evidence", "override", "requirement", "school"}

// LogServiceImpl reads and trims the activity trail that every evidence,
// override, requirement and round change leaves behind.
type LogServiceImpl struct {
	activity secondary.ActivityLogRepository
}

func NewLogService(activity secondary.ActivityLogRepository) *LogServiceImpl {
	return &LogServiceImpl{activity: activity}
}

// ListLogs returns a school's activity, newest first. Requirement changes
// are catalog-wide and carry no school ID.
func (s *LogServiceImpl) ListLogs(ctx context.Context, filters primary.LogFilters) ([]*primary.LogEntry, error) {
	if filters.EntityType != "" && !slices.Contains(activityEntities, filters.EntityType) {
		return nil, fmt.Errorf("unknown entity type %q (want one of %s)", filters.EntityType, strings.Join(activityEntities, ", "))
	}

	records, err := s.activity.List(ctx, secondary.ActivityLogFilters{
		SchoolID:   filters.SchoolID,
		EntityType: filters.EntityType,
		EntityID:   filters.EntityID,
		ActorID:    filters.ActorID,
		Action:     filters.Action,
		Limit:      filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	entries := make([]*primary.LogEntry, len(records))
	for i, r := range records {
		entries[i] = toLogEntry(r)
	}
	return entries, nil
}

// PruneLogs drops activity older than olderThanDays. Evidence and
// progression rows are untouched.
func (s *LogServiceImpl) PruneLogs(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays < 1 {
		return 0, fmt.Errorf("days must be at least 1 (got %d)", olderThanDays)
	}
	return s.activity.PruneOlderThan(ctx, olderThanDays)
}

func toLogEntry(r *secondary.ActivityLogRecord) *primary.LogEntry {
	return &primary.LogEntry{
		ID:         r.ID,
		SchoolID:   r.SchoolID,
		ActorID:    r.ActorID,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Action:     r.Action,
		FieldName:  r.FieldName,
		OldValue:   r.OldValue,
		NewValue:   r.NewValue,
		CreatedAt:  r.CreatedAt,
	}
}

var _ primary.LogService = (*LogServiceImpl)(nil)
