package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/ecoprog/internal/ports/primary"
)

// LogAdapter translates CLI operations to LogService calls.
type LogAdapter struct {
	service primary.LogService
	out     io.Writer
}

// NewLogAdapter creates a new LogAdapter.
func NewLogAdapter(service primary.LogService, out io.Writer) *LogAdapter {
	return &LogAdapter{service: service, out: out}
}

// List prints activity log entries, newest first.
func (a *LogAdapter) List(ctx context.Context, filters primary.LogFilters) error {
	entries, err := a.service.ListLogs(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list logs: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No activity found")
		return nil
	}

	for _, e := range entries {
		fmt.Fprintf(a.out, "%s %s %s %s/%s",
			color.New(color.FgHiBlack).Sprint(e.CreatedAt),
			orDash(e.ActorID),
			actionLabel(e.Action),
			e.EntityType,
			e.EntityID,
		)
		if e.FieldName != "" {
			fmt.Fprintf(a.out, " %s: %s → %s", e.FieldName, orDash(e.OldValue), orDash(e.NewValue))
		}
		fmt.Fprintln(a.out)
	}

	return nil
}

// Prune deletes old entries.
func (a *LogAdapter) Prune(ctx context.Context, days int) error {
	count, err := a.service.PruneLogs(ctx, days)
	if err != nil {
		return fmt.Errorf("failed to prune logs: %w", err)
	}

	fmt.Fprintf(a.out, "✓ Pruned %d log entries older than %d days\n", count, days)
	return nil
}

func actionLabel(action string) string {
	switch action {
	case "create":
		return color.New(color.FgGreen).Sprint(action)
	case "delete":
		return color.New(color.FgRed).Sprint(action)
	default:
		return color.New(color.FgYellow).Sprint(action)
	}
}
