package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/example/ecoprog/internal/ports/primary"
)

// OutboxAdapter translates CLI operations to OutboxService calls.
type OutboxAdapter struct {
	service primary.OutboxService
	out     io.Writer
}

// NewOutboxAdapter creates a new OutboxAdapter.
func NewOutboxAdapter(service primary.OutboxService, out io.Writer) *OutboxAdapter {
	return &OutboxAdapter{service: service, out: out}
}

// DispatchOnce delivers one batch and prints the tally.
func (a *OutboxAdapter) DispatchOnce(ctx context.Context) error {
	res, err := a.service.DispatchOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Dispatched %d signals: %d succeeded, %d retrying, %d dead\n",
		res.Leased, res.Succeeded, res.Retried, res.Dead)
	return nil
}

// List lists outbox rows.
func (a *OutboxAdapter) List(ctx context.Context, filters primary.SignalFilters) error {
	signals, err := a.service.ListSignals(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list signals: %w", err)
	}

	if len(signals) == 0 {
		fmt.Fprintln(a.out, "No signals found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-11s %-8s %s\n", "STATUS", "ATTEMPTS", "DEDUPE KEY")
	fmt.Fprintln(a.out, rule)
	for _, s := range signals {
		status := statusLabel(s.Status) + spaces(11-len(s.Status))
		fmt.Fprintf(a.out, "%s %-8d %s\n", status, s.AttemptCount, s.DedupeKey)
		if s.LastError != "" {
			fmt.Fprintf(a.out, "            last error: %s\n", s.LastError)
		}
	}
	fmt.Fprintln(a.out)

	return nil
}
