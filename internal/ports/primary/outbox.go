package primary

import "context"

// OutboxService defines the primary port for signal delivery.
type OutboxService interface {
	// DispatchOnce leases and delivers one batch of due signals.
	DispatchOnce(ctx context.Context) (*DispatchResult, error)

	// Run dispatches until ctx is cancelled.
	Run(ctx context.Context) error

	// ListSignals lists outbox rows matching the filters.
	ListSignals(ctx context.Context, filters SignalFilters) ([]*Signal, error)
}

// DispatchResult summarizes one dispatch pass.
type DispatchResult struct {
	Leased    int
	Succeeded int
	Retried   int
	Dead      int
}

// SignalFilters contains filter options for listing signals.
type SignalFilters struct {
	Status   string
	SchoolID string
	Limit    int
}

// Signal represents an outbox row at the port boundary.
type Signal struct {
	ID            string
	Type          string
	SchoolID      string
	DedupeKey     string
	Status        string
	AttemptCount  int
	NextAttemptAt string
	LastError     string
	ProcessedAt   string
	CreatedAt     string
}
