package secondary

import (
	"context"

	"github.com/example/ecoprog/internal/core/effects"
)

// SignalSubscriber receives progression signals after they are committed.
// Certificate issuance and notification delivery live behind this port.
// Delivery is at-least-once: subscribers deduplicate with Signal.DedupeKey.
type SignalSubscriber interface {
	// Name identifies the subscriber in logs and metrics.
	Name() string

	// HandleSignal processes one signal. Errors are retried by the dispatcher
	// unless marked permanent with backoff.Permanent.
	HandleSignal(ctx context.Context, signal effects.Signal) error
}

// SignalNotifier is poked after a transaction that enqueued signals commits.
type SignalNotifier interface {
	Notify()
}
