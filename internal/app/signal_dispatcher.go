package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/example/ecoprog/internal/core/effects"
	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/ports/secondary"
	"github.com/example/ecoprog/internal/telemetry"
)

// DispatcherConfig tunes outbox delivery.
type DispatcherConfig struct {
	Consumer     string
	BatchSize    int
	LeaseTTL     time.Duration
	PollInterval time.Duration
	MaxAttempts  int
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// DefaultDispatcherConfig returns the delivery settings used when none are configured.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Consumer:     "ecoprog",
		BatchSize:    50,
		LeaseTTL:     30 * time.Second,
		PollInterval: 2 * time.Second,
		MaxAttempts:  8,
		RetryInitial: time.Second,
		RetryMax:     5 * time.Minute,
	}
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	d := DefaultDispatcherConfig()
	if c.Consumer == "" {
		c.Consumer = d.Consumer
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = d.LeaseTTL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = d.RetryInitial
	}
	if c.RetryMax < c.RetryInitial {
		c.RetryMax = c.RetryInitial
	}
	return c
}

// SignalDispatcher delivers outbox signals to subscribers at least once.
// It implements OutboxService and is the SignalNotifier services poke after commit.
type SignalDispatcher struct {
	outbox   secondary.OutboxRepository
	executor EffectExecutor
	cfg      DispatcherConfig
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	wake     chan struct{}
	now      func() time.Time
}

// NewSignalDispatcher creates a dispatcher over the outbox repository.
func NewSignalDispatcher(outbox secondary.OutboxRepository, executor EffectExecutor, cfg DispatcherConfig, metrics *telemetry.Metrics, logger *zap.Logger) *SignalDispatcher {
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalDispatcher{
		outbox:   outbox,
		executor: executor,
		cfg:      cfg.withDefaults(),
		metrics:  metrics,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Notify wakes Run without blocking. Repeated pokes coalesce.
func (d *SignalDispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// DispatchOnce leases and delivers one batch of due signals.
func (d *SignalDispatcher) DispatchOnce(ctx context.Context) (*primary.DispatchResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "outbox.dispatch",
		trace.WithAttributes(attribute.String("outbox.consumer", d.cfg.Consumer)))
	defer span.End()

	leased, err := d.outbox.Lease(ctx, d.cfg.Consumer, d.cfg.BatchSize, d.now(), d.cfg.LeaseTTL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lease failed")
		return nil, fmt.Errorf("failed to lease signals: %w", err)
	}

	result := &primary.DispatchResult{Leased: len(leased)}
	for _, rec := range leased {
		outcome, err := d.deliver(ctx, rec)
		if err != nil {
			span.RecordError(err)
			return result, err
		}
		switch outcome {
		case telemetry.DeliverySucceeded:
			result.Succeeded++
		case telemetry.DeliveryRetried:
			result.Retried++
		case telemetry.DeliveryDead:
			result.Dead++
		}
		d.metrics.SignalDeliveries.WithLabelValues(outcome).Inc()
	}

	span.SetAttributes(
		attribute.Int("outbox.leased", result.Leased),
		attribute.Int("outbox.succeeded", result.Succeeded),
		attribute.Int("outbox.retried", result.Retried),
		attribute.Int("outbox.dead", result.Dead),
	)
	return result, nil
}

// Run dispatches until ctx is cancelled, polling on an interval and
// whenever Notify is called.
func (d *SignalDispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		for {
			res, err := d.DispatchOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				d.logger.Error("dispatch pass failed", zap.Error(err))
				break
			}
			// A full batch means more may be due.
			if res.Leased < d.cfg.BatchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// ListSignals lists outbox rows matching the filters.
func (d *SignalDispatcher) ListSignals(ctx context.Context, filters primary.SignalFilters) ([]*primary.Signal, error) {
	records, err := d.outbox.List(ctx, secondary.SignalFilters{
		Status:   filters.Status,
		SchoolID: filters.SchoolID,
		Limit:    filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}

	signals := make([]*primary.Signal, len(records))
	for i, r := range records {
		signals[i] = recordToSignal(r)
	}
	return signals, nil
}

// Helper methods

// deliver runs one leased signal through the executor and settles its row.
// The returned error is a settlement failure; subscriber failures are
// reported through the outcome.
func (d *SignalDispatcher) deliver(ctx context.Context, rec *secondary.SignalRecord) (string, error) {
	log := d.logger.With(
		zap.String("signal_id", rec.ID),
		zap.String("signal_type", rec.SignalType),
		zap.String("school_id", rec.SchoolID),
		zap.Int("attempt", rec.AttemptCount+1),
	)

	sig, err := effects.Decode(rec.SignalType, rec.PayloadJSON)
	if err != nil {
		log.Error("undeliverable signal", zap.Error(err))
		if err := d.outbox.MarkDead(ctx, rec.ID, d.cfg.Consumer, err.Error(), d.now()); err != nil {
			return "", fmt.Errorf("failed to mark signal %s dead: %w", rec.ID, err)
		}
		return telemetry.DeliveryDead, nil
	}

	deliveryErr := d.executor.Execute(ctx, sig)
	if deliveryErr == nil {
		if err := d.outbox.MarkSucceeded(ctx, rec.ID, d.cfg.Consumer, d.now()); err != nil {
			return "", fmt.Errorf("failed to mark signal %s succeeded: %w", rec.ID, err)
		}
		log.Debug("signal delivered", zap.String("dedupe_key", rec.DedupeKey))
		return telemetry.DeliverySucceeded, nil
	}

	if isPermanent(deliveryErr) || rec.AttemptCount+1 >= d.cfg.MaxAttempts {
		log.Error("signal delivery abandoned", zap.Error(deliveryErr))
		if err := d.outbox.MarkDead(ctx, rec.ID, d.cfg.Consumer, deliveryErr.Error(), d.now()); err != nil {
			return "", fmt.Errorf("failed to mark signal %s dead: %w", rec.ID, err)
		}
		return telemetry.DeliveryDead, nil
	}

	delay := d.retryDelay(rec.AttemptCount)
	log.Warn("signal delivery failed, retrying", zap.Duration("delay", delay), zap.Error(deliveryErr))
	if err := d.outbox.MarkRetry(ctx, rec.ID, d.cfg.Consumer, d.now().Add(delay), deliveryErr.Error()); err != nil {
		return "", fmt.Errorf("failed to schedule retry for signal %s: %w", rec.ID, err)
	}
	return telemetry.DeliveryRetried, nil
}

// retryDelay returns the wait before the attempt after `attempts` failures:
// RetryInitial doubled per prior failure, capped at RetryMax.
func (d *SignalDispatcher) retryDelay(attempts int) time.Duration {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     d.cfg.RetryInitial,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         d.cfg.RetryMax,
	}
	b.Reset()

	delay := b.NextBackOff()
	for i := 0; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

func recordToSignal(r *secondary.SignalRecord) *primary.Signal {
	s := &primary.Signal{
		ID:            r.ID,
		Type:          r.SignalType,
		SchoolID:      r.SchoolID,
		DedupeKey:     r.DedupeKey,
		Status:        r.Status,
		AttemptCount:  r.AttemptCount,
		NextAttemptAt: r.NextAttemptAt.Format(time.RFC3339),
		LastError:     r.LastError,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if !r.ProcessedAt.IsZero() {
		s.ProcessedAt = r.ProcessedAt.Format(time.RFC3339)
	}
	return s
}

// Ensure SignalDispatcher implements the interfaces.
var (
	_ primary.OutboxService    = (*SignalDispatcher)(nil)
	_ secondary.SignalNotifier = (*SignalDispatcher)(nil)
)
