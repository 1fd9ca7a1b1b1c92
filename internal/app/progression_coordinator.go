package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/example/ecoprog/internal/core/effects"
	"github.com/example/ecoprog/internal/core/progression"
	"github.com/example/ecoprog/internal/core/round"
	"github.com/example/ecoprog/internal/core/stage"
	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/ports/secondary"
	"github.com/example/ecoprog/internal/telemetry"
)

// ErrPersistenceFailure wraps storage errors raised while writing progression
// state. The enclosing transaction is rolled back.
var ErrPersistenceFailure = errors.New("persistence failure")

// Trigger identifies what a recompute was asked for.
// A zero Round means the school's current round.
type Trigger struct {
	SchoolID string
	Round    int
}

// ProgressionCoordinator implements the ProgressionService interface and owns
// the transactional recompute used by every mutating service.
type ProgressionCoordinator struct {
	tx       secondary.Transactor
	locks    *schoolLocks
	notifier secondary.SignalNotifier
	metrics  *telemetry.Metrics
	logger   *zap.Logger
}

// NewProgressionCoordinator creates a new ProgressionCoordinator with injected dependencies.
// notifier may be nil.
func NewProgressionCoordinator(tx secondary.Transactor, notifier secondary.SignalNotifier, metrics *telemetry.Metrics, logger *zap.Logger) *ProgressionCoordinator {
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressionCoordinator{
		tx:       tx,
		locks:    newSchoolLocks(),
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// GetProgression returns the stored record with a live stage breakdown.
func (c *ProgressionCoordinator) GetProgression(ctx context.Context, schoolID string) (*primary.Progression, error) {
	stores := c.tx.Stores()

	school, err := stores.Schools.GetByID(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	result, err := c.calculate(ctx, stores, schoolID, school.CurrentRound)
	if err != nil {
		return nil, err
	}

	stored, err := stores.Progression.Get(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progression: %w", err)
	}
	if stored == nil || stored.CurrentRound != school.CurrentRound {
		// Not yet recomputed for this round: report the live derivation.
		awarded, err := stores.Awards.ListRounds(ctx, schoolID)
		if err != nil {
			return nil, fmt.Errorf("failed to list round awards: %w", err)
		}
		prior := progression.CountPriorAwards(awarded, school.CurrentRound)
		plan := progression.PlanUpdate(nil, result, prior)
		return toProgression(plan.Record, "", result), nil
	}

	return toProgression(fromProgressionRecord(stored), stored.UpdatedAt, result), nil
}

// Recompute re-derives a school's progression in its own transaction.
func (c *ProgressionCoordinator) Recompute(ctx context.Context, schoolID string) (*primary.RecomputeResult, error) {
	unlock := c.locks.Lock(schoolID)
	defer unlock()

	var res *primary.RecomputeResult
	err := c.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		var err error
		res, err = c.RecomputeInTx(ctx, stores, Trigger{SchoolID: schoolID})
		return err
	})
	if err != nil {
		return nil, err
	}

	c.notifyCommitted(len(res.Signals))
	return res, nil
}

// RecomputeAll recomputes every school, one transaction per school.
// A failing school does not stop the others; failures are joined.
func (c *ProgressionCoordinator) RecomputeAll(ctx context.Context) (*primary.RecomputeAllResult, error) {
	schools, err := c.tx.Stores().Schools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}

	summary := &primary.RecomputeAllResult{}
	var errs []error
	for _, school := range schools {
		res, err := c.Recompute(ctx, school.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("school %s: %w", school.ID, err))
			continue
		}
		summary.Schools++
		if res.Changed {
			summary.Changed++
		}
		summary.Signals += len(res.Signals)
	}

	return summary, errors.Join(errs...)
}

// PreviewRound calculates progression for a started round without persisting it.
func (c *ProgressionCoordinator) PreviewRound(ctx context.Context, schoolID string, roundNumber int) (*primary.Progression, error) {
	if err := round.Validate(roundNumber); err != nil {
		return nil, err
	}

	stores := c.tx.Stores()
	school, err := stores.Schools.GetByID(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if roundNumber > school.CurrentRound {
		return nil, fmt.Errorf("school %s is in round %d; round %d has not started", schoolID, school.CurrentRound, roundNumber)
	}

	result, err := c.calculate(ctx, stores, schoolID, roundNumber)
	if err != nil {
		return nil, err
	}

	awarded, err := stores.Awards.ListRounds(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list round awards: %w", err)
	}
	plan := progression.PlanUpdate(nil, result, progression.CountPriorAwards(awarded, roundNumber))

	return toProgression(plan.Record, "", result), nil
}

// RebuildHistory re-derives the awarded rounds 1..current from the ledger,
// then recomputes the current round so rounds_completed follows.
func (c *ProgressionCoordinator) RebuildHistory(ctx context.Context, schoolID string) (*primary.RebuildHistoryResult, error) {
	unlock := c.locks.Lock(schoolID)
	defer unlock()

	out := &primary.RebuildHistoryResult{SchoolID: schoolID}
	var signals int
	err := c.tx.WithinTx(ctx, func(ctx context.Context, stores secondary.Stores) error {
		school, err := stores.Schools.GetByID(ctx, schoolID)
		if err != nil {
			return err
		}

		for r := round.First; r < school.CurrentRound; r++ {
			result, err := c.calculate(ctx, stores, schoolID, r)
			if err != nil {
				return err
			}
			if result.AwardCompleted {
				err = stores.Awards.Record(ctx, schoolID, r)
			} else {
				err = stores.Awards.Remove(ctx, schoolID, r)
			}
			if err != nil {
				return fmt.Errorf("%w: failed to rebuild award for round %d: %w", ErrPersistenceFailure, r, err)
			}
		}

		res, err := c.RecomputeInTx(ctx, stores, Trigger{SchoolID: schoolID, Round: school.CurrentRound})
		if err != nil {
			return err
		}
		signals = len(res.Signals)
		out.RoundsCompleted = res.Progression.RoundsCompleted

		out.AwardedRounds, err = stores.Awards.ListRounds(ctx, schoolID)
		if err != nil {
			return fmt.Errorf("failed to list round awards: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.notifyCommitted(signals)
	return out, nil
}

// RecomputeInTx re-derives the school's current-round progression using the
// caller's transaction. The caller holds the school lock.
//
// Flow: load school -> classify trigger -> load inputs -> calculate ->
// plan against the stored record -> persist (only when changed) -> enqueue signals.
func (c *ProgressionCoordinator) RecomputeInTx(ctx context.Context, stores secondary.Stores, trigger Trigger) (res *primary.RecomputeResult, err error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "progression.recompute",
		trace.WithAttributes(attribute.String("school.id", trigger.SchoolID)))
	defer func() {
		c.metrics.RecomputeSeconds.Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			c.metrics.Recomputations.WithLabelValues(telemetry.OutcomeFailed).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case res.Changed:
			c.metrics.Recomputations.WithLabelValues(telemetry.OutcomeChanged).Inc()
		default:
			c.metrics.Recomputations.WithLabelValues(telemetry.OutcomeUnchanged).Inc()
		}
		span.End()
	}()

	// 1. Load the school's current round
	school, err := stores.Schools.GetByID(ctx, trigger.SchoolID)
	if err != nil {
		return nil, err
	}
	current := school.CurrentRound
	span.SetAttributes(attribute.Int("round", current))

	// 2. Stale triggers still recompute the current round
	if err := round.CheckTrigger(trigger.Round, current); err != nil {
		c.logger.Warn("recompute trigger for stale round",
			zap.String("school_id", trigger.SchoolID),
			zap.Int("trigger_round", trigger.Round),
			zap.Int("current_round", current),
			zap.Error(err))
	}

	// 3. A change to an earlier round refreshes that round's award row
	var pastSignals []string
	if trigger.Round >= round.First && trigger.Round < current {
		key, err := c.refreshPastAward(ctx, stores, trigger.SchoolID, trigger.Round)
		if err != nil {
			return nil, err
		}
		if key != "" {
			pastSignals = append(pastSignals, key)
		}
	}

	// 4. Calculate from the ledger, catalog and overrides
	result, err := c.calculate(ctx, stores, trigger.SchoolID, current)
	if err != nil {
		return nil, err
	}

	// 5. Plan against the stored record and award history
	stored, err := stores.Progression.Get(ctx, trigger.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progression: %w", err)
	}
	var previous *progression.Record
	if stored != nil {
		rec := fromProgressionRecord(stored)
		previous = &rec
	}

	awarded, err := stores.Awards.ListRounds(ctx, trigger.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list round awards: %w", err)
	}
	plan := progression.PlanUpdate(previous, result, progression.CountPriorAwards(awarded, current))

	// 6. Keep the award history in step with the current round
	hasAward := containsRound(awarded, current)
	switch {
	case result.AwardCompleted && !hasAward:
		if err := stores.Awards.Record(ctx, trigger.SchoolID, current); err != nil {
			return nil, fmt.Errorf("%w: failed to record round award: %w", ErrPersistenceFailure, err)
		}
	case !result.AwardCompleted && hasAward:
		if err := stores.Awards.Remove(ctx, trigger.SchoolID, current); err != nil {
			return nil, fmt.Errorf("%w: failed to remove round award: %w", ErrPersistenceFailure, err)
		}
	}

	// 7. Write the record only when it changed
	if plan.Changed {
		if err := stores.Progression.Upsert(ctx, toProgressionRecord(plan.Record)); err != nil {
			return nil, fmt.Errorf("%w: failed to write progression: %w", ErrPersistenceFailure, err)
		}
	}

	// 8. Enqueue signals in the same transaction
	keys := append(make([]string, 0, len(pastSignals)+len(plan.Signals)), pastSignals...)
	for _, sig := range plan.Signals {
		if err := c.enqueue(ctx, stores, sig); err != nil {
			return nil, err
		}
		keys = append(keys, sig.DedupeKey())
	}

	if plan.Changed {
		c.logger.Info("progression updated",
			zap.String("school_id", trigger.SchoolID),
			zap.Int("round", current),
			zap.Int("progress", plan.Record.ProgressPercentage),
			zap.Bool("award", plan.Record.AwardCompleted),
			zap.Int("signals", len(keys)))
	}

	return &primary.RecomputeResult{
		Progression: toProgression(plan.Record, "", result),
		Changed:     plan.Changed,
		Signals:     keys,
	}, nil
}

func (c *ProgressionCoordinator) enqueue(ctx context.Context, stores secondary.Stores, sig effects.Signal) error {
	payload, err := effects.Encode(sig)
	if err != nil {
		return err
	}

	record := &secondary.SignalRecord{
		ID:          uuid.NewString(),
		SignalType:  sig.EffectType(),
		SchoolID:    sig.School(),
		PayloadJSON: payload,
		DedupeKey:   sig.DedupeKey(),
	}
	if err := stores.Outbox.Enqueue(ctx, record); err != nil {
		return fmt.Errorf("%w: failed to enqueue %s: %w", ErrPersistenceFailure, sig.EffectType(), err)
	}

	c.metrics.SignalsEnqueued.WithLabelValues(sig.EffectType()).Inc()
	return nil
}

// refreshPastAward recalculates an earlier round and records or removes its
// award row. It returns the dedupe key of the AwardCompleted signal it
// enqueued, or "" when the award did not newly complete.
func (c *ProgressionCoordinator) refreshPastAward(ctx context.Context, stores secondary.Stores, schoolID string, roundNumber int) (string, error) {
	result, err := c.calculate(ctx, stores, schoolID, roundNumber)
	if err != nil {
		return "", err
	}

	awarded, err := stores.Awards.ListRounds(ctx, schoolID)
	if err != nil {
		return "", fmt.Errorf("failed to list round awards: %w", err)
	}
	hasAward := containsRound(awarded, roundNumber)

	switch {
	case result.AwardCompleted && !hasAward:
		if err := stores.Awards.Record(ctx, schoolID, roundNumber); err != nil {
			return "", fmt.Errorf("%w: failed to record round award: %w", ErrPersistenceFailure, err)
		}
		sig := effects.AwardCompleted{SchoolID: schoolID, Round: roundNumber}
		if err := c.enqueue(ctx, stores, sig); err != nil {
			return "", err
		}
		c.logger.Info("past round award completed",
			zap.String("school_id", schoolID),
			zap.Int("round", roundNumber))
		return sig.DedupeKey(), nil
	case !result.AwardCompleted && hasAward:
		if err := stores.Awards.Remove(ctx, schoolID, roundNumber); err != nil {
			return "", fmt.Errorf("%w: failed to remove round award: %w", ErrPersistenceFailure, err)
		}
		c.logger.Info("past round award withdrawn",
			zap.String("school_id", schoolID),
			zap.Int("round", roundNumber))
	}
	return "", nil
}

// calculate loads the inputs for one school and round and runs the calculator.
func (c *ProgressionCoordinator) calculate(ctx context.Context, stores secondary.Stores, schoolID string, roundNumber int) (progression.Result, error) {
	reqs, err := stores.Requirements.List(ctx, "")
	if err != nil {
		return progression.Result{}, fmt.Errorf("failed to list requirements: %w", err)
	}
	coreReqs := make([]progression.Requirement, len(reqs))
	for i, r := range reqs {
		coreReqs[i] = progression.Requirement{ID: r.ID, Stage: stage.Stage(r.Stage), OrderIndex: r.OrderIndex}
	}

	overridden, err := stores.Overrides.OverridesFor(ctx, schoolID, roundNumber)
	if err != nil {
		return progression.Result{}, fmt.Errorf("failed to load overrides: %w", err)
	}
	overrideSet := make(map[string]bool, len(overridden))
	for _, id := range overridden {
		overrideSet[id] = true
	}

	input := progression.Input{SchoolID: schoolID, Round: roundNumber}
	for _, st := range stage.All() {
		counts, err := stores.Evidence.CountApprovedByRequirement(ctx, schoolID, st.String(), roundNumber)
		if err != nil {
			return progression.Result{}, fmt.Errorf("failed to count approved evidence: %w", err)
		}
		anyApproved, err := stores.Evidence.HasAnyApproved(ctx, schoolID, st.String(), roundNumber)
		if err != nil {
			return progression.Result{}, fmt.Errorf("failed to check approved evidence: %w", err)
		}
		input.Stages = append(input.Stages, progression.StageInput{
			Stage:          st,
			Requirements:   coreReqs,
			ApprovedCounts: counts,
			Overrides:      overrideSet,
			AnyApproved:    anyApproved,
		})
	}

	return progression.Calculate(input), nil
}

// notifyCommitted wakes the dispatcher after a commit that enqueued signals.
func (c *ProgressionCoordinator) notifyCommitted(signals int) {
	if signals > 0 && c.notifier != nil {
		c.notifier.Notify()
	}
}

// Helper methods

func containsRound(rounds []int, r int) bool {
	for _, v := range rounds {
		if v == r {
			return true
		}
	}
	return false
}

func fromProgressionRecord(r *secondary.ProgressionRecord) progression.Record {
	return progression.Record{
		SchoolID:             r.SchoolID,
		CurrentStage:         stage.Stage(r.CurrentStage),
		CurrentRound:         r.CurrentRound,
		InspireCompleted:     r.InspireCompleted,
		InvestigateCompleted: r.InvestigateCompleted,
		ActCompleted:         r.ActCompleted,
		AwardCompleted:       r.AwardCompleted,
		ProgressPercentage:   r.ProgressPercentage,
		RoundsCompleted:      r.RoundsCompleted,
	}
}

func toProgressionRecord(r progression.Record) *secondary.ProgressionRecord {
	return &secondary.ProgressionRecord{
		SchoolID:             r.SchoolID,
		CurrentStage:         r.CurrentStage.String(),
		CurrentRound:         r.CurrentRound,
		InspireCompleted:     r.InspireCompleted,
		InvestigateCompleted: r.InvestigateCompleted,
		ActCompleted:         r.ActCompleted,
		AwardCompleted:       r.AwardCompleted,
		ProgressPercentage:   r.ProgressPercentage,
		RoundsCompleted:      r.RoundsCompleted,
	}
}

func toProgression(r progression.Record, updatedAt string, result progression.Result) *primary.Progression {
	p := &primary.Progression{
		SchoolID:             r.SchoolID,
		Round:                r.CurrentRound,
		CurrentStage:         r.CurrentStage.String(),
		InspireCompleted:     r.InspireCompleted,
		InvestigateCompleted: r.InvestigateCompleted,
		ActCompleted:         r.ActCompleted,
		AwardCompleted:       r.AwardCompleted,
		ProgressPercentage:   r.ProgressPercentage,
		RoundsCompleted:      r.RoundsCompleted,
		UpdatedAt:            updatedAt,
	}
	for _, sr := range result.Stages {
		p.Stages = append(p.Stages, primary.StageReport{
			Stage:               sr.Stage.String(),
			Complete:            sr.Complete,
			Required:            sr.Required,
			SatisfiedByEvidence: sr.SatisfiedByEvidence,
			SatisfiedByOverride: sr.SatisfiedByOverride,
			Missing:             sr.Missing,
			HasApprovedEvidence: sr.HasApprovedEvidence,
		})
	}
	return p
}

// Ensure ProgressionCoordinator implements the interface.
var _ primary.ProgressionService = (*ProgressionCoordinator)(nil)
