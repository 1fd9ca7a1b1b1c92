package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/example/ecoprog/internal/core/effects"
	"github.com/example/ecoprog/internal/core/stage"
	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/ports/secondary"
	"github.com/example/ecoprog/internal/telemetry"
)

var testDispatcherConfig = DispatcherConfig{
	Consumer:     "test",
	BatchSize:    10,
	LeaseTTL:     time.Minute,
	PollInterval: 10 * time.Millisecond,
	MaxAttempts:  3,
	RetryInitial: time.Second,
	RetryMax:     3 * time.Second,
}

// signalEpoch predates every clock the tests use, so seeded signals are due.
var signalEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func enqueueSignal(t *testing.T, w *fakeWorld, id string, sig effects.Signal) {
	t.Helper()
	payload, err := effects.Encode(sig)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	w.signals = append(w.signals, &secondary.SignalRecord{
		ID:            id,
		SignalType:    sig.EffectType(),
		SchoolID:      sig.School(),
		PayloadJSON:   payload,
		DedupeKey:     sig.DedupeKey(),
		Status:        secondary.SignalStatusPending,
		NextAttemptAt: signalEpoch,
		CreatedAt:     signalEpoch,
	})
}

func newTestDispatcher(w *fakeWorld, subs ...secondary.SignalSubscriber) (*SignalDispatcher, *telemetry.Metrics) {
	metrics := telemetry.NewMetrics()
	d := NewSignalDispatcher(&mockOutboxRepository{w: w}, NewEffectExecutor(subs...), testDispatcherConfig, metrics, nil)
	return d, metrics
}

func TestDispatchOnce_DeliversToEverySubscriber(t *testing.T) {
	w := newFakeWorld()
	enqueueSignal(t, w, "SIG-1", effects.StageCompleted{SchoolID: "SCH-001", Stage: stage.Inspire, Round: 1})
	enqueueSignal(t, w, "SIG-2", effects.AwardCompleted{SchoolID: "SCH-001", Round: 1})

	a := &mockSubscriber{name: "a"}
	b := &mockSubscriber{name: "b"}
	d, metrics := newTestDispatcher(w, a, b)

	res, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce failed: %v", err)
	}
	if res.Leased != 2 || res.Succeeded != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(a.received) != 2 || len(b.received) != 2 {
		t.Errorf("expected both subscribers to see both signals, got %d and %d", len(a.received), len(b.received))
	}
	if _, ok := a.received[1].(effects.AwardCompleted); !ok {
		t.Errorf("expected decoded AwardCompleted, got %T", a.received[1])
	}
	for _, s := range w.signals {
		if s.Status != secondary.SignalStatusSucceeded || s.ProcessedAt.IsZero() {
			t.Errorf("signal %s not settled: %+v", s.ID, s)
		}
	}
	if got := testutil.ToFloat64(metrics.SignalDeliveries.WithLabelValues(telemetry.DeliverySucceeded)); got != 2 {
		t.Errorf("expected 2 successful deliveries, got %v", got)
	}

	// Nothing is due on the next pass.
	res, err = d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce failed: %v", err)
	}
	if res.Leased != 0 {
		t.Errorf("expected nothing to lease, got %d", res.Leased)
	}
}

func TestDispatchOnce_TransientFailureRetries(t *testing.T) {
	w := newFakeWorld()
	enqueueSignal(t, w, "SIG-1", effects.AwardCompleted{SchoolID: "SCH-001", Round: 1})

	ok := &mockSubscriber{name: "ok"}
	flaky := &mockSubscriber{name: "flaky", err: errBoom}
	d, _ := newTestDispatcher(w, ok, flaky)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	res, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce failed: %v", err)
	}
	if res.Retried != 1 {
		t.Errorf("expected 1 retry, got %+v", res)
	}

	s := w.signals[0]
	if s.Status != secondary.SignalStatusPending || s.AttemptCount != 1 {
		t.Errorf("expected pending with 1 attempt, got %+v", s)
	}
	if !s.NextAttemptAt.Equal(now.Add(time.Second)) {
		t.Errorf("expected retry after 1s, got %v", s.NextAttemptAt.Sub(now))
	}
	if !strings.Contains(s.LastError, "subscriber flaky") {
		t.Errorf("expected last error to name the subscriber, got %q", s.LastError)
	}
	if len(ok.received) != 1 {
		t.Error("healthy subscriber should still receive the signal")
	}
}

func TestDispatchOnce_DeadAfterMaxAttempts(t *testing.T) {
	w := newFakeWorld()
	enqueueSignal(t, w, "SIG-1", effects.AwardCompleted{SchoolID: "SCH-001", Round: 1})
	w.signals[0].AttemptCount = testDispatcherConfig.MaxAttempts - 1

	d, metrics := newTestDispatcher(w, &mockSubscriber{name: "down", err: errBoom})

	res, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce failed: %v", err)
	}
	if res.Dead != 1 {
		t.Errorf("expected dead signal, got %+v", res)
	}
	if w.signals[0].Status != secondary.SignalStatusDead {
		t.Errorf("expected dead status, got %s", w.signals[0].Status)
	}
	if got := testutil.ToFloat64(metrics.SignalDeliveries.WithLabelValues(telemetry.DeliveryDead)); got != 1 {
		t.Errorf("expected 1 dead delivery, got %v", got)
	}
}

func TestDispatchOnce_PermanentFailureIsDead(t *testing.T) {
	w := newFakeWorld()
	enqueueSignal(t, w, "SIG-1", effects.AwardCompleted{SchoolID: "SCH-001", Round: 1})

	d, _ := newTestDispatcher(w, &mockSubscriber{name: "strict", err: backoff.Permanent(errors.New("bad school"))})

	res, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce failed: %v", err)
	}
	if res.Dead != 1 || w.signals[0].AttemptCount != 1 {
		t.Errorf("expected dead on first attempt, got %+v / %+v", res, w.signals[0])
	}
}

func TestDispatchOnce_MixedFailuresRetry(t *testing.T) {
	w := newFakeWorld()
	enqueueSignal(t, w, "SIG-1", effects.AwardCompleted{SchoolID: "SCH-001", Round: 1})

	d, _ := newTestDispatcher(w,
		&mockSubscriber{name: "strict", err: backoff.Permanent(errors.New("bad school"))},
		&mockSubscriber{name: "flaky", err: errBoom},
	)

	res, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce failed: %v", err)
	}
	if res.Retried != 1 {
		t.Errorf("a transient failure alongside a permanent one should retry, got %+v", res)
	}
}

func TestDispatchOnce_UndecodablePayloadIsDead(t *testing.T) {
	w := newFakeWorld()
	enqueueSignal(t, w, "SIG-1", effects.AwardCompleted{SchoolID: "SCH-001", Round: 1})
	w.signals[0].SignalType = "progression.unknown"

	sub := &mockSubscriber{name: "a"}
	d, _ := newTestDispatcher(w, sub)

	res, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce failed: %v", err)
	}
	if res.Dead != 1 || len(sub.received) != 0 {
		t.Errorf("expected undecodable signal to go dead undelivered, got %+v", res)
	}
}

func TestDispatchOnce_LeaseError(t *testing.T) {
	w := newFakeWorld()
	outbox := &mockOutboxRepository{w: w, leaseErr: errBoom}
	d := NewSignalDispatcher(outbox, NewEffectExecutor(), testDispatcherConfig, nil, nil)

	if _, err := d.DispatchOnce(context.Background()); !errors.Is(err, errBoom) {
		t.Errorf("expected lease error, got %v", err)
	}
}

func TestRetryDelay(t *testing.T) {
	d := NewSignalDispatcher(&mockOutboxRepository{w: newFakeWorld()}, NewEffectExecutor(), testDispatcherConfig, nil, nil)

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 3 * time.Second},
		{10, 3 * time.Second},
	}
	for _, tt := range tests {
		if got := d.retryDelay(tt.attempts); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestRun_WakesOnNotify(t *testing.T) {
	w := newFakeWorld()
	sub := &mockSubscriber{name: "a"}
	cfg := testDispatcherConfig
	cfg.PollInterval = time.Hour
	d := NewSignalDispatcher(&mockOutboxRepository{w: w}, NewEffectExecutor(sub), cfg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	w.mu.Lock()
	payload, _ := effects.Encode(effects.AwardCompleted{SchoolID: "SCH-001", Round: 1})
	w.signals = append(w.signals, &secondary.SignalRecord{
		ID: "SIG-1", SignalType: effects.TypeAwardCompleted, SchoolID: "SCH-001", PayloadJSON: payload,
		Status: secondary.SignalStatusPending, NextAttemptAt: time.Now().UTC().Add(-time.Second),
	})
	w.mu.Unlock()
	d.Notify()

	deadline := time.After(2 * time.Second)
	for {
		sub.mu.Lock()
		n := len(sub.received)
		sub.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("signal was not delivered after Notify")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned error: %v", err)
	}
}

func TestNotify_DoesNotBlock(t *testing.T) {
	d := NewSignalDispatcher(&mockOutboxRepository{w: newFakeWorld()}, NewEffectExecutor(), testDispatcherConfig, nil, nil)
	for i := 0; i < 100; i++ {
		d.Notify()
	}
}

func TestListSignals(t *testing.T) {
	w := newFakeWorld()
	enqueueSignal(t, w, "SIG-1", effects.AwardCompleted{SchoolID: "SCH-001", Round: 1})
	enqueueSignal(t, w, "SIG-2", effects.AwardCompleted{SchoolID: "SCH-002", Round: 1})
	d, _ := newTestDispatcher(w)

	signals, err := d.ListSignals(context.Background(), primary.SignalFilters{SchoolID: "SCH-002"})
	if err != nil {
		t.Fatalf("ListSignals failed: %v", err)
	}
	if len(signals) != 1 || signals[0].ID != "SIG-2" || signals[0].ProcessedAt != "" {
		t.Errorf("unexpected signals: %+v", signals)
	}
}

func TestOutbox_EndToEndFromRecompute(t *testing.T) {
	env := newTestEnv()
	env.world.seedCatalog()
	env.world.addSchool("SCH-001", 1)
	env.world.addEvidence("EVD-1", "SCH-001", stage.Inspire, 1, "approved", "REQ-I")
	if _, err := env.coordinator.Recompute(context.Background(), "SCH-001"); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	sub := &mockSubscriber{name: "certificates"}
	d := NewSignalDispatcher(env.world.stores().Outbox, NewEffectExecutor(sub), testDispatcherConfig, nil, nil)
	if _, err := d.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("DispatchOnce failed: %v", err)
	}

	if len(sub.received) != 1 {
		t.Fatalf("expected 1 delivered signal, got %d", len(sub.received))
	}
	sc, ok := sub.received[0].(effects.StageCompleted)
	if !ok || sc.Stage != stage.Inspire || sc.Round != 1 {
		t.Errorf("unexpected signal: %#v", sub.received[0])
	}
}
