package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/ecoprog/internal/core/effects"
	"github.com/example/ecoprog/internal/core/override"
	"github.com/example/ecoprog/internal/core/stage"
	"github.com/example/ecoprog/internal/ctxutil"
	"github.com/example/ecoprog/internal/ports/secondary"
	"github.com/example/ecoprog/internal/telemetry"
)

// fakeWorld is the shared in-memory state behind the mock repositories.
type fakeWorld struct {
	mu           sync.Mutex
	schools      map[string]*secondary.SchoolRecord
	requirements map[string]*secondary.RequirementRecord
	evidence     map[string]*secondary.EvidenceRecord
	overrides    map[string]*secondary.OverrideRecord
	progress     map[string]*secondary.ProgressionRecord
	awards       map[string]map[int]bool
	signals      []*secondary.SignalRecord
	logs         []*secondary.ActivityLogRecord
	nextSchool   int
	nextReq      int
	nextLog      int

	// Failure injection.
	upsertErr  error
	enqueueErr error
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		schools:      make(map[string]*secondary.SchoolRecord),
		requirements: make(map[string]*secondary.RequirementRecord),
		evidence:     make(map[string]*secondary.EvidenceRecord),
		overrides:    make(map[string]*secondary.OverrideRecord),
		progress:     make(map[string]*secondary.ProgressionRecord),
		awards:       make(map[string]map[int]bool),
		nextSchool:   1,
		nextReq:      1,
	}
}

// snapshot copies the state so a failed transaction can restore it.
func (w *fakeWorld) snapshot() *fakeWorld {
	w.mu.Lock()
	defer w.mu.Unlock()

	c := newFakeWorld()
	for k, v := range w.schools {
		cp := *v
		c.schools[k] = &cp
	}
	for k, v := range w.requirements {
		cp := *v
		c.requirements[k] = &cp
	}
	for k, v := range w.evidence {
		cp := *v
		c.evidence[k] = &cp
	}
	for k, v := range w.overrides {
		cp := *v
		c.overrides[k] = &cp
	}
	for k, v := range w.progress {
		cp := *v
		c.progress[k] = &cp
	}
	for k, v := range w.awards {
		c.awards[k] = make(map[int]bool, len(v))
		for r := range v {
			c.awards[k][r] = true
		}
	}
	for _, s := range w.signals {
		cp := *s
		c.signals = append(c.signals, &cp)
	}
	c.logs = append(c.logs, w.logs...)
	c.nextSchool, c.nextReq, c.nextLog = w.nextSchool, w.nextReq, w.nextLog
	return c
}

func (w *fakeWorld) restore(from *fakeWorld) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.schools, w.requirements, w.evidence = from.schools, from.requirements, from.evidence
	w.overrides, w.progress, w.awards = from.overrides, from.progress, from.awards
	w.signals, w.logs = from.signals, from.logs
	w.nextSchool, w.nextReq, w.nextLog = from.nextSchool, from.nextReq, from.nextLog
}

func (w *fakeWorld) stores() secondary.Stores {
	return secondary.Stores{
		Schools:      &mockSchoolRepository{w},
		Evidence:     &mockEvidenceRepository{w},
		Requirements: &mockRequirementRepository{w},
		Overrides:    &mockOverrideRepository{w},
		Progression:  &mockProgressionRepository{w},
		Awards:       &mockRoundAwardRepository{w},
		Outbox:       &mockOutboxRepository{w: w},
		Log:          &mockLogWriter{w},
	}
}

// Seeding helpers.

func (w *fakeWorld) addSchool(id string, round int) {
	w.schools[id] = &secondary.SchoolRecord{ID: id, Name: "School " + id, CurrentRound: round}
}

func (w *fakeWorld) addRequirement(id string, st stage.Stage, order int) {
	w.requirements[id] = &secondary.RequirementRecord{ID: id, Stage: string(st), OrderIndex: order, Title: "Requirement " + id}
}

func (w *fakeWorld) addEvidence(id, schoolID string, st stage.Stage, round int, status, requirementID string) {
	w.evidence[id] = &secondary.EvidenceRecord{
		ID:            id,
		SchoolID:      schoolID,
		SubmittedBy:   "teacher",
		Stage:         string(st),
		RoundNumber:   round,
		Status:        status,
		RequirementID: requirementID,
		Visibility:    "school",
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

// seedCatalog adds one requirement per stage: REQ-I, REQ-V and REQ-A.
func (w *fakeWorld) seedCatalog() {
	w.addRequirement("REQ-I", stage.Inspire, 1)
	w.addRequirement("REQ-V", stage.Investigate, 1)
	w.addRequirement("REQ-A", stage.Act, 1)
}

func (w *fakeWorld) signalsOfType(signalType string) []*secondary.SignalRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*secondary.SignalRecord
	for _, s := range w.signals {
		if s.SignalType == signalType {
			out = append(out, s)
		}
	}
	return out
}

func overrideKey(schoolID, requirementID string, round int) string {
	return fmt.Sprintf("%s|%s|%d", schoolID, requirementID, round)
}

// mockTransactor runs the callback against the fake world and restores the
// prior state when it fails.
type mockTransactor struct {
	w       *fakeWorld
	txMu    sync.Mutex
	txCalls int
}

func newMockTransactor(w *fakeWorld) *mockTransactor {
	return &mockTransactor{w: w}
}

func (m *mockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, stores secondary.Stores) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.txCalls++

	before := m.w.snapshot()
	if err := fn(ctx, m.w.stores()); err != nil {
		m.w.restore(before)
		return err
	}
	return nil
}

func (m *mockTransactor) Stores() secondary.Stores {
	return m.w.stores()
}

var _ secondary.Transactor = (*mockTransactor)(nil)

// mockSchoolRepository implements secondary.SchoolRepository for testing.
type mockSchoolRepository struct{ w *fakeWorld }

func (m *mockSchoolRepository) Create(ctx context.Context, school *secondary.SchoolRecord) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	cp := *school
	if cp.CurrentRound == 0 {
		cp.CurrentRound = 1
	}
	m.w.schools[cp.ID] = &cp
	return nil
}

func (m *mockSchoolRepository) GetByID(ctx context.Context, id string) (*secondary.SchoolRecord, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if s, ok := m.w.schools[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, fmt.Errorf("school %s %w", id, secondary.ErrNotFound)
}

func (m *mockSchoolRepository) List(ctx context.Context) ([]*secondary.SchoolRecord, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	var out []*secondary.SchoolRecord
	for _, s := range m.w.schools {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSchoolRepository) UpdateRound(ctx context.Context, id string, round int) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	s, ok := m.w.schools[id]
	if !ok {
		return fmt.Errorf("school %s %w", id, secondary.ErrNotFound)
	}
	s.CurrentRound = round
	return nil
}

func (m *mockSchoolRepository) GetNextID(ctx context.Context) (string, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	id := fmt.Sprintf("SCH-%03d", m.w.nextSchool)
	m.w.nextSchool++
	return id, nil
}

// mockRequirementRepository implements secondary.RequirementRepository for testing.
type mockRequirementRepository struct{ w *fakeWorld }

func (m *mockRequirementRepository) Create(ctx context.Context, r *secondary.RequirementRecord) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	cp := *r
	m.w.requirements[cp.ID] = &cp
	return nil
}

func (m *mockRequirementRepository) GetByID(ctx context.Context, id string) (*secondary.RequirementRecord, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if r, ok := m.w.requirements[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, fmt.Errorf("requirement %s %w", id, secondary.ErrNotFound)
}

func (m *mockRequirementRepository) Update(ctx context.Context, r *secondary.RequirementRecord) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if _, ok := m.w.requirements[r.ID]; !ok {
		return fmt.Errorf("requirement %s %w", r.ID, secondary.ErrNotFound)
	}
	cp := *r
	m.w.requirements[r.ID] = &cp
	return nil
}

func (m *mockRequirementRepository) Delete(ctx context.Context, id string) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if _, ok := m.w.requirements[id]; !ok {
		return fmt.Errorf("requirement %s %w", id, secondary.ErrNotFound)
	}
	delete(m.w.requirements, id)
	return nil
}

func (m *mockRequirementRepository) List(ctx context.Context, st string) ([]*secondary.RequirementRecord, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	var out []*secondary.RequirementRecord
	for _, r := range m.w.requirements {
		if st != "" && r.Stage != st {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stage != out[j].Stage {
			return stage.Stage(out[i].Stage).Index() < stage.Stage(out[j].Stage).Index()
		}
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockRequirementRepository) GetNextID(ctx context.Context) (string, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	id := fmt.Sprintf("REQ-%03d", m.w.nextReq)
	m.w.nextReq++
	return id, nil
}

// mockEvidenceRepository implements secondary.EvidenceRepository for testing.
type mockEvidenceRepository struct{ w *fakeWorld }

func (m *mockEvidenceRepository) Create(ctx context.Context, e *secondary.EvidenceRecord) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	cp := *e
	if cp.Status == "" {
		cp.Status = "pending"
	}
	if cp.CreatedAt == "" {
		cp.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.w.evidence[cp.ID] = &cp
	return nil
}

func (m *mockEvidenceRepository) GetByID(ctx context.Context, id string) (*secondary.EvidenceRecord, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if e, ok := m.w.evidence[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, fmt.Errorf("evidence %s %w", id, secondary.ErrNotFound)
}

func (m *mockEvidenceRepository) Update(ctx context.Context, e *secondary.EvidenceRecord) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	existing, ok := m.w.evidence[e.ID]
	if !ok {
		return fmt.Errorf("evidence %s %w", e.ID, secondary.ErrNotFound)
	}
	cp := *e
	cp.RoundNumber = existing.RoundNumber
	m.w.evidence[e.ID] = &cp
	return nil
}

func (m *mockEvidenceRepository) Delete(ctx context.Context, id string) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if _, ok := m.w.evidence[id]; !ok {
		return fmt.Errorf("evidence %s %w", id, secondary.ErrNotFound)
	}
	delete(m.w.evidence, id)
	return nil
}

func (m *mockEvidenceRepository) List(ctx context.Context, filters secondary.EvidenceFilters) ([]*secondary.EvidenceRecord, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	var out []*secondary.EvidenceRecord
	for _, e := range m.w.evidence {
		if filters.SchoolID != "" && e.SchoolID != filters.SchoolID {
			continue
		}
		if filters.Stage != "" && e.Stage != filters.Stage {
			continue
		}
		if filters.Status != "" && e.Status != filters.Status {
			continue
		}
		if filters.Visibility != "" && e.Visibility != filters.Visibility {
			continue
		}
		if filters.RequirementID != "" && e.RequirementID != filters.RequirementID {
			continue
		}
		if filters.Round != 0 && e.RoundNumber != filters.Round {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (m *mockEvidenceRepository) CountApprovedByRequirement(ctx context.Context, schoolID, st string, round int) (map[string]int, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range m.w.evidence {
		if e.SchoolID == schoolID && e.Stage == st && e.RoundNumber == round && e.Status == "approved" && e.RequirementID != "" {
			counts[e.RequirementID]++
		}
	}
	return counts, nil
}

func (m *mockEvidenceRepository) HasAnyApproved(ctx context.Context, schoolID, st string, round int) (bool, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	for _, e := range m.w.evidence {
		if e.SchoolID == schoolID && e.Stage == st && e.RoundNumber == round && e.Status == "approved" {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEvidenceRepository) CountByRequirement(ctx context.Context, requirementID string) (int, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	n := 0
	for _, e := range m.w.evidence {
		if e.RequirementID == requirementID {
			n++
		}
	}
	return n, nil
}

// mockOverrideRepository implements secondary.OverrideRepository for testing.
type mockOverrideRepository struct{ w *fakeWorld }

func (m *mockOverrideRepository) Insert(ctx context.Context, o *secondary.OverrideRecord) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	key := overrideKey(o.SchoolID, o.RequirementID, o.RoundNumber)
	if _, ok := m.w.overrides[key]; ok {
		return fmt.Errorf("%w: %s", override.ErrConcurrentOverrideConflict, key)
	}
	cp := *o
	m.w.overrides[key] = &cp
	return nil
}

func (m *mockOverrideRepository) Delete(ctx context.Context, schoolID, requirementID string, round int) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	key := overrideKey(schoolID, requirementID, round)
	if _, ok := m.w.overrides[key]; !ok {
		return fmt.Errorf("override %s %w", key, secondary.ErrNotFound)
	}
	delete(m.w.overrides, key)
	return nil
}

func (m *mockOverrideRepository) OverridesFor(ctx context.Context, schoolID string, round int) ([]string, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	var ids []string
	for _, o := range m.w.overrides {
		if o.SchoolID == schoolID && o.RoundNumber == round {
			ids = append(ids, o.RequirementID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockOverrideRepository) List(ctx context.Context, schoolID string, round int) ([]*secondary.OverrideRecord, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	var out []*secondary.OverrideRecord
	for _, o := range m.w.overrides {
		if o.SchoolID != schoolID || (round != 0 && o.RoundNumber != round) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return overrideKey(out[i].SchoolID, out[i].RequirementID, out[i].RoundNumber) <
			overrideKey(out[j].SchoolID, out[j].RequirementID, out[j].RoundNumber)
	})
	return out, nil
}

func (m *mockOverrideRepository) CountByRequirement(ctx context.Context, requirementID string) (int, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	n := 0
	for _, o := range m.w.overrides {
		if o.RequirementID == requirementID {
			n++
		}
	}
	return n, nil
}

// mockProgressionRepository implements secondary.ProgressionRepository for testing.
type mockProgressionRepository struct{ w *fakeWorld }

func (m *mockProgressionRepository) Get(ctx context.Context, schoolID string) (*secondary.ProgressionRecord, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if p, ok := m.w.progress[schoolID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *mockProgressionRepository) Upsert(ctx context.Context, r *secondary.ProgressionRecord) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if m.w.upsertErr != nil {
		return m.w.upsertErr
	}
	cp := *r
	cp.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	m.w.progress[r.SchoolID] = &cp
	return nil
}

func (m *mockProgressionRepository) List(ctx context.Context) ([]*secondary.ProgressionRecord, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	var out []*secondary.ProgressionRecord
	for _, p := range m.w.progress {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SchoolID < out[j].SchoolID })
	return out, nil
}

// mockRoundAwardRepository implements secondary.RoundAwardRepository for testing.
type mockRoundAwardRepository struct{ w *fakeWorld }

func (m *mockRoundAwardRepository) Record(ctx context.Context, schoolID string, round int) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if m.w.awards[schoolID] == nil {
		m.w.awards[schoolID] = make(map[int]bool)
	}
	m.w.awards[schoolID][round] = true
	return nil
}

func (m *mockRoundAwardRepository) Remove(ctx context.Context, schoolID string, round int) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	delete(m.w.awards[schoolID], round)
	return nil
}

func (m *mockRoundAwardRepository) ListRounds(ctx context.Context, schoolID string) ([]int, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	var rounds []int
	for r := range m.w.awards[schoolID] {
		rounds = append(rounds, r)
	}
	sort.Ints(rounds)
	return rounds, nil
}

// mockOutboxRepository implements secondary.OutboxRepository for testing.
// Settlement calls are recorded so dispatcher tests can assert on them.
type mockOutboxRepository struct {
	w        *fakeWorld
	leaseErr error
}

func (m *mockOutboxRepository) Enqueue(ctx context.Context, s *secondary.SignalRecord) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if m.w.enqueueErr != nil {
		return m.w.enqueueErr
	}
	cp := *s
	cp.Status = secondary.SignalStatusPending
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	if cp.NextAttemptAt.IsZero() {
		cp.NextAttemptAt = cp.CreatedAt
	}
	m.w.signals = append(m.w.signals, &cp)
	return nil
}

func (m *mockOutboxRepository) Lease(ctx context.Context, consumer string, limit int, now time.Time, ttl time.Duration) ([]*secondary.SignalRecord, error) {
	if m.leaseErr != nil {
		return nil, m.leaseErr
	}
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	var out []*secondary.SignalRecord
	for _, s := range m.w.signals {
		if len(out) >= limit {
			break
		}
		due := s.Status == secondary.SignalStatusPending && !s.NextAttemptAt.After(now)
		expired := s.Status == secondary.SignalStatusLeased && !s.LeaseExpiresAt.After(now)
		if !due && !expired {
			continue
		}
		s.Status = secondary.SignalStatusLeased
		s.LeaseOwner = consumer
		s.LeaseExpiresAt = now.Add(ttl)
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockOutboxRepository) find(id, consumer string) (*secondary.SignalRecord, error) {
	for _, s := range m.w.signals {
		if s.ID == id && s.Status == secondary.SignalStatusLeased && s.LeaseOwner == consumer {
			return s, nil
		}
	}
	return nil, fmt.Errorf("leased signal %s %w", id, secondary.ErrNotFound)
}

func (m *mockOutboxRepository) MarkSucceeded(ctx context.Context, id, consumer string, processedAt time.Time) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	s, err := m.find(id, consumer)
	if err != nil {
		return err
	}
	s.Status = secondary.SignalStatusSucceeded
	s.ProcessedAt = processedAt
	s.LeaseOwner, s.LeaseExpiresAt = "", time.Time{}
	return nil
}

func (m *mockOutboxRepository) MarkRetry(ctx context.Context, id, consumer string, nextAttemptAt time.Time, lastError string) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	s, err := m.find(id, consumer)
	if err != nil {
		return err
	}
	s.Status = secondary.SignalStatusPending
	s.AttemptCount++
	s.NextAttemptAt = nextAttemptAt
	s.LastError = lastError
	s.LeaseOwner, s.LeaseExpiresAt = "", time.Time{}
	return nil
}

func (m *mockOutboxRepository) MarkDead(ctx context.Context, id, consumer, lastError string, processedAt time.Time) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	s, err := m.find(id, consumer)
	if err != nil {
		return err
	}
	s.Status = secondary.SignalStatusDead
	s.AttemptCount++
	s.LastError = lastError
	s.ProcessedAt = processedAt
	s.LeaseOwner, s.LeaseExpiresAt = "", time.Time{}
	return nil
}

func (m *mockOutboxRepository) List(ctx context.Context, filters secondary.SignalFilters) ([]*secondary.SignalRecord, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	var out []*secondary.SignalRecord
	for _, s := range m.w.signals {
		if filters.Status != "" && s.Status != filters.Status {
			continue
		}
		if filters.SchoolID != "" && s.SchoolID != filters.SchoolID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

// mockLogWriter implements secondary.LogWriter against the fake world.
type mockLogWriter struct{ w *fakeWorld }

func (m *mockLogWriter) append(ctx context.Context, rec secondary.ActivityLogRecord) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	m.w.nextLog++
	rec.ID = fmt.Sprintf("LOG-%03d", m.w.nextLog)
	rec.ActorID = ctxutil.ActorIDFromContext(ctx)
	m.w.logs = append(m.w.logs, &rec)
	return nil
}

func (m *mockLogWriter) LogCreate(ctx context.Context, schoolID, entityType, entityID string) error {
	return m.append(ctx, secondary.ActivityLogRecord{SchoolID: schoolID, EntityType: entityType, EntityID: entityID, Action: "create"})
}

func (m *mockLogWriter) LogUpdate(ctx context.Context, schoolID, entityType, entityID, fieldName, oldValue, newValue string) error {
	return m.append(ctx, secondary.ActivityLogRecord{
		SchoolID: schoolID, EntityType: entityType, EntityID: entityID, Action: "update",
		FieldName: fieldName, OldValue: oldValue, NewValue: newValue,
	})
}

func (m *mockLogWriter) LogDelete(ctx context.Context, schoolID, entityType, entityID string) error {
	return m.append(ctx, secondary.ActivityLogRecord{SchoolID: schoolID, EntityType: entityType, EntityID: entityID, Action: "delete"})
}

// mockNotifier counts dispatcher wake-ups.
type mockNotifier struct {
	mu    sync.Mutex
	calls int
}

func (m *mockNotifier) Notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSubscriber records delivered signals and fails on demand.
type mockSubscriber struct {
	name     string
	mu       sync.Mutex
	received []effects.Signal
	err      error
}

func (m *mockSubscriber) Name() string { return m.name }

func (m *mockSubscriber) HandleSignal(ctx context.Context, sig effects.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.received = append(m.received, sig)
	return nil
}

var (
	_ secondary.SignalSubscriber = (*mockSubscriber)(nil)
	_ secondary.SignalNotifier   = (*mockNotifier)(nil)
)

// testEnv wires services over one fake world.
type testEnv struct {
	world       *fakeWorld
	tx          *mockTransactor
	notifier    *mockNotifier
	metrics     *telemetry.Metrics
	coordinator *ProgressionCoordinator
}

func newTestEnv() *testEnv {
	w := newFakeWorld()
	tx := newMockTransactor(w)
	notifier := &mockNotifier{}
	metrics := telemetry.NewMetrics()
	return &testEnv{
		world:       w,
		tx:          tx,
		notifier:    notifier,
		metrics:     metrics,
		coordinator: NewProgressionCoordinator(tx, notifier, metrics, nil),
	}
}

func adminCtx() context.Context {
	return ctxutil.WithActor(context.Background(), ctxutil.Actor{ID: "admin", Admin: true})
}

func teacherCtx() context.Context {
	return ctxutil.WithActor(context.Background(), ctxutil.Actor{ID: "teacher"})
}

var errBoom = errors.New("boom")

func newOverrideRecord(schoolID, requirementID string, round int, st string) *secondary.OverrideRecord {
	return &secondary.OverrideRecord{
		ID:            overrideKey(schoolID, requirementID, round),
		SchoolID:      schoolID,
		RequirementID: requirementID,
		RoundNumber:   round,
		Stage:         st,
		MarkedBy:      "admin",
	}
}
