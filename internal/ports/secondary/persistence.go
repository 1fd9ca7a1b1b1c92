// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is wrapped by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// SchoolRepository defines the secondary port for school persistence.
// Schools are owned by the surrounding administration; the engine only needs
// their current round.
type SchoolRepository interface {
	// Create persists a new school.
	Create(ctx context.Context, school *SchoolRecord) error

	// GetByID retrieves a school by its ID.
	GetByID(ctx context.Context, id string) (*SchoolRecord, error)

	// List retrieves all schools ordered by ID.
	List(ctx context.Context) ([]*SchoolRecord, error)

	// UpdateRound sets the school's current round.
	UpdateRound(ctx context.Context, id string, round int) error

	// GetNextID returns the next available school ID.
	GetNextID(ctx context.Context) (string, error)
}

// SchoolRecord represents a school as stored in persistence.
type SchoolRecord struct {
	ID           string
	Name         string
	CurrentRound int
	CreatedAt    string
	UpdatedAt    string
}

// EvidenceRepository defines the secondary port for the evidence ledger.
type EvidenceRepository interface {
	// Create persists a new evidence submission.
	Create(ctx context.Context, evidence *EvidenceRecord) error

	// GetByID retrieves an evidence submission by its ID.
	GetByID(ctx context.Context, id string) (*EvidenceRecord, error)

	// Update writes status, visibility, requirement link, title, file and
	// review metadata. The round number is never updated.
	Update(ctx context.Context, evidence *EvidenceRecord) error

	// Delete removes an evidence submission.
	Delete(ctx context.Context, id string) error

	// List retrieves evidence matching the given filters, newest first.
	List(ctx context.Context, filters EvidenceFilters) ([]*EvidenceRecord, error)

	// CountApprovedByRequirement counts approved evidence per requirement for
	// one school, stage and round. Unlinked evidence is not counted.
	CountApprovedByRequirement(ctx context.Context, schoolID, stage string, round int) (map[string]int, error)

	// HasAnyApproved reports whether any approved evidence exists for one
	// school, stage and round, linked or not.
	HasAnyApproved(ctx context.Context, schoolID, stage string, round int) (bool, error)

	// CountByRequirement counts evidence of any status linked to a requirement.
	CountByRequirement(ctx context.Context, requirementID string) (int, error)
}

// EvidenceRecord represents an evidence submission as stored in persistence.
type EvidenceRecord struct {
	ID            string
	SchoolID      string
	SubmittedBy   string
	Stage         string
	RoundNumber   int
	Status        string
	RequirementID string // Empty string means null
	Visibility    string
	Title         string
	FileRef       string // Empty string means null
	ReviewedBy    string // Empty string means null
	ReviewedAt    string // Empty string means null
	ReviewNotes   string // Empty string means null
	CreatedAt     string
	UpdatedAt     string
}

// EvidenceFilters contains filter options for querying evidence.
type EvidenceFilters struct {
	SchoolID      string
	Stage         string
	Status        string
	Visibility    string
	RequirementID string
	Round         int
	Limit         int
}

// RequirementRepository defines the secondary port for the requirement catalog.
type RequirementRepository interface {
	// Create persists a new requirement.
	Create(ctx context.Context, requirement *RequirementRecord) error

	// GetByID retrieves a requirement by its ID.
	GetByID(ctx context.Context, id string) (*RequirementRecord, error)

	// Update writes stage, order, title and resource refs.
	Update(ctx context.Context, requirement *RequirementRecord) error

	// Delete removes a requirement. Referenced rows are refused by the schema.
	Delete(ctx context.Context, id string) error

	// List retrieves requirements ordered by stage, order index, then ID.
	// An empty stage lists the whole catalog.
	List(ctx context.Context, stage string) ([]*RequirementRecord, error)

	// GetNextID returns the next available requirement ID.
	GetNextID(ctx context.Context) (string, error)
}

// RequirementRecord represents a catalog requirement as stored in persistence.
type RequirementRecord struct {
	ID           string
	Stage        string
	OrderIndex   int
	Title        string
	ResourceRefs []string
	CreatedAt    string
	UpdatedAt    string
}

// OverrideRepository defines the secondary port for the override registry.
type OverrideRepository interface {
	// Insert persists a new override. A row for the same school, requirement
	// and round already existing is reported as override.ErrConcurrentOverrideConflict.
	Insert(ctx context.Context, override *OverrideRecord) error

	// Delete removes the override for a school, requirement and round.
	Delete(ctx context.Context, schoolID, requirementID string, round int) error

	// OverridesFor returns the requirement IDs overridden for a school and round.
	OverridesFor(ctx context.Context, schoolID string, round int) ([]string, error)

	// List retrieves overrides for a school. A zero round lists every round.
	List(ctx context.Context, schoolID string, round int) ([]*OverrideRecord, error)

	// CountByRequirement counts overrides referencing a requirement.
	CountByRequirement(ctx context.Context, requirementID string) (int, error)
}

// OverrideRecord represents an override as stored in persistence.
type OverrideRecord struct {
	ID            string
	SchoolID      string
	RequirementID string
	RoundNumber   int
	Stage         string // denormalized from the requirement
	MarkedBy      string
	CreatedAt     string
}

// ProgressionRepository defines the secondary port for the derived progression cache.
type ProgressionRepository interface {
	// Get retrieves the progression record for a school (nil if none).
	Get(ctx context.Context, schoolID string) (*ProgressionRecord, error)

	// Upsert writes the progression record for a school.
	Upsert(ctx context.Context, record *ProgressionRecord) error

	// List retrieves all progression records ordered by school ID.
	List(ctx context.Context) ([]*ProgressionRecord, error)
}

// ProgressionRecord represents a school progression record as stored in persistence.
type ProgressionRecord struct {
	SchoolID             string
	CurrentStage         string
	CurrentRound         int
	InspireCompleted     bool
	InvestigateCompleted bool
	ActCompleted         bool
	AwardCompleted       bool
	ProgressPercentage   int
	RoundsCompleted      int
	UpdatedAt            string
}

// RoundAwardRepository defines the secondary port for awarded-round history.
type RoundAwardRepository interface {
	// Record marks a round as awarded. Recording twice is a no-op.
	Record(ctx context.Context, schoolID string, round int) error

	// Remove clears the award for a round. Removing a missing row is a no-op.
	Remove(ctx context.Context, schoolID string, round int) error

	// ListRounds returns the awarded rounds for a school in ascending order.
	ListRounds(ctx context.Context, schoolID string) ([]int, error)
}

// OutboxRepository defines the secondary port for durable signal delivery.
type OutboxRepository interface {
	// Enqueue stores a pending signal.
	Enqueue(ctx context.Context, signal *SignalRecord) error

	// Lease claims up to limit due signals for one consumer until now+ttl.
	// Pending signals whose next attempt is due and leased signals whose
	// lease expired are both eligible.
	Lease(ctx context.Context, consumer string, limit int, now time.Time, ttl time.Duration) ([]*SignalRecord, error)

	// MarkSucceeded completes a leased signal.
	MarkSucceeded(ctx context.Context, id, consumer string, processedAt time.Time) error

	// MarkRetry returns a leased signal to pending with a later attempt time.
	MarkRetry(ctx context.Context, id, consumer string, nextAttemptAt time.Time, lastError string) error

	// MarkDead stops delivering a leased signal.
	MarkDead(ctx context.Context, id, consumer, lastError string, processedAt time.Time) error

	// List retrieves signals matching the given filters, oldest first.
	List(ctx context.Context, filters SignalFilters) ([]*SignalRecord, error)
}

// Outbox signal statuses.
const (
	SignalStatusPending   = "pending"
	SignalStatusLeased    = "leased"
	SignalStatusSucceeded = "succeeded"
	SignalStatusDead      = "dead"
)

// SignalRecord represents an outbox row.
type SignalRecord struct {
	ID             string
	SignalType     string
	SchoolID       string
	PayloadJSON    []byte
	DedupeKey      string
	Status         string
	AttemptCount   int
	NextAttemptAt  time.Time
	LeaseOwner     string
	LeaseExpiresAt time.Time // zero when not leased
	LastError      string
	ProcessedAt    time.Time // zero until succeeded or dead
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SignalFilters contains filter options for querying outbox signals.
type SignalFilters struct {
	Status   string
	SchoolID string
	Limit    int
}

// ActivityLogRepository defines the secondary port for the activity log (audit trail).
// Logs are immutable - no Update operations, but old entries can be pruned.
type ActivityLogRepository interface {
	// Create persists a new log entry.
	Create(ctx context.Context, log *ActivityLogRecord) error

	// List retrieves log entries matching the given filters, newest first.
	List(ctx context.Context, filters ActivityLogFilters) ([]*ActivityLogRecord, error)

	// PruneOlderThan deletes log entries older than the given number of days.
	// Returns the number of deleted entries.
	PruneOlderThan(ctx context.Context, days int) (int, error)
}

// ActivityLogRecord represents a log entry as stored in persistence.
type ActivityLogRecord struct {
	ID         string
	SchoolID   string // Empty string means null (catalog changes)
	ActorID    string // Empty string means null
	EntityType string
	EntityID   string
	Action     string // 'create', 'update', 'delete'
	FieldName  string // Empty string means null - for updates only
	OldValue   string // Empty string means null
	NewValue   string // Empty string means null
	CreatedAt  string
}

// ActivityLogFilters contains filter options for querying logs.
type ActivityLogFilters struct {
	SchoolID   string
	EntityType string
	EntityID   string
	ActorID    string
	Action     string
	Limit      int
}

// Stores groups the repositories that take part in one unit of work.
type Stores struct {
	Schools      SchoolRepository
	Evidence     EvidenceRepository
	Requirements RequirementRepository
	Overrides    OverrideRepository
	Progression  ProgressionRepository
	Awards       RoundAwardRepository
	Outbox       OutboxRepository
	Log          LogWriter
}

// Transactor runs work against the stores inside a single-writer transaction.
type Transactor interface {
	// WithinTx runs fn in a transaction. fn returning an error rolls back
	// every write made through the stores it was given.
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error

	// Stores returns stores bound to the plain connection, for reads.
	Stores() Stores
}
