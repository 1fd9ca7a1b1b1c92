package db

import (
	"database/sql"
	"fmt"
)

// SchemaSQL is the complete modern schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests use
// this schema via GetSchemaSQL(). Migrations reuse the same table fragments,
// so a column added here is added by exactly one migration.
//
// When adding new columns or tables:
//  1. Add a fragment (or alter one) below
//  2. Add a migration in migrations.go
//  3. Run `make test` to verify alignment
const SchemaSQL = schoolsSQL + requirementsSQL + evidenceSQL + overridesSQL +
	progressSQL + roundAwardsSQL + outboxSQL + activityLogsSQL

const schoolsSQL = `
-- Schools (owned by school administration; the engine needs the current round)
CREATE TABLE IF NOT EXISTS schools (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	current_round INTEGER NOT NULL DEFAULT 1 CHECK(current_round >= 1),
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const requirementsSQL = `
-- Requirements (admin-curated catalog, ordered per stage)
CREATE TABLE IF NOT EXISTS requirements (
	id TEXT PRIMARY KEY,
	stage TEXT NOT NULL CHECK(stage IN ('inspire', 'investigate', 'act')),
	order_index INTEGER NOT NULL DEFAULT 0 CHECK(order_index >= 0),
	title TEXT NOT NULL,
	resource_refs TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_requirements_stage_order ON requirements(stage, order_index, id);
`

const evidenceSQL = `
-- Evidence (ledger of submissions; round_number is fixed at submission)
CREATE TABLE IF NOT EXISTS evidence (
	id TEXT PRIMARY KEY,
	school_id TEXT NOT NULL,
	submitted_by TEXT NOT NULL,
	stage TEXT NOT NULL CHECK(stage IN ('inspire', 'investigate', 'act')),
	round_number INTEGER NOT NULL CHECK(round_number >= 1),
	status TEXT NOT NULL CHECK(status IN ('pending', 'approved', 'rejected')) DEFAULT 'pending',
	requirement_id TEXT,
	visibility TEXT NOT NULL CHECK(visibility IN ('private', 'school', 'public')) DEFAULT 'school',
	title TEXT NOT NULL DEFAULT '',
	file_ref TEXT,
	reviewed_by TEXT,
	reviewed_at DATETIME,
	review_notes TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (school_id) REFERENCES schools(id) ON DELETE CASCADE,
	FOREIGN KEY (requirement_id) REFERENCES requirements(id) ON DELETE RESTRICT
);

CREATE INDEX IF NOT EXISTS idx_evidence_progress ON evidence(school_id, stage, round_number, status);
CREATE INDEX IF NOT EXISTS idx_evidence_requirement ON evidence(requirement_id);

CREATE TRIGGER IF NOT EXISTS evidence_round_immutable
BEFORE UPDATE OF round_number ON evidence
WHEN NEW.round_number <> OLD.round_number
BEGIN
	SELECT RAISE(ABORT, 'evidence round_number is immutable');
END;
`

const overridesSQL = `
-- Overrides (admin-marked requirement satisfaction per round)
CREATE TABLE IF NOT EXISTS overrides (
	id TEXT PRIMARY KEY,
	school_id TEXT NOT NULL,
	requirement_id TEXT NOT NULL,
	round_number INTEGER NOT NULL CHECK(round_number >= 1),
	stage TEXT NOT NULL CHECK(stage IN ('inspire', 'investigate', 'act')),
	marked_by TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (school_id) REFERENCES schools(id) ON DELETE CASCADE,
	FOREIGN KEY (requirement_id) REFERENCES requirements(id) ON DELETE RESTRICT,
	UNIQUE(school_id, requirement_id, round_number)
);

CREATE INDEX IF NOT EXISTS idx_overrides_requirement ON overrides(requirement_id);
`

const progressSQL = `
-- School progress (derived cache, always re-derivable)
CREATE TABLE IF NOT EXISTS school_progress (
	school_id TEXT PRIMARY KEY,
	current_stage TEXT NOT NULL CHECK(current_stage IN ('inspire', 'investigate', 'act')) DEFAULT 'inspire',
	current_round INTEGER NOT NULL DEFAULT 1 CHECK(current_round >= 1),
	inspire_completed INTEGER NOT NULL DEFAULT 0,
	investigate_completed INTEGER NOT NULL DEFAULT 0,
	act_completed INTEGER NOT NULL DEFAULT 0,
	award_completed INTEGER NOT NULL DEFAULT 0,
	progress_percentage INTEGER NOT NULL DEFAULT 0 CHECK(progress_percentage BETWEEN 0 AND 100),
	rounds_completed INTEGER NOT NULL DEFAULT 0 CHECK(rounds_completed >= 0),
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (school_id) REFERENCES schools(id) ON DELETE CASCADE
);
`

const roundAwardsSQL = `
-- Round awards (rounds in which a school reached the award)
CREATE TABLE IF NOT EXISTS round_awards (
	school_id TEXT NOT NULL,
	round_number INTEGER NOT NULL CHECK(round_number >= 1),
	awarded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (school_id, round_number),
	FOREIGN KEY (school_id) REFERENCES schools(id) ON DELETE CASCADE
);
`

const outboxSQL = `
-- Signal outbox (durable at-least-once delivery; times are unix milliseconds)
CREATE TABLE IF NOT EXISTS signal_outbox (
	id TEXT PRIMARY KEY,
	signal_type TEXT NOT NULL,
	school_id TEXT NOT NULL,
	payload_json BLOB NOT NULL,
	dedupe_key TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('pending', 'leased', 'succeeded', 'dead')) DEFAULT 'pending',
	attempt_count INTEGER NOT NULL DEFAULT 0,
	next_attempt_at INTEGER NOT NULL,
	lease_owner TEXT NOT NULL DEFAULT '',
	lease_expires_at INTEGER,
	last_error TEXT NOT NULL DEFAULT '',
	processed_at INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signal_outbox_due ON signal_outbox(status, next_attempt_at);
CREATE INDEX IF NOT EXISTS idx_signal_outbox_dedupe ON signal_outbox(dedupe_key);
`

const activityLogsSQL = `
-- Activity logs (audit trail of ledger, override and catalog changes)
CREATE TABLE IF NOT EXISTS activity_logs (
	id TEXT PRIMARY KEY,
	school_id TEXT,
	actor_id TEXT,
	entity_type TEXT NOT NULL CHECK(entity_type IN ('school', 'requirement', 'evidence', 'override')),
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL CHECK(action IN ('create', 'update', 'delete')),
	field_name TEXT,
	old_value TEXT,
	new_value TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_activity_logs_school ON activity_logs(school_id, created_at);
CREATE INDEX IF NOT EXISTS idx_activity_logs_entity ON activity_logs(entity_type, entity_id);
`

// InitSchema brings the database to the latest schema.
// Fresh databases get SchemaSQL directly and every migration marked applied;
// existing databases run pending migrations.
func InitSchema(database *sql.DB) error {
	var tableCount int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}

	if tableCount > 0 {
		return RunMigrations(database)
	}

	if _, err := database.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := createVersionTable(database); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to mark migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
