package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_ledger_catalog_and_progress_tables",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_round_awards_table",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_signal_outbox_table",
		Up:      migrationV3,
	},
	{
		Version: 4,
		Name:    "add_activity_logs_table",
		Up:      migrationV4,
	},
}

// LatestVersion returns the highest known migration version.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// CurrentVersion returns the applied schema version (0 for an empty database).
func CurrentVersion(database *sql.DB) (int, error) {
	var tableCount int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect schema: %w", err)
	}
	if tableCount == 0 {
		return 0, nil
	}
	var version int
	if err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	return version, nil
}

func createVersionTable(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// RunMigrations executes all pending migrations, each in its own transaction.
func RunMigrations(database *sql.DB) error {
	return runMigrationsUpTo(database, LatestVersion())
}

func runMigrationsUpTo(database *sql.DB, target int) error {
	if err := createVersionTable(database); err != nil {
		return err
	}

	currentVersion, err := CurrentVersion(database)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion || migration.Version > target {
			continue
		}

		tx, err := database.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates the ledger, catalog, override and progress tables.
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(schoolsSQL + requirementsSQL + evidenceSQL + overridesSQL + progressSQL)
	return err
}

// migrationV2 adds round award history and backfills it from the progress cache.
// Before this table existed only the current round's award was known.
func migrationV2(tx *sql.Tx) error {
	if _, err := tx.Exec(roundAwardsSQL); err != nil {
		return err
	}
	_, err := tx.Exec(`
		INSERT OR IGNORE INTO round_awards (school_id, round_number)
		SELECT school_id, current_round FROM school_progress WHERE award_completed = 1
	`)
	return err
}

// migrationV3 adds the signal outbox.
func migrationV3(tx *sql.Tx) error {
	_, err := tx.Exec(outboxSQL)
	return err
}

// migrationV4 adds the activity log.
func migrationV4(tx *sql.Tx) error {
	_, err := tx.Exec(activityLogsSQL)
	return err
}
