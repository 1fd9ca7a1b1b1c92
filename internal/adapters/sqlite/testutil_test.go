// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers instead.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/ecoprog/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// A single connection keeps every statement, including transactions, on the
// same in-memory database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedSchool inserts a test school and returns its ID.
func seedSchool(t *testing.T, db *sql.DB, id string, round int) string {
	t.Helper()
	if id == "" {
		id = "SCH-001"
	}
	if round == 0 {
		round = 1
	}
	_, err := db.Exec("INSERT INTO schools (id, name, current_round) VALUES (?, ?, ?)", id, "School "+id, round)
	if err != nil {
		t.Fatalf("failed to seed school: %v", err)
	}
	return id
}

// seedRequirement inserts a test requirement and returns its ID.
func seedRequirement(t *testing.T, db *sql.DB, id, stage string, order int) string {
	t.Helper()
	if id == "" {
		id = "REQ-001"
	}
	if stage == "" {
		stage = "inspire"
	}
	_, err := db.Exec("INSERT INTO requirements (id, stage, order_index, title) VALUES (?, ?, ?, ?)", id, stage, order, "Requirement "+id)
	if err != nil {
		t.Fatalf("failed to seed requirement: %v", err)
	}
	return id
}

// seedEvidence inserts a test evidence row and returns its ID.
// An empty requirementID leaves the evidence unlinked.
func seedEvidence(t *testing.T, db *sql.DB, id, schoolID, stage string, round int, status, requirementID string) string {
	t.Helper()
	var reqID sql.NullString
	if requirementID != "" {
		reqID = sql.NullString{String: requirementID, Valid: true}
	}
	_, err := db.Exec(
		`INSERT INTO evidence (id, school_id, submitted_by, stage, round_number, status, requirement_id, title)
		 VALUES (?, ?, 'teacher-1', ?, ?, ?, ?, ?)`,
		id, schoolID, stage, round, status, reqID, "Evidence "+id,
	)
	if err != nil {
		t.Fatalf("failed to seed evidence: %v", err)
	}
	return id
}

// seedOverride inserts a test override.
func seedOverride(t *testing.T, db *sql.DB, id, schoolID, requirementID string, round int, stage string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO overrides (id, school_id, requirement_id, round_number, stage, marked_by) VALUES (?, ?, ?, ?, ?, 'admin')`,
		id, schoolID, requirementID, round, stage,
	)
	if err != nil {
		t.Fatalf("failed to seed override: %v", err)
	}
}
