package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SeedFixtures populates the database with development fixtures: a small
// requirement catalog, three schools and a spread of evidence. Progression
// records are not seeded; run `ecoprog progress recompute --all` afterwards.
func SeedFixtures(database *sql.DB) error {
	now := time.Now().UTC()

	requirements := []struct {
		id, stage, title string
		order            int
	}{
		{"REQ-001", "inspire", "Form an eco-committee", 1},
		{"REQ-002", "inspire", "Run a school assembly on sustainability", 2},
		{"REQ-003", "investigate", "Complete an environmental review", 1},
		{"REQ-004", "investigate", "Measure waste for one week", 2},
		{"REQ-005", "act", "Deliver an action plan project", 1},
	}
	for _, r := range requirements {
		if _, err := database.Exec(
			"INSERT INTO requirements (id, stage, order_index, title) VALUES (?, ?, ?, ?)",
			r.id, r.stage, r.order, r.title,
		); err != nil {
			return fmt.Errorf("seed requirements: %w", err)
		}
	}

	schools := []struct {
		id, name string
		round    int
	}{
		{"SCH-001", "Riverside Primary", 1},
		{"SCH-002", "Hillcrest Academy", 2},
		{"SCH-003", "Meadow Lane School", 1},
	}
	for _, s := range schools {
		if _, err := database.Exec(
			"INSERT INTO schools (id, name, current_round) VALUES (?, ?, ?)",
			s.id, s.name, s.round,
		); err != nil {
			return fmt.Errorf("seed schools: %w", err)
		}
	}

	evidence := []struct {
		id, school, stage, requirement, status, visibility, title string
		round                                                    int
	}{
		{"EVD-0001", "SCH-001", "inspire", "REQ-001", "approved", "public", "Committee photo", 1},
		{"EVD-0002", "SCH-001", "inspire", "REQ-002", "pending", "school", "Assembly slides", 1},
		{"EVD-0003", "SCH-002", "inspire", "REQ-001", "approved", "school", "Committee minutes", 1},
		{"EVD-0004", "SCH-002", "inspire", "REQ-002", "approved", "school", "Assembly recording", 1},
		{"EVD-0005", "SCH-002", "investigate", "REQ-003", "approved", "public", "Review worksheet", 1},
		{"EVD-0006", "SCH-002", "investigate", "REQ-004", "approved", "school", "Waste tally", 1},
		{"EVD-0007", "SCH-002", "act", "REQ-005", "approved", "public", "Garden project", 1},
		{"EVD-0008", "SCH-002", "inspire", "REQ-001", "pending", "school", "New committee", 2},
		{"EVD-0009", "SCH-003", "investigate", "", "rejected", "private", "Unlinked notes", 1},
	}
	for _, e := range evidence {
		var requirementID, reviewedBy sql.NullString
		var reviewedAt sql.NullTime
		if e.requirement != "" {
			requirementID = sql.NullString{String: e.requirement, Valid: true}
		}
		if e.status != "pending" {
			reviewedBy = sql.NullString{String: "admin", Valid: true}
			reviewedAt = sql.NullTime{Time: now, Valid: true}
		}
		if _, err := database.Exec(
			`INSERT INTO evidence (id, school_id, submitted_by, stage, round_number, status, requirement_id, visibility, title, reviewed_by, reviewed_at)
			 VALUES (?, ?, 'teacher', ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.id, e.school, e.stage, e.round, e.status, requirementID, e.visibility, e.title, reviewedBy, reviewedAt,
		); err != nil {
			return fmt.Errorf("seed evidence: %w", err)
		}
	}

	return nil
}
