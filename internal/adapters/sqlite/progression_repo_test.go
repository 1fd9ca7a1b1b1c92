package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/ecoprog/internal/adapters/sqlite"
	"github.com/example/ecoprog/internal/ports/secondary"
)

func TestProgressionRepository_GetMissingIsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewProgressionRepository(db)
	seedSchool(t, db, "SCH-001", 1)

	got, err := repo.Get(context.Background(), "SCH-001")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil record, got %+v", got)
	}
}

func TestProgressionRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewProgressionRepository(db)
	ctx := context.Background()
	seedSchool(t, db, "SCH-001", 1)

	rec := &secondary.ProgressionRecord{
		SchoolID:           "SCH-001",
		CurrentStage:       "investigate",
		CurrentRound:       1,
		InspireCompleted:   true,
		ProgressPercentage: 33,
	}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	rec.CurrentStage = "act"
	rec.InvestigateCompleted = true
	rec.ActCompleted = true
	rec.AwardCompleted = true
	rec.ProgressPercentage = 100
	rec.RoundsCompleted = 1
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := repo.Get(ctx, "SCH-001")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.InspireCompleted || !got.InvestigateCompleted || !got.ActCompleted || !got.AwardCompleted {
		t.Errorf("expected all flags set, got %+v", got)
	}
	if got.ProgressPercentage != 100 || got.RoundsCompleted != 1 || got.CurrentStage != "act" {
		t.Errorf("unexpected record: %+v", got)
	}

	list, _ := repo.List(ctx)
	if len(list) != 1 {
		t.Errorf("expected a single row after upserts, got %d", len(list))
	}
}

func TestRoundAwardRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewRoundAwardRepository(db)
	ctx := context.Background()
	seedSchool(t, db, "SCH-001", 3)

	for _, round := range []int{3, 1, 1} {
		if err := repo.Record(ctx, "SCH-001", round); err != nil {
			t.Fatalf("Record(%d) failed: %v", round, err)
		}
	}

	rounds, err := repo.ListRounds(ctx, "SCH-001")
	if err != nil {
		t.Fatalf("ListRounds failed: %v", err)
	}
	if len(rounds) != 2 || rounds[0] != 1 || rounds[1] != 3 {
		t.Errorf("ListRounds = %v, want [1 3]", rounds)
	}

	if err := repo.Remove(ctx, "SCH-001", 3); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := repo.Remove(ctx, "SCH-001", 3); err != nil {
		t.Errorf("removing a missing award should be a no-op: %v", err)
	}
	rounds, _ = repo.ListRounds(ctx, "SCH-001")
	if len(rounds) != 1 || rounds[0] != 1 {
		t.Errorf("ListRounds after remove = %v", rounds)
	}
}
