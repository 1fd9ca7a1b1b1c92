package progression

import (
	"github.com/example/ecoprog/internal/core/effects"
	"github.com/example/ecoprog/internal/core/stage"
)

// Record is the cached School Progression Record for a school's current round.
type Record struct {
	SchoolID             string
	CurrentStage         stage.Stage
	CurrentRound         int
	InspireCompleted     bool
	InvestigateCompleted bool
	ActCompleted         bool
	AwardCompleted       bool
	ProgressPercentage   int
	RoundsCompleted      int
}

// Completed reports the stored completion flag for a stage.
func (r Record) Completed(st stage.Stage) bool {
	switch st {
	case stage.Inspire:
		return r.InspireCompleted
	case stage.Investigate:
		return r.InvestigateCompleted
	case stage.Act:
		return r.ActCompleted
	}
	return false
}

// Baseline returns the all-incomplete record a round starts from.
func Baseline(schoolID string, round int) Record {
	return Record{
		SchoolID:     schoolID,
		CurrentStage: stage.Inspire,
		CurrentRound: round,
	}
}

// UpdatePlan describes what the coordinator must persist and announce.
type UpdatePlan struct {
	Record      Record
	Changed     bool
	Signals     []effects.Signal
	AwardGained bool
	AwardLost   bool
}

// PlanUpdate compares a freshly calculated result with the stored record.
// previous may be nil (no record yet). A previous record for another round is
// replaced by that round's baseline, so completion in an earlier round never
// suppresses signals in the new one. priorRoundsCompleted counts awarded
// rounds before result.Round.
func PlanUpdate(previous *Record, result Result, priorRoundsCompleted int) UpdatePlan {
	baseline := Baseline(result.SchoolID, result.Round)
	if previous != nil && previous.CurrentRound == result.Round {
		baseline = *previous
	}

	next := Record{
		SchoolID:             result.SchoolID,
		CurrentStage:         result.CurrentStage,
		CurrentRound:         result.Round,
		InspireCompleted:     result.InspireCompleted,
		InvestigateCompleted: result.InvestigateCompleted,
		ActCompleted:         result.ActCompleted,
		AwardCompleted:       result.AwardCompleted,
		ProgressPercentage:   result.ProgressPercentage,
		RoundsCompleted:      RoundsCompleted(priorRoundsCompleted, result.AwardCompleted),
	}

	plan := UpdatePlan{
		Record:  next,
		Changed: previous == nil || *previous != next,
	}

	for _, st := range stage.All() {
		if !baseline.Completed(st) && next.Completed(st) {
			plan.Signals = append(plan.Signals, effects.StageCompleted{
				SchoolID: result.SchoolID,
				Stage:    st,
				Round:    result.Round,
			})
		}
	}

	if !baseline.AwardCompleted && next.AwardCompleted {
		plan.AwardGained = true
		plan.Signals = append(plan.Signals, effects.AwardCompleted{
			SchoolID: result.SchoolID,
			Round:    result.Round,
		})
	}
	if baseline.AwardCompleted && !next.AwardCompleted {
		plan.AwardLost = true
	}

	return plan
}

// RoundsCompleted counts awarded rounds including the current one.
func RoundsCompleted(priorAwardedRounds int, currentAward bool) int {
	if priorAwardedRounds < 0 {
		priorAwardedRounds = 0
	}
	if currentAward {
		return priorAwardedRounds + 1
	}
	return priorAwardedRounds
}

// CountPriorAwards counts awarded rounds strictly before currentRound.
func CountPriorAwards(awardedRounds []int, currentRound int) int {
	seen := make(map[int]bool, len(awardedRounds))
	n := 0
	for _, r := range awardedRounds {
		if r < currentRound && !seen[r] {
			seen[r] = true
			n++
		}
	}
	return n
}
