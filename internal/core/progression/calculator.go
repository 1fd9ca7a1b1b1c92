// Package progression contains the pure stage progression calculation.
// This is part of the Functional Core - no I/O, only pure functions.
// All inputs are pre-fetched by the caller for a single school and round.
package progression

import (
	"math"
	"sort"

	"github.com/example/ecoprog/internal/core/stage"
)

// Requirement is the progression view of a catalog requirement.
// Presentation fields (titles, resources) are deliberately absent.
type Requirement struct {
	ID         string
	Stage      stage.Stage
	OrderIndex int
}

// StageInput holds everything needed to evaluate one stage for one round.
type StageInput struct {
	Stage          stage.Stage
	Requirements   []Requirement
	ApprovedCounts map[string]int  // requirement ID -> approved evidence in this round
	Overrides      map[string]bool // requirement IDs satisfied by override in this round
	AnyApproved    bool            // any approved evidence in this stage and round, linked or not
}

// StageResult is the evaluated state of one stage.
type StageResult struct {
	Stage               stage.Stage
	Round               int
	Complete            bool
	Required            int
	SatisfiedByEvidence []string
	SatisfiedByOverride []string
	Missing             []string
	HasApprovedEvidence bool
}

// Satisfied returns the number of satisfied requirements.
func (r StageResult) Satisfied() int {
	return len(r.SatisfiedByEvidence) + len(r.SatisfiedByOverride)
}

// EvaluateStage applies the satisfaction rule to one stage.
// A requirement is satisfied by at least one approved item or an override.
// A stage with no requirements is vacuously complete.
func EvaluateStage(round int, in StageInput) StageResult {
	result := StageResult{
		Stage:               in.Stage,
		Round:               round,
		HasApprovedEvidence: in.AnyApproved,
	}

	reqs := make([]Requirement, 0, len(in.Requirements))
	for _, req := range in.Requirements {
		if req.Stage == in.Stage {
			reqs = append(reqs, req)
		}
	}
	sortRequirements(reqs)
	result.Required = len(reqs)

	for _, req := range reqs {
		switch {
		case in.ApprovedCounts[req.ID] >= 1:
			result.SatisfiedByEvidence = append(result.SatisfiedByEvidence, req.ID)
		case in.Overrides[req.ID]:
			result.SatisfiedByOverride = append(result.SatisfiedByOverride, req.ID)
		default:
			result.Missing = append(result.Missing, req.ID)
		}
	}

	result.Complete = len(result.Missing) == 0
	return result
}

// Input is the full calculator input for one school and round.
// Stages not present are treated as having no requirements.
type Input struct {
	SchoolID string
	Round    int
	Stages   []StageInput
}

// Result is the derived progression state for one school and round.
type Result struct {
	SchoolID             string
	Round                int
	Stages               []StageResult // curriculum order
	InspireCompleted     bool
	InvestigateCompleted bool
	ActCompleted         bool
	AwardCompleted       bool
	ProgressPercentage   int
	CurrentStage         stage.Stage
}

// Calculate derives stage completion, award status and percentage.
// It is deterministic for identical inputs.
func Calculate(in Input) Result {
	byStage := make(map[stage.Stage]StageInput, stage.Count)
	for _, si := range in.Stages {
		byStage[si.Stage] = si
	}

	result := Result{
		SchoolID: in.SchoolID,
		Round:    in.Round,
		Stages:   make([]StageResult, 0, stage.Count),
	}

	completeCount := 0
	for _, st := range stage.All() {
		si, ok := byStage[st]
		if !ok {
			si = StageInput{Stage: st}
		}
		sr := EvaluateStage(in.Round, si)
		result.Stages = append(result.Stages, sr)
		if sr.Complete {
			completeCount++
		} else if result.CurrentStage == "" {
			result.CurrentStage = st
		}
	}

	result.InspireCompleted = result.Stages[0].Complete
	result.InvestigateCompleted = result.Stages[1].Complete
	result.ActCompleted = result.Stages[2].Complete
	result.AwardCompleted = completeCount == stage.Count
	result.ProgressPercentage = Percentage(completeCount)
	if result.CurrentStage == "" {
		result.CurrentStage = stage.Act
	}

	return result
}

// Completed reports whether the given stage is complete in r.
func (r Result) Completed(st stage.Stage) bool {
	for _, sr := range r.Stages {
		if sr.Stage == st {
			return sr.Complete
		}
	}
	return false
}

// Stage returns the evaluated stage, or a zero StageResult if absent.
func (r Result) Stage(st stage.Stage) StageResult {
	for _, sr := range r.Stages {
		if sr.Stage == st {
			return sr
		}
	}
	return StageResult{Stage: st, Round: r.Round}
}

// Percentage converts a number of complete stages into an integer percentage.
// Stage completion is binary; partial requirement progress is not interpolated.
func Percentage(completeStages int) int {
	if completeStages <= 0 {
		return 0
	}
	if completeStages >= stage.Count {
		return 100
	}
	return int(math.Round(100 * float64(completeStages) / float64(stage.Count)))
}

func sortRequirements(reqs []Requirement) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].OrderIndex != reqs[j].OrderIndex {
			return reqs[i].OrderIndex < reqs[j].OrderIndex
		}
		return reqs[i].ID < reqs[j].ID
	})
}
