// Package effects defines progression signals as data.
// Signals describe what downstream collaborators should hear about; the shell
// decides how they are stored and delivered. No I/O happens here.
package effects

import (
	"encoding/json"
	"fmt"

	"github.com/example/ecoprog/internal/core/stage"
)

// Signal type identifiers, also used as outbox event types.
const (
	TypeStageCompleted = "progression.stage_completed"
	TypeAwardCompleted = "progression.award_completed"
)

// Effect is the base interface for all effects.
type Effect interface {
	// EffectType returns a string identifier for the effect type.
	EffectType() string
}

// Signal is an effect announced to external consumers once persisted.
type Signal interface {
	Effect
	// School returns the school the signal concerns.
	School() string
	// DedupeKey identifies the logical event so consumers can drop repeats.
	DedupeKey() string
}

// StageCompleted is emitted when a stage flips from incomplete to complete.
type StageCompleted struct {
	SchoolID string      `json:"school_id"`
	Stage    stage.Stage `json:"stage"`
	Round    int         `json:"round"`
}

func (e StageCompleted) EffectType() string { return TypeStageCompleted }
func (e StageCompleted) School() string     { return e.SchoolID }

func (e StageCompleted) DedupeKey() string {
	return fmt.Sprintf("stage_completed:school:%s:round:%d:stage:%s:v1", e.SchoolID, e.Round, e.Stage)
}

// AwardCompleted is emitted when all three stages of a round become complete.
type AwardCompleted struct {
	SchoolID string `json:"school_id"`
	Round    int    `json:"round"`
}

func (e AwardCompleted) EffectType() string { return TypeAwardCompleted }
func (e AwardCompleted) School() string     { return e.SchoolID }

func (e AwardCompleted) DedupeKey() string {
	return fmt.Sprintf("award_completed:school:%s:round:%d:v1", e.SchoolID, e.Round)
}

// Encode serializes a signal payload.
func Encode(s Signal) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode %s signal: %w", s.EffectType(), err)
	}
	return data, nil
}

// Decode rebuilds a signal from its type identifier and payload.
func Decode(signalType string, payload []byte) (Signal, error) {
	switch signalType {
	case TypeStageCompleted:
		var s StageCompleted
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", signalType, err)
		}
		return s, nil
	case TypeAwardCompleted:
		var s AwardCompleted
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", signalType, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown signal type: %s", signalType)
	}
}
