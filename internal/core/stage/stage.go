// Package stage defines the ordered curriculum stages a school moves through.
// This is part of the Functional Core - no I/O, only pure functions.
package stage

import (
	"fmt"
	"strings"
)

// Stage is one of the three ordered curriculum phases.
type Stage string

const (
	Inspire     Stage = "inspire"
	Investigate Stage = "investigate"
	Act         Stage = "act"
)

// All returns the stages in curriculum order.
func All() []Stage {
	return []Stage{Inspire, Investigate, Act}
}

// Count is the number of stages in a round.
const Count = 3

// Parse converts user input into a Stage.
func Parse(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid stage %q: must be one of inspire, investigate, act", s)
	}
	return st, nil
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case Inspire, Investigate, Act:
		return true
	}
	return false
}

// Index returns the zero-based curriculum position, or -1 for unknown stages.
func (s Stage) Index() int {
	for i, st := range All() {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the stage after s. The second return is false for Act.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i+1 >= Count {
		return "", false
	}
	return All()[i+1], true
}

func (s Stage) String() string { return string(s) }
