package models

import "fmt"

// EdgeState describes how a boolean moved between two observations.
type EdgeState int8

const (
	TurnedFalse EdgeState = -1
	IsFalse     EdgeState = 0
	IsTrue      EdgeState = 1
	TurnedTrue  EdgeState = 2
)

// Transition returns the edge between previous and current.
// The value is 2*current - previous with both coerced to {0,1}.
func Transition(previous, current bool) EdgeState {
	return EdgeState(2*boolToInt(current) - boolToInt(previous))
}

func boolToInt(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

// Rising reports whether the value just became true.
func (s EdgeState) Rising() bool { return s == TurnedTrue }

// Falling reports whether the value just became false.
func (s EdgeState) Falling() bool { return s == TurnedFalse }

// Changed reports whether the observation differs from the previous one.
func (s EdgeState) Changed() bool { return s == TurnedTrue || s == TurnedFalse }

// Value is the current boolean behind the edge.
func (s EdgeState) Value() bool { return s == IsTrue || s == TurnedTrue }

func (s EdgeState) String() string {
	switch s {
	case TurnedFalse:
		return "TurnedFalse"
	case IsFalse:
		return "IsFalse"
	case IsTrue:
		return "IsTrue"
	case TurnedTrue:
		return "TurnedTrue"
	default:
		return fmt.Sprintf("EdgeState(%d)", int8(s))
	}
}

func (s EdgeState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
