package enums

import "fmt"

// PlanRunState is the observable state of a provider optimization run.
type PlanRunState string

const (
	PlanRunRunning   PlanRunState = "running"
	PlanRunFinished  PlanRunState = "finished"
	PlanRunError     PlanRunState = "error"
	PlanRunCancelled PlanRunState = "cancelled"
)

var validPlanRunStates = []PlanRunState{
	PlanRunRunning,
	PlanRunFinished,
	PlanRunError,
	PlanRunCancelled,
}

// String implements fmt.Stringer.
func (p PlanRunState) String() string {
	return string(p)
}

// IsTerminal reports whether polling can stop.
func (p PlanRunState) IsTerminal() bool {
	return p == PlanRunFinished || p == PlanRunError || p == PlanRunCancelled
}

// ParsePlanRunState converts provider input into a PlanRunState.
func ParsePlanRunState(value string) (PlanRunState, error) {
	for _, candidate := range validPlanRunStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan run state %q", value)
}
