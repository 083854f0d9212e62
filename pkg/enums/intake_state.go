package enums

import "fmt"

// IntakeState is the stage of a quotation intake conversation.
type IntakeState string

const (
	IntakeGreeting   IntakeState = "greeting"
	IntakeCollecting IntakeState = "collecting_fields"
	IntakeConfirming IntakeState = "confirming"
	IntakeAssembling IntakeState = "assembling"
	IntakeDone       IntakeState = "done"
	IntakeError      IntakeState = "error"
)

var validIntakeStates = []IntakeState{
	IntakeGreeting,
	IntakeCollecting,
	IntakeConfirming,
	IntakeAssembling,
	IntakeDone,
	IntakeError,
}

// IsValid reports whether the state is recognized.
func (s IntakeState) IsValid() bool {
	for _, candidate := range validIntakeStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the conversation has finished.
func (s IntakeState) IsTerminal() bool {
	return s == IntakeDone
}

// ParseIntakeState converts raw input into an IntakeState.
func ParseIntakeState(value string) (IntakeState, error) {
	for _, candidate := range validIntakeStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid intake state %q", value)
}
