package workflow

// State represents a workflow state in the approval lifecycle
type State string

const (
	StatePending   State = "Pending"
	StateApproved  State = "Approved"
	StateRejected  State = "Rejected"
	StateWithdrawn State = "Withdrawn"
	StateCompleted State = "Completed"
	StateError     State = "Error"
)

var validStates = map[State]bool{
	StatePending:   true,
	StateApproved:  true,
	StateRejected:  true,
	StateWithdrawn: true,
	StateCompleted: true,
	StateError:     true,
}

// Terminal states admit no further transitions other than the universal
// error edge, which is itself terminal.
var terminalStates = map[State]bool{
	StateCompleted: true,
	StateError:     true,
}

// IsTerminal returns true if the state is a terminal state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
