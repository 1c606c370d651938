package workflow

// Trigger represents a named action requested by an actor that may cause
// a state transition
type Trigger string

const (
	TriggerSubmit   Trigger = "submit"
	TriggerApprove  Trigger = "approve"
	TriggerReject   Trigger = "reject"
	TriggerWithdraw Trigger = "withdraw"
	TriggerComplete Trigger = "complete"
	TriggerError    Trigger = "error"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
