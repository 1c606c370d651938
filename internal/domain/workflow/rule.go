package workflow

import "fmt"

// originKind discriminates the closed set of origin constraints a rule
// can declare.
type originKind int

const (
	originNone  originKind = iota // valid only when creating a new instance
	originAny                     // valid from every existing state
	originExact                   // valid from one specific state
)

// Origin is the origin-state constraint of a transition rule.
type Origin struct {
	kind  originKind
	state State
}

// NoState returns the origin constraint that matches only instance creation.
func NoState() Origin {
	return Origin{kind: originNone}
}

// AnyState returns the origin constraint that matches every existing state.
func AnyState() Origin {
	return Origin{kind: originAny}
}

// FromState returns the origin constraint that matches exactly one state.
func FromState(s State) Origin {
	if !s.IsValid() {
		panic(fmt.Sprintf("invalid origin state: %s", s))
	}
	return Origin{kind: originExact, state: s}
}

// Matches reports whether the constraint matches the given current state.
// A nil current state means the workflow instance does not exist yet.
func (o Origin) Matches(current *State) bool {
	switch o.kind {
	case originNone:
		return current == nil
	case originAny:
		return current != nil
	default:
		return current != nil && *current == o.state
	}
}

// String returns a human-readable form used in error messages.
func (o Origin) String() string {
	switch o.kind {
	case originNone:
		return "(none)"
	case originAny:
		return "(any)"
	default:
		return string(o.state)
	}
}

// Rule is a single transition rule: an origin constraint, a destination
// state and the set of roles permitted to fire it.
type Rule struct {
	From  Origin
	To    State
	Roles []Role
}

// Allows returns true if the role may fire this rule.
func (r Rule) Allows(role Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Table maps each trigger to its ordered list of transition rules. When
// several rules for a trigger match the same origin, the first declared
// rule wins, so validation outcomes are deterministic.
type Table map[Trigger][]Rule

// DefaultTable returns the transition table for the approval workflow.
// The table is fixed at startup and never mutated at runtime.
func DefaultTable() Table {
	return Table{
		TriggerSubmit: {
			{From: NoState(), To: StatePending, Roles: []Role{RoleSubmitter}},
		},
		TriggerApprove: {
			{From: FromState(StatePending), To: StateApproved, Roles: []Role{RoleApprover}},
		},
		TriggerReject: {
			{From: FromState(StatePending), To: StateRejected, Roles: []Role{RoleApprover}},
		},
		TriggerWithdraw: {
			{From: FromState(StatePending), To: StateWithdrawn, Roles: []Role{RoleSubmitter}},
		},
		TriggerComplete: {
			{From: FromState(StateApproved), To: StateCompleted, Roles: []Role{RoleSystem}},
			{From: FromState(StateRejected), To: StateCompleted, Roles: []Role{RoleSystem}},
			{From: FromState(StateWithdrawn), To: StateCompleted, Roles: []Role{RoleSystem}},
		},
		TriggerError: {
			{From: AnyState(), To: StateError, Roles: []Role{RoleSystem}},
		},
	}
}
