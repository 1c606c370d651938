package workflow

import "errors"

var (
	// ErrUnknownTrigger is returned when the trigger is absent from the
	// transition table
	ErrUnknownTrigger = errors.New("unknown trigger")

	// ErrNoMatchingOrigin is returned when no rule for the trigger matches
	// the current state
	ErrNoMatchingOrigin = errors.New("no transition from current state")

	// ErrRoleNotPermitted is returned when a matching rule exists but the
	// caller's role is not allowed to fire it
	ErrRoleNotPermitted = errors.New("role not permitted")
)
