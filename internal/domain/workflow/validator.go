package workflow

import "fmt"

// Validate resolves (currentState, trigger, role) against the table and
// returns the matched rule or a typed failure. A nil current state means
// the instance does not exist yet (creation triggers only).
//
// Failures are checked in a fixed priority order: unknown trigger, then
// no matching origin, then role not permitted. The function is pure and
// side-effect free; it is safe to call speculatively and repeatedly.
func (t Table) Validate(current *State, trigger Trigger, role Role) (Rule, error) {
	rules, ok := t[trigger]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrUnknownTrigger, trigger)
	}

	for _, rule := range rules {
		if !rule.From.Matches(current) {
			continue
		}
		// First origin match wins; the role check binds to that rule.
		if !rule.Allows(role) {
			return Rule{}, fmt.Errorf("%w: role %s may not fire %s", ErrRoleNotPermitted, role, trigger)
		}
		return rule, nil
	}

	if current == nil {
		return Rule{}, fmt.Errorf("%w: %s requires an existing workflow", ErrNoMatchingOrigin, trigger)
	}
	return Rule{}, fmt.Errorf("%w: cannot fire %s from %s", ErrNoMatchingOrigin, trigger, *current)
}
