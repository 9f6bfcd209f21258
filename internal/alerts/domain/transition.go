package alerts

import "fmt"

// Action is a user-initiated transition.
type Action string

const (
	ActionAcknowledge Action = "acknowledge"
	ActionResolve     Action = "resolve"
)

// ParseAction validates an action name.
func ParseAction(value string) (Action, bool) {
	switch Action(value) {
	case ActionAcknowledge, ActionResolve:
		return Action(value), true
	default:
		return "", false
	}
}

// Target returns the status an action moves to.
func (a Action) Target() Status {
	switch a {
	case ActionAcknowledge:
		return StatusAcknowledged
	case ActionResolve:
		return StatusResolved
	}
	return ""
}

// CanTransition reports whether action may run from status. Acknowledge needs active;
// resolve needs active or acknowledged.
func CanTransition(from Status, action Action) bool {
	switch action {
	case ActionAcknowledge:
		return from == StatusActive
	case ActionResolve:
		return from == StatusActive || from == StatusAcknowledged
	}
	return false
}

// CheckTransition returns ErrTransitionNotAllowed when action may not run from status.
func CheckTransition(from Status, action Action) error {
	if CanTransition(from, action) {
		return nil
	}
	return fmt.Errorf("%w: %s from %s", ErrTransitionNotAllowed, action, from)
}
