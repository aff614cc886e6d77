package game

import "fmt"

// IllegalActionError rejects an action that is malformed or not legal in
// the current phase. State is untouched when it is returned.
type IllegalActionError struct {
	Action string
	Phase  Phase
	Reason string
}

func (e *IllegalActionError) Error() string {
	return fmt.Sprintf("illegal action %q in phase %s: %s", e.Action, e.Phase, e.Reason)
}
