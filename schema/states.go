package schema

// ActionState is the approval lifecycle state of a proposed action.
type ActionState string

const (
	// StateDraft marks an action still being composed from stream input.
	StateDraft ActionState = "draft"
	// StateProposed marks an action awaiting a human decision.
	StateProposed ActionState = "proposed"
	// StateExecuting marks an approved action being dispatched.
	StateExecuting ActionState = "executing"
	// StateSucceeded marks a completed dispatch. Terminal.
	StateSucceeded ActionState = "succeeded"
	// StateFailed marks a dispatch that reported an error. Terminal.
	StateFailed ActionState = "failed"
	// StateRejected marks a human rejection. Terminal; no dispatch occurred.
	StateRejected ActionState = "rejected"
)

// Terminal reports whether no further transition is permitted.
func (s ActionState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateRejected:
		return true
	default:
		return false
	}
}

// Decidable reports whether approve/reject/edit are permitted.
func (s ActionState) Decidable() bool {
	return s == StateDraft || s == StateProposed
}

var actionTransitions = map[ActionState][]ActionState{
	StateDraft:     {StateProposed},
	StateProposed:  {StateExecuting, StateRejected, StateProposed},
	StateExecuting: {StateSucceeded, StateFailed},
}

// CanTransition reports whether from→to is a legal lifecycle edge.
// The proposed→proposed edge models an edit: fields change, state does not.
func CanTransition(from, to ActionState) bool {
	for _, next := range actionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
