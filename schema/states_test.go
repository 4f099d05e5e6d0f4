package schema

import "testing"

func TestTerminalStates(t *testing.T) {
	terminal := []ActionState{StateSucceeded, StateFailed, StateRejected}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
		if s.Decidable() {
			t.Fatalf("%s should not be decidable", s)
		}
	}
	for _, s := range []ActionState{StateDraft, StateProposed, StateExecuting} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]ActionState{
		{StateDraft, StateProposed},
		{StateProposed, StateExecuting},
		{StateProposed, StateRejected},
		{StateProposed, StateProposed},
		{StateExecuting, StateSucceeded},
		{StateExecuting, StateFailed},
	}
	for _, edge := range allowed {
		if !CanTransition(edge[0], edge[1]) {
			t.Fatalf("expected %s -> %s to be legal", edge[0], edge[1])
		}
	}
	denied := [][2]ActionState{
		{StateSucceeded, StateProposed},
		{StateRejected, StateExecuting},
		{StateFailed, StateProposed},
		{StateDraft, StateExecuting},
		{StateExecuting, StateRejected},
		{StateExecuting, StateProposed},
	}
	for _, edge := range denied {
		if CanTransition(edge[0], edge[1]) {
			t.Fatalf("expected %s -> %s to be illegal", edge[0], edge[1])
		}
	}
}
