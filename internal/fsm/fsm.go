package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle            State = "idle"
	StateInterpreting    State = "interpreting"
	StateAwaitingClarify State = "awaiting-clarification"
	StateExecuting       State = "executing"
	StateError           State = "error"
)

const (
	EventTranscript Event = "transcript"
	EventClarify    Event = "clarify"
	EventResolved   Event = "resolved"
	EventMiss       Event = "miss"
	EventExecuted   Event = "executed"
	EventFail       Event = "fail"
	EventReset      Event = "reset"
)

// Transition advances the turn lifecycle. A final transcript opens a turn,
// which either resolves to an execution, parks on a clarification question,
// or misses back to idle.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventTranscript:
			return StateInterpreting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateInterpreting:
		switch event {
		case EventResolved:
			return StateExecuting, nil
		case EventClarify:
			return StateAwaitingClarify, nil
		case EventMiss:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaitingClarify:
		switch event {
		case EventTranscript:
			return StateInterpreting, nil
		case EventMiss:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateExecuting:
		switch event {
		case EventExecuted:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
