// Package fsm holds the pure status transition table for a single round.
package fsm

import (
	"errors"
	"fmt"
)

type State string

type Event string

const (
	StateIdle            State = "idle"
	StateAnnouncePending State = "announce_pending"
	StateRunning         State = "running"
	StatePaused          State = "paused"
	StateCompleted       State = "completed"
)

const (
	EventStart     Event = "start"
	EventAnnounced Event = "announced"
	EventPause     Event = "pause"
	EventStop      Event = "stop"
	EventExpire    Event = "expire"
)

// ErrInvalidTransition is wrapped by every rejected transition.
var ErrInvalidTransition = errors.New("invalid transition")

func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateAnnouncePending, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAnnouncePending:
		switch event {
		case EventAnnounced:
			return StateRunning, nil
		case EventPause:
			return StatePaused, nil
		case EventStop:
			return StateIdle, nil
		case EventExpire:
			// The zero tick fired before a pause and resume both landed.
			return StateCompleted, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRunning:
		switch event {
		case EventPause:
			return StatePaused, nil
		case EventStop:
			return StateIdle, nil
		case EventExpire:
			return StateCompleted, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePaused:
		switch event {
		case EventStart:
			return StateAnnouncePending, nil
		case EventExpire:
			// A zero tick that fired before the pause landed still ends the round.
			return StateCompleted, nil
		case EventStop:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateCompleted:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// InProgress reports whether a countdown is underway (announce pending counts).
func (s State) InProgress() bool {
	return s == StateAnnouncePending || s == StateRunning || s == StatePaused
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, state, event)
}
