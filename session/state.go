package session

import (
	"fmt"
	"group-chat/domain/event"
	"group-chat/errors"
)

// State of one subscription of a session to a group.
type State string

const (
	Idle         State = "idle"
	Subscribing  State = "subscribing"
	Active       State = "active"
	Reconnecting State = "reconnecting"
	Degraded     State = "degraded"
	Closed       State = "closed"
)

var transitions = map[State][]State{
	Idle:         {Subscribing, Closed},
	Subscribing:  {Active, Closed},
	Active:       {Reconnecting, Closed},
	Reconnecting: {Active, Degraded, Closed},
	Degraded:     {Reconnecting, Closed},
}

func (s State) CanTransitionTo(to State) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

func transition(from, to State) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidState, from, to)
	}
	return nil
}

// connectionState is the state reported to the presentation layer, if any.
func (s State) connectionState() (event.ConnectionState, bool) {
	switch s {
	case Active:
		return event.StateConnected, true
	case Reconnecting:
		return event.StateReconnecting, true
	case Degraded:
		return event.StateDegraded, true
	case Closed:
		return event.StateClosed, true
	}
	return "", false
}
