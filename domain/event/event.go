// Package event defines the tagged variants flowing from the change feed to sessions,
// and the technical events consumed by telemetry handlers.
package event

import (
	"group-chat/domain/chat"
)

// DomainEvent is delivered to the sessions subscribed to a group.
type DomainEvent interface {
	GroupID() chat.GroupID
}

// MessageCreated is emitted once a message has been committed by the store.
type MessageCreated struct {
	Message chat.Message
}

func (m MessageCreated) GroupID() chat.GroupID {
	return m.Message.GroupID
}

type ConnectionState string

const (
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StateDegraded     ConnectionState = "degraded"
	StateClosed       ConnectionState = "closed"
)

// ConnectionStateChanged reports a lifecycle transition of one subscription.
type ConnectionStateChanged struct {
	Group  chat.GroupID
	State  ConnectionState
	Reason string
}

func (c ConnectionStateChanged) GroupID() chat.GroupID {
	return c.Group
}
