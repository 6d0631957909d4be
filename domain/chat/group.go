// Package chat contains the core concepts of the group chat.
// Groups, memberships, messages and profiles are plain values validated by the services.
// No runtime, network, or storage logic should be added here.
package chat

import (
	"time"
)

type GroupID string

type UserID string

func (g GroupID) String() string { return string(g) }

func (u UserID) String() string { return string(u) }

// Group is a named conversation space owned by the user who created it.
type Group struct {
	ID        GroupID
	Name      string
	OwnerID   UserID
	CreatedAt time.Time
}
