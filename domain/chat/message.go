package chat

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat entry of a group.
// SenderID is nil when the sender account has been anonymized.
type Message struct {
	ID            uuid.UUID
	GroupID       GroupID
	SenderID      *UserID
	Content       string
	CreatedAt     time.Time
	CorrelationID string // client generated id of the optimistic send, may be empty
}

// Cursor is the ordering key of a message: creation time, then id.
type Cursor struct {
	At time.Time
	ID uuid.UUID
}

func (m Message) Cursor() Cursor {
	return Cursor{At: m.CreatedAt, ID: m.ID}
}

// Before reports whether c sorts strictly before other.
func (c Cursor) Before(other Cursor) bool {
	if !c.At.Equal(other.At) {
		return c.At.Before(other.At)
	}
	return bytes.Compare(c.ID[:], other.ID[:]) < 0
}

func (c Cursor) IsZero() bool {
	return c.At.IsZero() && c.ID == uuid.Nil
}

func (m Message) SentBy(userID UserID) bool {
	return m.SenderID != nil && *m.SenderID == userID
}
