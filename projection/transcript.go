// Package projection builds the local ordered view of a group from observed messages.
// Handles ordering, deduplication and the reconciliation of optimistic sends.
// Does not emit events or interact with the presentation layer directly.
package projection

import (
	"group-chat/domain/chat"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Pending is a message sent locally and not yet confirmed by the store.
type Pending struct {
	CorrelationID string
	SenderID      chat.UserID
	Content       string
	QueuedAt      time.Time
	Failed        bool
	Reason        string
}

// Transcript keeps the confirmed messages ordered by (CreatedAt, ID), each id at most once,
// and the pending sends apart from them.
type Transcript struct {
	mu        sync.RWMutex
	groupID   chat.GroupID
	confirmed []chat.Message
	seen      map[uuid.UUID]struct{}
	pending   []Pending
}

func NewTranscript(groupID chat.GroupID) *Transcript {
	return &Transcript{
		groupID: groupID,
		seen:    make(map[uuid.UUID]struct{}),
	}
}

// Merge inserts the messages not seen yet at their ordered position and returns them.
// Messages of another group are ignored. A merged message carrying the correlation id
// of a pending send confirms it.
func (t *Transcript) Merge(messages ...chat.Message) []chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	var inserted []chat.Message
	for _, message := range messages {
		if message.GroupID != t.groupID {
			continue
		}
		t.confirmPending(message.CorrelationID)
		if _, ok := t.seen[message.ID]; ok {
			continue
		}
		t.seen[message.ID] = struct{}{}
		t.insert(message)
		inserted = append(inserted, message)
	}
	return inserted
}

func (t *Transcript) insert(message chat.Message) {
	cursor := message.Cursor()
	i := sort.Search(len(t.confirmed), func(i int) bool {
		return cursor.Before(t.confirmed[i].Cursor())
	})
	t.confirmed = append(t.confirmed, chat.Message{})
	copy(t.confirmed[i+1:], t.confirmed[i:])
	t.confirmed[i] = message
}

// AddPending records an optimistic send, a correlation id already pending is kept once.
func (t *Transcript) AddPending(correlationID string, senderID chat.UserID, content string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.pending {
		if p.CorrelationID == correlationID {
			return
		}
	}
	t.pending = append(t.pending, Pending{
		CorrelationID: correlationID,
		SenderID:      senderID,
		Content:       content,
		QueuedAt:      at,
	})
}

// FailPending keeps the failed send visible so that it can be retried or discarded.
func (t *Transcript) FailPending(correlationID, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.pending {
		if t.pending[i].CorrelationID == correlationID {
			t.pending[i].Failed = true
			t.pending[i].Reason = reason
		}
	}
}

// DiscardPending drops a failed send.
func (t *Transcript) DiscardPending(correlationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.confirmPending(correlationID)
}

func (t *Transcript) confirmPending(correlationID string) {
	if correlationID == "" {
		return
	}
	for i, p := range t.pending {
		if p.CorrelationID == correlationID {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return
		}
	}
}

func (t *Transcript) Messages() []chat.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]chat.Message(nil), t.confirmed...)
}

func (t *Transcript) Pending() []Pending {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Pending(nil), t.pending...)
}

// Last returns the cursor of the newest confirmed message, zero when empty.
func (t *Transcript) Last() chat.Cursor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.confirmed) == 0 {
		return chat.Cursor{}
	}
	return t.confirmed[len(t.confirmed)-1].Cursor()
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.confirmed)
}
