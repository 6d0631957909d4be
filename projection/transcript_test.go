package projection

import (
	"testing"
	"time"

	"group-chat/domain/chat"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func message(content string, at time.Time) chat.Message {
	sender := chat.UserID("alice")
	return chat.Message{
		ID:        uuid.Must(uuid.NewV7()),
		GroupID:   "g1",
		SenderID:  &sender,
		Content:   content,
		CreatedAt: at,
	}
}

func contents(messages []chat.Message) []string {
	var out []string
	for _, m := range messages {
		out = append(out, m.Content)
	}
	return out
}

func TestTranscript_Merge_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript("g1")
	m := message("Hi team", time.Now())

	// When the same message arrives from the snapshot and from the live feed
	first := transcript.Merge(m)
	second := transcript.Merge(m)

	// Then it is kept once
	req.Len(first, 1)
	req.Empty(second)
	req.Equal(1, transcript.Len())
}

func TestTranscript_Merge_Orders_Out_Of_Order_Delivery(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript("g1")
	at := time.Now()
	m1 := message("one", at)
	m2 := message("two", at.Add(time.Millisecond))
	m3 := message("three", at.Add(2*time.Millisecond))

	transcript.Merge(m3)
	transcript.Merge(m1)
	transcript.Merge(m2, m3)

	req.Equal([]string{"one", "two", "three"}, contents(transcript.Messages()))
	req.Equal(m3.Cursor(), transcript.Last())
}

func TestTranscript_Same_Timestamp_Tie_Break_On_ID(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript("g1")
	at := time.Now()
	m1 := message("first", at)
	m2 := message("second", at)
	if !m1.Cursor().Before(m2.Cursor()) {
		m1, m2 = m2, m1
	}

	transcript.Merge(m2, m1)

	req.Equal([]chat.Message{m1, m2}, transcript.Messages())
}

func TestTranscript_Ignores_Other_Groups(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript("g1")
	other := message("elsewhere", time.Now())
	other.GroupID = "g2"

	req.Empty(transcript.Merge(other))
	req.Equal(chat.Cursor{}, transcript.Last())
}

func TestTranscript_Pending_Confirmed_By_Echo(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript("g1")
	now := time.Now()

	// Given an optimistic send
	transcript.AddPending("c-1", "alice", "Hi team", now)
	transcript.AddPending("c-1", "alice", "Hi team", now)
	req.Len(transcript.Pending(), 1)
	req.Equal(0, transcript.Len())

	// When the store echoes the message with the same correlation id
	confirmed := message("Hi team", now)
	confirmed.CorrelationID = "c-1"
	transcript.Merge(confirmed)

	// Then the pending entry is gone and the message is confirmed once
	req.Empty(transcript.Pending())
	req.Equal([]string{"Hi team"}, contents(transcript.Messages()))

	// And a second echo only deduplicates
	req.Empty(transcript.Merge(confirmed))
}

func TestTranscript_Failed_Pending_Stays_Visible(t *testing.T) {
	req := require.New(t)
	transcript := NewTranscript("g1")

	transcript.AddPending("c-2", "alice", "lost", time.Now())
	transcript.FailPending("c-2", "store unavailable")

	pending := transcript.Pending()
	req.Len(pending, 1)
	req.True(pending[0].Failed)
	req.Equal("store unavailable", pending[0].Reason)

	transcript.DiscardPending("c-2")
	req.Empty(transcript.Pending())
}
