package services

import (
	"context"
	"fmt"
	"group-chat/auth"
	"group-chat/contract"
	"group-chat/domain/chat"
	"group-chat/errors"
	"group-chat/infrastructure/storage"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageStore is the only write path for messages.
// Appends to one group are serialized so that commit order equals (CreatedAt, ID) order,
// appends to different groups never wait on each other.
type MessageStore struct {
	log              *slog.Logger
	authority        contract.IMembershipAuthority
	messages         storage.IMessageRepository
	clock            contract.IClock
	maxContentLength int
	defaultLimit     int
	maxLimit         int

	mu         sync.Mutex
	sequencers map[chat.GroupID]*sequencer
}

// sequencer remembers the last timestamp handed out for a group.
// refs and used are guarded by MessageStore.mu.
type sequencer struct {
	mu     sync.Mutex
	last   time.Time
	loaded bool
	refs   int
	used   bool
}

func NewMessageStore(log *slog.Logger, authority contract.IMembershipAuthority, messages storage.IMessageRepository,
	clock contract.IClock, maxContentLength, defaultLimit, maxLimit int) *MessageStore {
	return &MessageStore{
		log:              log,
		authority:        authority,
		messages:         messages,
		clock:            clock,
		maxContentLength: maxContentLength,
		defaultLimit:     defaultLimit,
		maxLimit:         maxLimit,
		sequencers:       make(map[chat.GroupID]*sequencer),
	}
}

func (s *MessageStore) AppendMessage(ctx context.Context, groupID chat.GroupID, senderID chat.UserID,
	correlationID, content string) (chat.Message, error) {
	if _, err := s.authority.CheckMembership(ctx, groupID, senderID); err != nil {
		return chat.Message{}, err
	}
	trimmed, err := auth.ValidateContent(content, s.maxContentLength)
	if err != nil {
		return chat.Message{}, err
	}

	seq := s.acquire(groupID)
	defer s.release(seq)
	seq.mu.Lock()
	defer seq.mu.Unlock()

	if !seq.loaded {
		last, err := s.messages.LastMessageAt(ctx, groupID)
		if err != nil {
			return chat.Message{}, err
		}
		seq.last, seq.loaded = last, true
	}
	at := s.clock.Now().UTC()
	if !at.After(seq.last) {
		at = seq.last.Add(time.Nanosecond)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	sender := senderID
	message := chat.Message{
		ID:            id,
		GroupID:       groupID,
		SenderID:      &sender,
		Content:       trimmed,
		CreatedAt:     at,
		CorrelationID: correlationID,
	}
	if err = s.messages.StoreMessage(ctx, message); err != nil {
		s.log.Error("Unable to store message", "group", groupID, "error", err)
		return chat.Message{}, err
	}
	seq.last = at
	return message, nil
}

// FetchRecent returns the latest messages of the group in ascending order.
func (s *MessageStore) FetchRecent(ctx context.Context, groupID chat.GroupID, userID chat.UserID, limit int) ([]chat.Message, error) {
	if _, err := s.authority.CheckMembership(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.messages.Recent(ctx, groupID, s.normalize(limit))
}

// FetchSince returns the messages strictly after the cursor in ascending order.
func (s *MessageStore) FetchSince(ctx context.Context, groupID chat.GroupID, userID chat.UserID,
	cursor chat.Cursor, limit int) ([]chat.Message, error) {
	if _, err := s.authority.CheckMembership(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.messages.Since(ctx, groupID, cursor, s.normalize(limit))
}

func (s *MessageStore) normalize(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	return min(limit, s.maxLimit)
}

func (s *MessageStore) acquire(groupID chat.GroupID) *sequencer {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.sequencers[groupID]
	if !ok {
		seq = &sequencer{}
		s.sequencers[groupID] = seq
	}
	seq.refs++
	seq.used = true
	return seq
}

func (s *MessageStore) release(seq *sequencer) {
	s.mu.Lock()
	seq.refs--
	s.mu.Unlock()
}

// Reap forgets the sequencers of groups nobody appended to since the previous call.
// The next append to such a group reloads its last timestamp from the repository.
func (s *MessageStore) Reap(_ context.Context, _ time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for groupID, seq := range s.sequencers {
		if seq.refs == 0 && !seq.used {
			delete(s.sequencers, groupID)
			evicted++
			continue
		}
		seq.used = false
	}
	return evicted
}
