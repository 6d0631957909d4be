package session

import (
	"context"
	"group-chat/domain/chat"
	"group-chat/domain/event"
	"sync"
	"sync/atomic"
	"time"
)

// Session is the per-connection context object: who is connected, what they are
// subscribed to and when they were last seen. It is torn down by Manager.Close.
type Session struct {
	ID     string
	UserID chat.UserID

	ctx      context.Context
	cancel   context.CancelFunc
	events   chan event.DomainEvent
	lastSeen atomic.Int64

	mu       sync.Mutex
	channels map[chat.GroupID]*Channel
	closed   bool
}

func newSession(id string, userID chat.UserID, bufferSize int, now time.Time) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:       id,
		UserID:   userID,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan event.DomainEvent, bufferSize),
		channels: make(map[chat.GroupID]*Channel),
	}
	s.touch(now)
	return s
}

// Events yields MessageCreated and ConnectionStateChanged for every subscribed group.
// It is never closed, use Done to stop reading.
func (s *Session) Events() <-chan event.DomainEvent {
	return s.events
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// Channel returns the subscription to the group, if any.
func (s *Session) Channel(groupID chat.GroupID) (*Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.channels[groupID]
	return c, ok
}

func (s *Session) snapshotChannels() []*Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	channels := make([]*Channel, 0, len(s.channels))
	for _, c := range s.channels {
		channels = append(channels, c)
	}
	return channels
}

// emit blocks until the presentation layer takes the event or the session is closed.
// A slow reader therefore backs up into the sink, which resyncs instead of blocking the fan-out.
func (s *Session) emit(evt event.DomainEvent) {
	select {
	case s.events <- evt:
	case <-s.ctx.Done():
	}
}
