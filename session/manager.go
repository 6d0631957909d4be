package session

import (
	"context"
	"fmt"
	"group-chat/contract"
	"group-chat/domain/chat"
	"group-chat/errors"
	"group-chat/observability"
	"group-chat/projection"
	"group-chat/runtime/workers"
	"group-chat/sink"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Options struct {
	BufferSize        int
	HistoryLimit      int
	HeartbeatTimeout  time.Duration
	ReconnectAttempts uint64
	ReconnectBackoff  time.Duration
	CloseTimeout      time.Duration
}

// Manager owns every live session and its subscriptions.
// Sessions are independent: closing or degrading one never affects another.
type Manager struct {
	log       *slog.Logger
	authority contract.IMembershipAuthority
	store     contract.IMessageStore
	registry  contract.IRegistry
	monitor   *observability.Monitor
	clock     contract.IClock
	options   Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(log *slog.Logger, authority contract.IMembershipAuthority, store contract.IMessageStore,
	registry contract.IRegistry, monitor *observability.Monitor, clock contract.IClock, options Options) *Manager {
	return &Manager{
		log:       log,
		authority: authority,
		store:     store,
		registry:  registry,
		monitor:   monitor,
		clock:     clock,
		options:   options,
		sessions:  make(map[string]*Session),
	}
}

// Open creates a session for an authenticated user.
func (m *Manager) Open(userID chat.UserID) *Session {
	s := newSession(uuid.NewString(), userID, m.options.BufferSize, m.clock.Now())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.monitor.SessionOpened()
	m.log.Debug("Session opened", "session", s.ID, "user", userID)
	return s
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, errors.ErrSessionClosed
	}
	return s, nil
}

// Subscribe checks membership, registers the live subscription, then returns the
// recent history merged with anything already delivered, in ascending order.
// Subscribing twice to the same group returns the current view, once the first
// subscribe has completed.
func (m *Manager) Subscribe(ctx context.Context, sessionID string, groupID chat.GroupID) ([]chat.Message, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err = m.authority.CheckMembership(ctx, groupID, s.UserID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.ErrSessionClosed
	}
	if existing, ok := s.channels[groupID]; ok && existing.State() != Closed {
		s.mu.Unlock()
		return m.awaitSubscribed(ctx, existing)
	}
	c := m.newChannel(s, groupID)
	s.channels[groupID] = c
	s.mu.Unlock()

	messages, err := c.subscribe(ctx)
	if err != nil {
		s.mu.Lock()
		if s.channels[groupID] == c {
			delete(s.channels, groupID)
		}
		s.mu.Unlock()
		return nil, err
	}
	s.touch(m.clock.Now())
	m.log.Debug("Subscribed", "session", sessionID, "group", groupID, "snapshot", len(messages))
	return messages, nil
}

func (m *Manager) awaitSubscribed(ctx context.Context, c *Channel) ([]chat.Message, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if c.State() == Closed {
		return nil, fmt.Errorf("%w: subscription to %s closed", errors.ErrInvalidState, c.groupID)
	}
	return c.transcript.Messages(), nil
}

func (m *Manager) newChannel(s *Session, groupID chat.GroupID) *Channel {
	return &Channel{
		log:            m.log,
		session:        s,
		groupID:        groupID,
		authority:      m.authority,
		store:          m.store,
		registry:       m.registry,
		monitor:        m.monitor,
		options:        m.options,
		subscriptionID: fmt.Sprintf("%s:%s", s.ID, groupID),
		sink:           sink.NewSessionSink(m.options.BufferSize, m.monitor),
		transcript:     projection.NewTranscript(groupID),
		state:          Idle,
		ready:          make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (m *Manager) Unsubscribe(sessionID string, groupID chat.GroupID) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	c, ok := s.channels[groupID]
	delete(s.channels, groupID)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return c.close("unsubscribed")
}

// Send appends a message through the store on behalf of the session.
// The session must be subscribed to the group. An empty correlation id is generated.
func (m *Manager) Send(ctx context.Context, sessionID string, groupID chat.GroupID, correlationID, content string) (chat.Message, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return chat.Message{}, err
	}
	c, ok := s.Channel(groupID)
	if !ok || c.State() == Closed {
		return chat.Message{}, fmt.Errorf("%w: not subscribed to %s", errors.ErrInvalidState, groupID)
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	now := m.clock.Now()
	s.touch(now)
	return c.send(ctx, correlationID, content, now)
}

func (m *Manager) Heartbeat(sessionID string) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	s.touch(m.clock.Now())
	return nil
}

// Close tears the session down: every subscription is unregistered and its pump stopped.
// Closing an unknown or already closed session is a no-op.
func (m *Manager) Close(sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	for _, c := range s.snapshotChannels() {
		_ = c.close("session closed")
	}
	m.monitor.SessionClosed()
	m.log.Debug("Session closed", "session", sessionID, "user", s.UserID)
	return nil
}

// Shutdown closes every session, used when the server stops.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		_ = m.Close(id)
	}
}

// Reap closes the sessions not seen since HeartbeatTimeout and gives degraded
// subscriptions of the others another reconnect attempt.
func (m *Manager) Reap(_ context.Context, now time.Time) int {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	reaped := 0
	for _, s := range sessions {
		if now.Sub(s.LastSeen()) > m.options.HeartbeatTimeout {
			m.log.Info("Session idle, closing", "session", s.ID, "user", s.UserID, "last_seen", s.LastSeen())
			_ = m.Close(s.ID)
			reaped++
			continue
		}
		for _, c := range s.snapshotChannels() {
			c.retryDegraded()
		}
	}
	return reaped
}

// Channels lists the sink buffers of every live subscription for the capacity sampler.
func (m *Manager) Channels() []workers.NamedChannel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var channels []workers.NamedChannel
	for _, s := range m.sessions {
		for _, c := range s.snapshotChannels() {
			channels = append(channels, workers.NamedChannel{Name: "sink:" + c.subscriptionID, Channel: c.sink.Buffer()})
		}
	}
	return channels
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
