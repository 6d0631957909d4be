package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"group-chat/auth"
	"group-chat/contract"
	"group-chat/domain/chat"
	"group-chat/domain/event"
	"group-chat/infrastructure/storage"
	"group-chat/observability"
	"group-chat/runtime"
	"group-chat/runtime/workers"
	"group-chat/services"
	"group-chat/session"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type stack struct {
	url    string
	issuer *auth.TokenIssuer
	router http.Handler
}

// newStack serves the whole application on a temporary badger.
func newStack(t *testing.T) *stack {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	clock := contract.SystemClock{}
	groupRepository := storage.NewGroupRepository(db, log)
	messageRepository := storage.NewMessageRepository(db, log)
	authority, err := services.NewMembershipAuthority(log, groupRepository, time.Second)
	req.NoError(err)
	t.Cleanup(authority.Close)
	store := services.NewMessageStore(log, authority, messageRepository, clock, 4000, 50, 200)
	groups := services.NewGroupService(log, storage.NewUnitOfWork(db), groupRepository, authority, clock)
	profiles := services.NewProfileService(log, storage.NewProfileRepository(db, log), groupRepository, messageRepository, clock)

	monitor := observability.NewMonitor()
	registry := runtime.NewRegistry()
	telemetry := make(chan event.Event, 16)
	orchestrator := runtime.NewOrchestrator(log, db, workers.NewSupervisor(log, telemetry, 10*time.Millisecond),
		registry, monitor, telemetry, 64, time.Minute, 4)
	manager := session.NewManager(log, authority, store, registry, monitor, clock, session.Options{
		BufferSize:        64,
		HistoryLimit:      50,
		HeartbeatTimeout:  time.Minute,
		ReconnectAttempts: 2,
		ReconnectBackoff:  time.Millisecond,
		CloseTimeout:      time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		orchestrator.Start(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	select {
	case <-orchestrator.Ready():
	case <-time.After(5 * time.Second):
		req.FailNow("change feed never became ready")
	}

	issuer := auth.NewTokenIssuer(testSecret, time.Hour)
	server := NewServer(log, issuer, auth.ContextProvider{}, services.NewChatService(authority, store, groups), profiles, manager,
		Options{WriteTimeout: time.Second, ReadTimeout: time.Minute, OutboundBuffer: 32, DefaultLimit: 50})
	router := server.Router()
	httpServer := httptest.NewServer(router)
	t.Cleanup(httpServer.Close)
	return &stack{url: httpServer.URL, issuer: issuer, router: router}
}

func (s *stack) do(t *testing.T, method, path string, userID chat.UserID, body any) *httptest.ResponseRecorder {
	f := handlerFixture{issuer: s.issuer, router: s.router}
	return f.do(t, method, path, userID, body)
}

type wsClient struct {
	t       *testing.T
	conn    *websocket.Conn
	frames  chan outboundFrame
	backlog []outboundFrame
}

func (s *stack) dial(t *testing.T, userID chat.UserID) *wsClient {
	t.Helper()
	token, err := s.issuer.GenerateToken(userID)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(s.url, "http") + "/v1/ws?access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &wsClient{t: t, conn: conn, frames: make(chan outboundFrame, 64)}
	go func() {
		defer close(c.frames)
		for {
			var frame outboundFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			c.frames <- frame
		}
	}()
	return c
}

func (c *wsClient) send(frame inboundFrame) {
	require.NoError(c.t, c.conn.WriteJSON(frame))
}

// await returns the first frame matching, keeping the others for later calls.
func (c *wsClient) await(match func(outboundFrame) bool) outboundFrame {
	c.t.Helper()
	for i, frame := range c.backlog {
		if match(frame) {
			c.backlog = append(c.backlog[:i], c.backlog[i+1:]...)
			return frame
		}
	}
	timeout := time.After(3 * time.Second)
	for {
		select {
		case frame, ok := <-c.frames:
			if !ok {
				require.FailNow(c.t, "connection closed")
			}
			if match(frame) {
				return frame
			}
			c.backlog = append(c.backlog, frame)
		case <-timeout:
			require.FailNow(c.t, "expected frame not received", "backlog: %+v", c.backlog)
		}
	}
}

// count drains the connection for the grace period and counts the matching frames.
func (c *wsClient) count(match func(outboundFrame) bool, grace time.Duration) int {
	n := 0
	for _, frame := range c.backlog {
		if match(frame) {
			n++
		}
	}
	c.backlog = nil
	deadline := time.After(grace)
	for {
		select {
		case frame, ok := <-c.frames:
			if !ok {
				return n
			}
			if match(frame) {
				n++
			}
		case <-deadline:
			return n
		}
	}
}

func ofType(frameType string) func(outboundFrame) bool {
	return func(f outboundFrame) bool { return f.Type == frameType }
}

func TestScenario_Design_Team(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	for userID, name := range map[chat.UserID]string{"alice": "Alice", "bob": "Bob", "carol": "Carol"} {
		w := s.do(t, http.MethodPut, "/v1/profile", userID, profileRequest{DisplayName: name})
		req.Equal(http.StatusOK, w.Code)
	}

	// Given alice owns "Design Team" and bob is a member
	w := s.do(t, http.MethodPost, "/v1/groups", "alice", createGroupRequest{Name: "Design Team"})
	req.Equal(http.StatusCreated, w.Code)
	group := decode[groupDTO](t, w)
	w = s.do(t, http.MethodPost, "/v1/groups/"+group.ID+"/members", "alice", addMemberRequest{UserID: "bob"})
	req.Equal(http.StatusCreated, w.Code)

	alice := s.dial(t, "alice")
	bob := s.dial(t, "bob")
	carol := s.dial(t, "carol")
	for _, c := range []*wsClient{alice, bob} {
		c.send(inboundFrame{Type: frameSubscribe, GroupID: group.ID})
		snapshot := c.await(ofType(frameSnapshot))
		req.Empty(snapshot.Messages)
		state := c.await(ofType(frameState))
		req.Equal(string(event.StateConnected), state.State)
	}

	// carol is refused
	carol.send(inboundFrame{Type: frameSubscribe, GroupID: group.ID})
	refused := carol.await(ofType(frameError))
	req.Equal("forbidden", refused.Code)

	// When alice posts "Hi team"
	alice.send(inboundFrame{Type: frameSend, GroupID: group.ID, CorrelationID: "c-1", Content: "Hi team"})
	ack := alice.await(ofType(frameAck))
	req.Equal("c-1", ack.CorrelationID)
	req.Equal("Alice", ack.Message.SenderName)

	// Then bob and alice each see it exactly once
	isHi := func(f outboundFrame) bool {
		return f.Type == frameMessage && f.Message != nil && f.Message.ID == ack.Message.ID
	}
	received := bob.await(isHi)
	req.Equal("Hi team", received.Message.Content)
	req.Equal("Alice", received.Message.SenderName)
	req.Zero(bob.count(isHi, 300*time.Millisecond))
	req.Equal(1, alice.count(isHi, 100*time.Millisecond))

	// carol can neither read nor post, and nothing was written on her behalf
	w = s.do(t, http.MethodGet, "/v1/groups/"+group.ID+"/messages", "carol", nil)
	req.Equal(http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodPost, "/v1/groups/"+group.ID+"/messages", "carol", postMessageRequest{Content: "hello?"})
	req.Equal(http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodGet, "/v1/groups/"+group.ID+"/messages", "bob", nil)
	req.Equal(http.StatusOK, w.Code)
	history := decode[[]messageDTO](t, w)
	req.Len(history, 1)
	req.Equal(ack.Message.ID, history[0].ID)

	// Membership as seen by each user
	w = s.do(t, http.MethodGet, "/v1/groups/"+group.ID+"/membership", "alice", nil)
	req.Equal("admin", decode[membershipDTO](t, w).Role)
	w = s.do(t, http.MethodGet, "/v1/groups/"+group.ID+"/membership", "carol", nil)
	req.Equal(http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodGet, "/v1/profile/stats", "alice", nil)
	req.Equal(statsDTO{Groups: 1, MessagesSent: 1}, decode[statsDTO](t, w))
}

func TestScenario_Ping_And_Bad_Frames(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	w := s.do(t, http.MethodPut, "/v1/profile", "alice", profileRequest{DisplayName: "Alice"})
	req.Equal(http.StatusOK, w.Code)
	alice := s.dial(t, "alice")

	alice.send(inboundFrame{Type: framePing})
	alice.await(ofType(framePong))

	alice.send(inboundFrame{Type: "join", GroupID: "g1"})
	req.Equal("invalid_payload", alice.await(ofType(frameError)).Code)

	alice.send(inboundFrame{Type: frameSend, GroupID: "g1", Content: "not subscribed"})
	req.Equal("invalid_state", alice.await(ofType(frameError)).Code)
}

func TestScenario_Websocket_Requires_A_Profile(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	token, err := s.issuer.GenerateToken("dave")
	req.NoError(err)

	url := "ws" + strings.TrimPrefix(s.url, "http") + "/v1/ws?access_token=" + token
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	req.Error(err)
	req.Equal(http.StatusPreconditionRequired, resp.StatusCode)
}
