package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"group-chat/contract"
	"group-chat/errors"
	"group-chat/mocks"
	"group-chat/observability"
	"group-chat/runtime"
	"group-chat/session"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// acceptedSocket returns the server side of a websocket opened against a test listener.
func acceptedSocket(t *testing.T) *websocket.Conn {
	t.Helper()
	accepted := make(chan *websocket.Conn, 1)
	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err == nil {
			accepted <- ws
		}
	}))
	t.Cleanup(httpServer.Close)
	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(httpServer.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	select {
	case ws := <-accepted:
		return ws
	case <-time.After(time.Second):
		t.Fatal("websocket never accepted")
		return nil
	}
}

func TestConnection_Write_Failure_Shuts_The_Connection_Down(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	manager := session.NewManager(log, mocks.NewMockIMembershipAuthority(ctrl), mocks.NewMockIMessageStore(ctrl),
		runtime.NewRegistry(), observability.NewMonitor(), contract.SystemClock{}, session.Options{BufferSize: 1, CloseTimeout: time.Second})
	server := NewServer(log, nil, nil, nil, nil, manager,
		Options{WriteTimeout: time.Second, ReadTimeout: time.Minute, OutboundBuffer: 1})

	// Given a connection whose socket can no longer be written to and a full outbound queue
	ws := acceptedSocket(t)
	conn := &connection{
		log:     log,
		server:  server,
		ws:      ws,
		session: manager.Open("alice"),
		out:     make(chan outboundFrame, 1),
		done:    make(chan struct{}),
	}
	req.NoError(ws.UnderlyingConn().Close())
	conn.out <- outboundFrame{Type: framePong}

	// When the writer fails
	go conn.writeLoop(t.Context())

	// Then a reader still queuing replies is released and the session is closed
	enqueued := make(chan struct{})
	go func() {
		conn.enqueue(outboundFrame{Type: framePong})
		conn.enqueue(outboundFrame{Type: framePong})
		close(enqueued)
	}()
	select {
	case <-enqueued:
	case <-time.After(2 * time.Second):
		req.FailNow("enqueue stayed blocked after the writer stopped")
	}
	<-conn.done
	_, err := manager.Get(conn.session.ID)
	req.ErrorIs(err, errors.ErrSessionClosed)
}
