package api

import (
	"context"
	"group-chat/domain/chat"
	"group-chat/domain/event"
	"group-chat/session"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const maxFrameSize = 64 << 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// connection binds one websocket to one session.
// Only writeLoop writes to the socket, readLoop and the session queue frames for it.
type connection struct {
	log     *slog.Logger
	server  *Server
	ws      *websocket.Conn
	session *session.Session
	out     chan outboundFrame
	done    chan struct{}
	once    sync.Once
}

func (s *Server) serveWebsocket(c *gin.Context) {
	userID, ok := s.user(c)
	if !ok {
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("Websocket upgrade failed", "user", userID, "error", err)
		return
	}
	conn := &connection{
		log:     s.log,
		server:  s,
		ws:      ws,
		session: s.sessions.Open(userID),
		out:     make(chan outboundFrame, s.options.OutboundBuffer),
		done:    make(chan struct{}),
	}
	conn.log.Info("Websocket connected", "session", conn.session.ID, "user", userID)
	go conn.writeLoop(c.Request.Context())
	conn.readLoop(c.Request.Context())
	conn.shutdown()
}

func (c *connection) shutdown() {
	c.once.Do(func() {
		close(c.done)
		_ = c.server.sessions.Close(c.session.ID)
		_ = c.ws.Close()
		c.log.Info("Websocket disconnected", "session", c.session.ID, "user", c.session.UserID)
	})
}

func (c *connection) readLoop(ctx context.Context) {
	readTimeout := c.server.options.ReadTimeout
	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	c.ws.SetPongHandler(func(string) error {
		_ = c.server.sessions.Heartbeat(c.session.ID)
		return c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.log.Debug("Websocket read ended", "session", c.session.ID, "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		c.handle(ctx, data)
	}
}

func (c *connection) handle(ctx context.Context, data []byte) {
	cmd, err := parseFrame(data)
	if err != nil {
		c.enqueue(errorFrame("", "", err))
		return
	}
	sessions := c.server.sessions

	switch cmd := cmd.(type) {
	case subscribeCommand:
		messages, err := sessions.Subscribe(ctx, c.session.ID, cmd.GroupID)
		if err != nil {
			c.enqueue(errorFrame(cmd.GroupID, "", err))
			return
		}
		dtos, err := c.server.messageDTOs(ctx, messages)
		if err != nil {
			c.enqueue(errorFrame(cmd.GroupID, "", err))
			return
		}
		c.enqueue(outboundFrame{Type: frameSnapshot, GroupID: cmd.GroupID.String(), Messages: dtos})
	case unsubscribeCommand:
		if err := sessions.Unsubscribe(c.session.ID, cmd.GroupID); err != nil {
			c.enqueue(errorFrame(cmd.GroupID, "", err))
			return
		}
		c.enqueue(outboundFrame{Type: frameAck, GroupID: cmd.GroupID.String()})
	case sendCommand:
		message, err := sessions.Send(ctx, c.session.ID, cmd.GroupID, cmd.CorrelationID, cmd.Content)
		if err != nil {
			c.enqueue(errorFrame(cmd.GroupID, cmd.CorrelationID, err))
			return
		}
		dtos, err := c.server.messageDTOs(ctx, []chat.Message{message})
		if err != nil {
			c.enqueue(errorFrame(cmd.GroupID, message.CorrelationID, err))
			return
		}
		c.enqueue(outboundFrame{Type: frameAck, GroupID: cmd.GroupID.String(), CorrelationID: message.CorrelationID, Message: &dtos[0]})
	case pingCommand:
		_ = sessions.Heartbeat(c.session.ID)
		c.enqueue(outboundFrame{Type: framePong})
	}
}

func (c *connection) enqueue(frame outboundFrame) {
	select {
	case c.out <- frame:
	case <-c.done:
	}
}

// writeLoop drains replies and session events until the connection or the session ends.
// Whatever ends it shuts the connection down, which unblocks enqueue and ends readLoop.
func (c *connection) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(c.server.options.ReadTimeout * 9 / 10)
	defer ticker.Stop()
	defer c.shutdown()

	for {
		var err error
		select {
		case <-c.done:
			return
		case <-c.session.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
				time.Now().Add(c.server.options.WriteTimeout))
			return
		case frame := <-c.out:
			err = c.write(frame)
		case evt := <-c.session.Events():
			err = c.write(c.toFrame(ctx, evt))
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.server.options.WriteTimeout))
			err = c.ws.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			c.log.Warn("Websocket write failed, disconnecting", "session", c.session.ID, "error", err)
			return
		}
	}
}

func (c *connection) write(frame outboundFrame) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.server.options.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(frame)
}

func (c *connection) toFrame(ctx context.Context, evt event.DomainEvent) outboundFrame {
	switch evt := evt.(type) {
	case event.MessageCreated:
		dtos, err := c.server.messageDTOs(ctx, []chat.Message{evt.Message})
		if err != nil {
			dtos = []messageDTO{toMessageDTO(evt.Message, nil)}
		}
		return outboundFrame{Type: frameMessage, GroupID: evt.GroupID().String(), Message: &dtos[0]}
	case event.ConnectionStateChanged:
		return outboundFrame{Type: frameState, GroupID: evt.Group.String(), State: string(evt.State), Reason: evt.Reason}
	}
	return outboundFrame{Type: frameError, Code: "internal", Error: "unsupported event"}
}
