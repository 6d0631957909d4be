package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"group-chat/auth"
	"group-chat/domain/chat"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// BaseSuite talks to a running server over HTTP and websocket.
type BaseSuite struct {
	suite.Suite
	Config Config
	issuer *auth.TokenIssuer
	client *http.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" {
		s.T().Skip("E2E_SERVER_URL not set")
	}
	s.issuer = auth.NewTokenIssuer(s.Config.JWTSecret, time.Hour)
	s.client = &http.Client{Timeout: 10 * time.Second}
}

func (s *BaseSuite) header(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

func (s *BaseSuite) token(userID chat.UserID) string {
	token, err := s.issuer.GenerateToken(userID)
	s.Require().NoError(err)
	return token
}

// Call sends a JSON request as userID, decodes the response into out when given
// and returns the status code.
func (s *BaseSuite) Call(name, method, path string, userID chat.UserID, body, out any) int {
	s.header(name)
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		payload = bytes.NewReader(raw)
	}
	r, err := http.NewRequest(method, strings.TrimRight(s.Config.ServerURL, "/")+path, payload)
	s.Require().NoError(err)
	r.Header.Set("Authorization", "Bearer "+s.token(userID))
	r.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(r)
	s.Require().NoError(err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	s.T().Logf("HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		s.T().Logf("RESPONSE:\n%s", raw)
	}
	if out != nil && resp.StatusCode < 300 {
		s.Require().NoError(json.Unmarshal(raw, out))
	}
	return resp.StatusCode
}

// Dial opens the live channel of userID.
func (s *BaseSuite) Dial(name string, userID chat.UserID) *websocket.Conn {
	s.header(name)
	url := "ws" + strings.TrimPrefix(strings.TrimRight(s.Config.ServerURL, "/"), "http") + "/v1/ws"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token(userID))
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	s.Require().NoError(err, "Failed to open websocket at "+url)
	return conn
}

// Frame is the union of every frame exchanged on the live channel.
type Frame struct {
	Type          string          `json:"type"`
	GroupID       string          `json:"group_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Content       string          `json:"content,omitempty"`
	Message       json.RawMessage `json:"message,omitempty"`
	State         string          `json:"state,omitempty"`
	Code          string          `json:"code,omitempty"`
}

// Await reads frames until one of the given type arrives.
func (s *BaseSuite) Await(conn *websocket.Conn, frameType string) Frame {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	for {
		var frame Frame
		s.Require().NoError(conn.ReadJSON(&frame), "waiting for %s", frameType)
		if s.Config.DebugJSON {
			s.T().Logf("FRAME: %+v", frame)
		}
		if frame.Type == frameType {
			return frame
		}
	}
}

func chatUser(id string) chat.UserID {
	return chat.UserID(id)
}
