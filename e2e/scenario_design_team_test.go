package e2e

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type designTeamSuite struct {
	BaseSuite
}

func TestDesignTeamSuite(t *testing.T) {
	suite.Run(t, &designTeamSuite{})
}

type group struct {
	ID string `json:"id"`
}

type message struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderName string `json:"sender_name"`
}

func (s *designTeamSuite) TestMessageReachesMembersOnly() {
	suffix := uuid.NewString()[:8]
	alice, bob, carol := "alice-"+suffix, "bob-"+suffix, "carol-"+suffix
	var teamID string

	s.Run("Step 0: profiles and group", func() {
		for _, user := range []string{alice, bob, carol} {
			status := s.Call("Create profile of "+user, http.MethodPut, "/v1/profile", chatUser(user),
				map[string]string{"display_name": user}, nil)
			s.Require().Equal(http.StatusOK, status)
		}
		var team group
		status := s.Call("Alice creates Design Team", http.MethodPost, "/v1/groups", chatUser(alice),
			map[string]string{"name": "Design Team"}, &team)
		s.Require().Equal(http.StatusCreated, status)
		teamID = team.ID
		status = s.Call("Alice adds Bob", http.MethodPost, "/v1/groups/"+teamID+"/members", chatUser(alice),
			map[string]string{"user_id": bob}, nil)
		s.Require().Equal(http.StatusCreated, status)
	})

	s.Run("Step 1: live delivery", func() {
		bobConn := s.Dial("Bob connects", chatUser(bob))
		defer bobConn.Close()
		s.Require().NoError(bobConn.WriteJSON(Frame{Type: "subscribe", GroupID: teamID}))
		s.Await(bobConn, "snapshot")

		status := s.Call("Alice posts", http.MethodPost, "/v1/groups/"+teamID+"/messages", chatUser(alice),
			map[string]string{"content": "Hi team"}, nil)
		s.Require().Equal(http.StatusCreated, status)

		frame := s.Await(bobConn, "message")
		var received message
		s.Require().NoError(json.Unmarshal(frame.Message, &received))
		s.Equal("Hi team", received.Content)
		s.Equal(alice, received.SenderName)
	})

	s.Run("Step 2: outsider is refused", func() {
		status := s.Call("Carol reads", http.MethodGet, "/v1/groups/"+teamID+"/messages", chatUser(carol), nil, nil)
		s.Equal(http.StatusForbidden, status)

		carolConn := s.Dial("Carol connects", chatUser(carol))
		defer carolConn.Close()
		s.Require().NoError(carolConn.WriteJSON(Frame{Type: "subscribe", GroupID: teamID}))
		s.Equal("forbidden", s.Await(carolConn, "error").Code)

		var history []message
		status = s.Call("Bob reads", http.MethodGet, "/v1/groups/"+teamID+"/messages", chatUser(bob), nil, &history)
		s.Require().Equal(http.StatusOK, status)
		s.Len(history, 1)
	})
}
