package api

import (
	"context"
	"fmt"
	"group-chat/domain/chat"
	"group-chat/errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

func (s *Server) createGroup(c *gin.Context) {
	userID, ok := s.user(c)
	if !ok {
		return
	}
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	group, err := s.chat.CreateGroup(c.Request.Context(), chat.CreateGroupCommand{OwnerID: userID, Name: req.Name})
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toGroupDTO(group))
}

func (s *Server) listGroups(c *gin.Context) {
	userID, ok := s.user(c)
	if !ok {
		return
	}
	groups, err := s.chat.ListGroups(c.Request.Context(), userID)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(groups, func(g chat.Group, _ int) groupDTO { return toGroupDTO(g) }))
}

func (s *Server) checkMembership(c *gin.Context) {
	userID, ok := s.user(c)
	if !ok {
		return
	}
	membership, err := s.chat.CheckMembership(c.Request.Context(), chat.GroupID(c.Param("id")), userID)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toMembershipDTO(membership))
}

func (s *Server) addMember(c *gin.Context) {
	userID, ok := s.user(c)
	if !ok {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	role := chat.Role(req.Role)
	if role == "" {
		role = chat.RoleMember
	}
	membership, err := s.chat.AddMember(c.Request.Context(), chat.AddMemberCommand{
		GroupID: chat.GroupID(c.Param("id")),
		ActorID: userID,
		UserID:  chat.UserID(req.UserID),
		Role:    role,
	})
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMembershipDTO(membership))
}

func (s *Server) postMessage(c *gin.Context) {
	userID, ok := s.user(c)
	if !ok {
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	message, err := s.chat.PostMessage(c.Request.Context(), chat.PostMessageCommand{
		GroupID:       chat.GroupID(c.Param("id")),
		UserID:        userID,
		Content:       req.Content,
		CorrelationID: req.CorrelationID,
	})
	if err != nil {
		s.abort(c, err)
		return
	}
	dtos, err := s.messageDTOs(c.Request.Context(), []chat.Message{message})
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, dtos[0])
}

func (s *Server) getMessages(c *gin.Context) {
	userID, ok := s.user(c)
	if !ok {
		return
	}
	limit := s.options.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.abort(c, fmt.Errorf("%w: limit must be a positive integer", errors.ErrInvalidPayload))
			return
		}
		limit = parsed
	}
	messages, err := s.chat.GetMessages(c.Request.Context(), chat.GetMessageCommand{
		GroupID: chat.GroupID(c.Param("id")),
		UserID:  userID,
		Limit:   limit,
	})
	if err != nil {
		s.abort(c, err)
		return
	}
	dtos, err := s.messageDTOs(c.Request.Context(), messages)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos)
}

func (s *Server) upsertProfile(c *gin.Context) {
	userID, ok := s.user(c)
	if !ok {
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	profile, err := s.profiles.UpsertProfile(c.Request.Context(), userID, req.DisplayName, req.Bio)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileDTO(profile))
}

func (s *Server) getProfile(c *gin.Context) {
	userID, ok := s.user(c)
	if !ok {
		return
	}
	profile, err := s.profiles.GetProfile(c.Request.Context(), userID)
	if errors.Is(err, errors.ErrNotFound) {
		err = errors.ErrProfileRequired
	}
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileDTO(profile))
}

func (s *Server) profileStats(c *gin.Context) {
	userID, ok := s.user(c)
	if !ok {
		return
	}
	stats, err := s.profiles.Stats(c.Request.Context(), userID)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, statsDTO{Groups: stats.Groups, MessagesSent: stats.MessagesSent})
}

func (s *Server) messageDTOs(ctx context.Context, messages []chat.Message) ([]messageDTO, error) {
	names, err := s.profiles.DisplayNames(ctx, senders(messages))
	if err != nil {
		return nil, err
	}
	return lo.Map(messages, func(m chat.Message, _ int) messageDTO { return toMessageDTO(m, names) }), nil
}
