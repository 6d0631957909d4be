package api

import (
	"group-chat/auth"
	"group-chat/domain/chat"
	"group-chat/errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// authenticate accepts a bearer token, or an access_token query parameter
// for browsers which cannot set headers on a websocket handshake.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			s.abort(c, errors.ErrUnauthenticated)
			return
		}
		userID, err := s.issuer.ValidateToken(token)
		if err != nil {
			s.abort(c, err)
			return
		}
		c.Request = c.Request.WithContext(auth.WithUser(c.Request.Context(), userID))
		c.Next()
	}
}

func (s *Server) requireProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.user(c)
		if !ok {
			return
		}
		_, err := s.profiles.GetProfile(c.Request.Context(), userID)
		if errors.Is(err, errors.ErrNotFound) {
			s.abort(c, errors.ErrProfileRequired)
			return
		}
		if err != nil {
			s.abort(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// user resolves the caller through the identity provider, the request is aborted when there is none.
func (s *Server) user(c *gin.Context) (chat.UserID, bool) {
	userID, err := s.identity.CurrentUser(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return "", false
	}
	return userID, true
}

func (s *Server) abort(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= 500 {
		s.log.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: errors.Code(err), Error: err.Error()})
}
