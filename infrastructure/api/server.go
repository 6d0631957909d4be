// Package api is the HTTP and websocket edge. Requests are authenticated here,
// decoded into commands and handed to the services and the session manager.
package api

import (
	"group-chat/auth"
	"group-chat/services"
	"group-chat/session"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

type Options struct {
	// WriteTimeout bounds every websocket write, a slower client is disconnected.
	WriteTimeout time.Duration
	// ReadTimeout is how long a connection may stay silent, pongs included.
	ReadTimeout time.Duration
	// OutboundBuffer is the number of frames queued for one connection.
	OutboundBuffer int
	DefaultLimit   int
}

type Server struct {
	log      *slog.Logger
	issuer   *auth.TokenIssuer
	identity auth.Provider
	chat     services.IChatService
	profiles services.IProfileService
	sessions *session.Manager
	options  Options
}

// NewServer builds the edge. The issuer validates tokens on the way in, the identity
// provider answers who the caller is once the request is authenticated.
func NewServer(log *slog.Logger, issuer *auth.TokenIssuer, identity auth.Provider, chat services.IChatService,
	profiles services.IProfileService, sessions *session.Manager, options Options) *Server {
	return &Server{
		log:      log,
		issuer:   issuer,
		identity: identity,
		chat:     chat,
		profiles: profiles,
		sessions: sessions,
		options:  options,
	}
}

// Router mounts every route under /v1.
// Profile routes only need a valid token, everything else also needs a profile.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	v1 := r.Group("/v1", s.authenticate())
	v1.PUT("/profile", s.upsertProfile)
	v1.GET("/profile", s.getProfile)
	v1.GET("/profile/stats", s.profileStats)

	chat := v1.Group("", s.requireProfile())
	chat.POST("/groups", s.createGroup)
	chat.GET("/groups", s.listGroups)
	chat.GET("/groups/:id/membership", s.checkMembership)
	chat.POST("/groups/:id/members", s.addMember)
	chat.POST("/groups/:id/messages", s.postMessage)
	chat.GET("/groups/:id/messages", s.getMessages)
	chat.GET("/ws", s.serveWebsocket)
	return r
}
