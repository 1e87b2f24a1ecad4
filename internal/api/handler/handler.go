package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whereabouts/backend/internal/help"
	"whereabouts/backend/internal/hub"
	"whereabouts/backend/internal/presence"
	"whereabouts/backend/internal/storage"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	Presence *presence.Service
	Help     *help.Service
	Hub      *hub.Hub
	Store    storage.Storage
	Logger   *zap.Logger

	JWTSecret []byte
	TokenTTL  time.Duration
	KeepAlive time.Duration
}

func NewHandler(ps *presence.Service, hs *help.Service, h *hub.Hub, store storage.Storage, logger *zap.Logger, jwtSecret string, tokenTTL, keepAlive time.Duration) *Handler {
	return &Handler{
		Presence:  ps,
		Help:      hs,
		Hub:       h,
		Store:     store,
		Logger:    logger,
		JWTSecret: []byte(jwtSecret),
		TokenTTL:  tokenTTL,
		KeepAlive: keepAlive,
	}
}

// Register wires all routes onto the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)

	r.POST("/login", h.Login)

	r.GET("/users", h.ListUsers)
	r.POST("/users", h.CreateUser)

	r.GET("/locations", h.ListLocations)
	r.POST("/locations", h.CreateLocation)
	r.POST("/locations/temporary", h.CreateTemporaryLocation)

	r.GET("/checkins", h.ListCheckIns)
	r.POST("/checkins", h.CreateCheckIn)
	r.DELETE("/checkins", h.DeleteCheckIn)

	r.GET("/help-requests", h.ListHelpRequests)
	r.POST("/help-requests", h.CreateHelpRequest)
	r.PUT("/help-requests/:id", h.UpdateHelpRequest)
	r.DELETE("/help-requests/:id", h.DeleteHelpRequest)

	r.GET("/events", h.ServeSSE)
	r.GET("/ws", h.ServeWebSocket)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
