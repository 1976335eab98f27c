// Package httpapi exposes the story service over HTTP and WebSocket.
//
// REST is used for the mutation paths (create, delete, mark-viewed); the
// subscription stream is a WebSocket that pushes full JSON snapshots in the
// wire shape defined by internal/models.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/syqdur/wedpxres-sub001/internal/logging"
	"github.com/syqdur/wedpxres-sub001/internal/server/broker"
	"github.com/syqdur/wedpxres-sub001/internal/server/config"
	"github.com/syqdur/wedpxres-sub001/internal/server/metrics"
	"github.com/syqdur/wedpxres-sub001/internal/server/stories"
)

type Handler struct {
	service *stories.Service
	broker  *broker.Broker
	secret  []byte
	logger  logging.Logger
}

func NewHandler(service *stories.Service, b *broker.Broker, cfg *config.Config, logger logging.Logger) *Handler {
	return &Handler{
		service: service,
		broker:  b,
		secret:  []byte(cfg.SecretKey),
		logger:  logger.With("module", "httpapi"),
	}
}

// SetupRouter configures the gin engine with all story endpoints.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.POST("/stories", h.CreateStory)
	api.DELETE("/stories/:id", h.DeleteStory)
	api.POST("/stories/:id/views", h.MarkViewed)

	r.GET("/ws/stories", h.WatchStories)

	return r
}
