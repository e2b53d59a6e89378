package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"imageshelf/internal/config"
	"imageshelf/internal/service"
)

// Pinger is a dependency the health endpoint can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies reports the backing services by name. A nil entry is shown as
// disabled.
type Dependencies struct {
	Metadata Pinger
	Blobs    Pinger
	Events   Pinger
}

type HandlerSet struct {
	log    zerolog.Logger
	cfg    *config.AppConfig
	images *service.ImageService
	deps   Dependencies
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, images *service.ImageService, deps Dependencies) HandlerSet {
	return HandlerSet{
		log:    log,
		cfg:    cfg,
		images: images,
		deps:   deps,
	}
}

func (h HandlerSet) Register(router gin.IRouter) {
	router.GET("/health", h.Health)

	images := router.Group("/images")
	images.POST("", h.CreateImage)
	images.GET("", h.ListImages)
	images.GET("/:image_id", h.GetImage)
	images.DELETE("/:image_id", h.DeleteImage)
}
