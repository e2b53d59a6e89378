package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string            `json:"status"`
	Message     string            `json:"message"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{
		"metadata": h.probe(ctx, "metadata", h.deps.Metadata),
		"blobs":    h.probe(ctx, "blobs", h.deps.Blobs),
		"events":   h.probe(ctx, "events", h.deps.Events),
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:      "healthy",
		Message:     "Instagram Image Service API is running",
		Environment: h.cfg.Environment,
		Checks:      checks,
	})
}

func (h HandlerSet) probe(ctx context.Context, name string, dep Pinger) string {
	if dep == nil {
		return "disabled"
	}
	if err := dep.Ping(ctx); err != nil {
		h.log.Error().Err(err).Str("dependency", name).Msg("health ping failed")
		return "error"
	}
	return "ok"
}
