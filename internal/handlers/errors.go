package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"imageshelf/internal/service"
)

func (h HandlerSet) respondError(c *gin.Context, err error) {
	var validation *service.ValidationError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.Is(err, service.ErrContentMissing):
		c.JSON(http.StatusNotFound, gin.H{"error": "Image content not found"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
