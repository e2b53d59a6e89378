package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"imageshelf/internal/models"
	"imageshelf/internal/service"
)

type metadataRequest struct {
	UserID      string   `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	ContentType string   `json:"content_type"`
}

type createImageRequest struct {
	Image    string           `json:"image"`
	Metadata *metadataRequest `json:"metadata"`
}

type createImageResponse struct {
	ImageID string `json:"image_id"`
	Message string `json:"message"`
}

type listImagesResponse struct {
	Images []models.ImageRecord `json:"images"`
	Count  int                  `json:"count"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h HandlerSet) CreateImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.HTTP.MaxBodyBytes)

	var req createImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return
		}
		h.respondError(c, bindError(err))
		return
	}

	input := service.CreateInput{Image: req.Image}
	if req.Metadata != nil {
		input.Metadata = &service.MetadataInput{
			UserID:      req.Metadata.UserID,
			Title:       req.Metadata.Title,
			Description: req.Metadata.Description,
			Tags:        req.Metadata.Tags,
			ContentType: req.Metadata.ContentType,
		}
	}

	imageID, err := h.images.Create(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createImageResponse{
		ImageID: imageID,
		Message: "Image uploaded successfully",
	})
}

func (h HandlerSet) ListImages(c *gin.Context) {
	records, err := h.images.List(c.Request.Context(), service.ListFilter{
		UserID: c.Query("user_id"),
		Tag:    c.Query("tag"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listImagesResponse{
		Images: records,
		Count:  len(records),
	})
}

func (h HandlerSet) GetImage(c *gin.Context) {
	content, err := h.images.Retrieve(c.Request.Context(), c.Param("image_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", content.Filename))
	c.Data(http.StatusOK, content.ContentType, content.Data)
}

func (h HandlerSet) DeleteImage(c *gin.Context) {
	if err := h.images.Delete(c.Request.Context(), c.Param("image_id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Image deleted successfully"})
}

// bindError names the offending field when the body is well-formed JSON of the
// wrong shape.
func bindError(err error) *service.ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return &service.ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("must be %s, got %s", typeErr.Type, typeErr.Value),
		}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &service.ValidationError{
			Field:  "body",
			Reason: fmt.Sprintf("is not valid JSON at offset %d: %v", syntaxErr.Offset, syntaxErr),
		}
	}

	return &service.ValidationError{Field: "body", Reason: err.Error()}
}
