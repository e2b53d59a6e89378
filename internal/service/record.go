package service

import (
	"strings"
	"time"

	"imageshelf/internal/models"
)

const BlobKeyPrefix = "images/"

// MetadataInput is the client-supplied part of an image record. Only UserID is
// required; Title and Description default to "", Tags to an empty list and
// ContentType to image/jpeg.
type MetadataInput struct {
	UserID      string
	Title       string
	Description string
	Tags        []string
	ContentType string
}

func BlobKeyFor(imageID string) string {
	return BlobKeyPrefix + imageID
}

func ImageIDFromBlobKey(key string) (string, bool) {
	if !strings.HasPrefix(key, BlobKeyPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, BlobKeyPrefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func BuildRecord(imageID string, in MetadataInput, now time.Time) (models.ImageRecord, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return models.ImageRecord{}, &ValidationError{Field: "metadata.user_id", Reason: "is required"}
	}

	tags := make([]string, len(in.Tags))
	copy(tags, in.Tags)

	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" {
		contentType = models.DefaultContentType
	}

	return models.ImageRecord{
		ImageID:     imageID,
		UserID:      in.UserID,
		Title:       in.Title,
		Description: in.Description,
		Tags:        tags,
		ContentType: contentType,
		CreatedAt:   now.UTC(),
		BlobKey:     BlobKeyFor(imageID),
	}, nil
}
