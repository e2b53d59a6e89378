package models

import "time"

type EventType string

const (
	EventImageCreated EventType = "image.created"
	EventImageDeleted EventType = "image.deleted"
)

type ImageEvent struct {
	Type        EventType
	ImageID     string
	UserID      string
	BlobKey     string
	ContentType string
	OccurredAt  time.Time
}
