package models

import "time"

const DefaultContentType = "image/jpeg"

// ImageRecord is the metadata row describing one stored image. BlobKey addresses
// the binary content in the blob store and is never serialized to clients.
type ImageRecord struct {
	ImageID     string    `json:"image_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	BlobKey     string    `json:"-"`
}

// HasTag reports whether tag is one of the record's tags.
func (r ImageRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type Blob struct {
	Data        []byte
	ContentType string
}

type BlobObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}
