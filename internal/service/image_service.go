package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"imageshelf/internal/ids"
	"imageshelf/internal/media/sniffer"
	"imageshelf/internal/models"
	"imageshelf/internal/repository"
	"imageshelf/internal/storage"
)

type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (models.Blob, error)
	Delete(ctx context.Context, key string) error
}

type MetadataStore interface {
	Put(ctx context.Context, record models.ImageRecord) error
	Get(ctx context.Context, imageID string) (models.ImageRecord, error)
	Delete(ctx context.Context, imageID string) error
	Query(ctx context.Context, userID string) ([]models.ImageRecord, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.ImageEvent) error
}

type CreateInput struct {
	Image    string
	Metadata *MetadataInput
}

type ListFilter struct {
	UserID string
	Tag    string
}

type ImageContent struct {
	ImageID     string
	Data        []byte
	ContentType string
	Filename    string
}

// ImageService keeps an image's blob and its metadata record in step. There is
// no transaction across the two stores: writes go blob first, deletes remove
// the blob before the record.
type ImageService struct {
	blobs   BlobStore
	records MetadataStore
	events  EventPublisher
	log     zerolog.Logger
	now     func() time.Time
	newID   func() string
}

func NewImageService(blobs BlobStore, records MetadataStore, events EventPublisher, log zerolog.Logger) *ImageService {
	return &ImageService{
		blobs:   blobs,
		records: records,
		events:  events,
		log:     log,
		now:     time.Now,
		newID:   ids.New,
	}
}

func (s *ImageService) Create(ctx context.Context, input CreateInput) (string, error) {
	if input.Metadata == nil {
		return "", &ValidationError{Field: "metadata", Reason: "is required"}
	}

	data, err := DecodeImage(input.Image)
	if err != nil {
		s.log.Warn().Err(err).Str("op", "create").Msg("image payload rejected")
		return "", err
	}

	imageID := s.newID()
	record, err := BuildRecord(imageID, *input.Metadata, s.now())
	if err != nil {
		s.log.Warn().Err(err).Str("op", "create").Str("image_id", imageID).Msg("image metadata rejected")
		return "", err
	}

	s.log.Info().
		Str("image_id", imageID).
		Str("user_id", record.UserID).
		Int("bytes", len(data)).
		Msg("uploading image")
	s.checkDeclaredType(record, data)

	if err := s.blobs.Put(ctx, record.BlobKey, data, record.ContentType); err != nil {
		s.log.Error().Err(err).Str("op", "create").Str("image_id", imageID).Msg("blob write failed")
		return "", &StoreError{Op: "put blob", ImageID: imageID, Err: err}
	}

	if err := s.records.Put(ctx, record); err != nil {
		s.log.Error().
			Err(err).
			Str("op", "create").
			Str("image_id", imageID).
			Str("blob_key", record.BlobKey).
			Msg("record write failed, blob left without record")
		return "", &StoreError{Op: "put record", ImageID: imageID, Err: err}
	}

	s.publish(ctx, models.EventImageCreated, record)

	s.log.Info().Str("image_id", imageID).Msg("image uploaded")
	return imageID, nil
}

// List returns records matching every supplied filter with BlobKey cleared.
func (s *ImageService) List(ctx context.Context, filter ListFilter) ([]models.ImageRecord, error) {
	s.log.Debug().Str("user_id", filter.UserID).Str("tag", filter.Tag).Msg("listing images")

	records, err := s.records.Query(ctx, filter.UserID)
	if err != nil {
		s.log.Error().Err(err).Str("op", "list").Str("user_id", filter.UserID).Msg("record query failed")
		return nil, &StoreError{Op: "query records", Err: err}
	}

	out := make([]models.ImageRecord, 0, len(records))
	for _, record := range records {
		if filter.Tag != "" && !record.HasTag(filter.Tag) {
			continue
		}
		record.BlobKey = ""
		out = append(out, record)
	}

	s.log.Debug().Int("count", len(out)).Msg("images listed")
	return out, nil
}

func (s *ImageService) Retrieve(ctx context.Context, imageID string) (ImageContent, error) {
	record, err := s.lookup(ctx, "retrieve", imageID)
	if err != nil {
		return ImageContent{}, err
	}

	blob, err := s.blobs.Get(ctx, record.BlobKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.log.Warn().
				Str("op", "retrieve").
				Str("image_id", imageID).
				Str("blob_key", record.BlobKey).
				Msg("record has no blob")
			return ImageContent{}, fmt.Errorf("%w: %w", ErrContentMissing, ErrNotFound)
		}
		s.log.Error().Err(err).Str("op", "retrieve").Str("image_id", imageID).Msg("blob read failed")
		return ImageContent{}, &StoreError{Op: "get blob", ImageID: imageID, Err: err}
	}

	return ImageContent{
		ImageID:     imageID,
		Data:        blob.Data,
		ContentType: record.ContentType,
		Filename:    imageID,
	}, nil
}

func (s *ImageService) Delete(ctx context.Context, imageID string) error {
	record, err := s.lookup(ctx, "delete", imageID)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, record.BlobKey); err != nil {
		s.log.Error().Err(err).Str("op", "delete").Str("image_id", imageID).Msg("blob delete failed")
		return &StoreError{Op: "delete blob", ImageID: imageID, Err: err}
	}

	if err := s.records.Delete(ctx, imageID); err != nil {
		s.log.Error().
			Err(err).
			Str("op", "delete").
			Str("image_id", imageID).
			Msg("record delete failed, record now points at a removed blob")
		return &StoreError{Op: "delete record", ImageID: imageID, Err: err}
	}

	s.publish(ctx, models.EventImageDeleted, record)

	s.log.Info().Str("image_id", imageID).Msg("image deleted")
	return nil
}

func (s *ImageService) lookup(ctx context.Context, op, imageID string) (models.ImageRecord, error) {
	record, err := s.records.Get(ctx, imageID)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			s.log.Warn().Str("op", op).Str("image_id", imageID).Msg("image not found")
			return models.ImageRecord{}, ErrNotFound
		}
		s.log.Error().Err(err).Str("op", op).Str("image_id", imageID).Msg("record read failed")
		return models.ImageRecord{}, &StoreError{Op: "get record", ImageID: imageID, Err: err}
	}
	return record, nil
}

func (s *ImageService) publish(ctx context.Context, eventType models.EventType, record models.ImageRecord) {
	if s.events == nil {
		return
	}

	err := s.events.Publish(ctx, models.ImageEvent{
		Type:        eventType,
		ImageID:     record.ImageID,
		UserID:      record.UserID,
		BlobKey:     record.BlobKey,
		ContentType: record.ContentType,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("event", string(eventType)).Str("image_id", record.ImageID).Msg("publish event failed")
	}
}

// checkDeclaredType logs when the declared content type disagrees with the
// payload's magic bytes. The declared type is still the one stored.
func (s *ImageService) checkDeclaredType(record models.ImageRecord, data []byte) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	detected, err := sniffer.DetectHead(head)
	if err != nil {
		s.log.Debug().Str("image_id", record.ImageID).Msg("payload type not recognised")
		return
	}
	if detected.MIME != record.ContentType {
		s.log.Debug().
			Str("image_id", record.ImageID).
			Str("declared", record.ContentType).
			Str("detected", detected.MIME).
			Msg("declared content type differs from payload")
	}
}
