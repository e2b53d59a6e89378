package tasks

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"imageshelf/internal/models"
	"imageshelf/internal/service"
)

const TypeReconcile = "reconcile"

// Sweeper runs one reconciliation pass over the blob store.
type Sweeper interface {
	Sweep(ctx context.Context) (service.ReconcileReport, error)
}

type Processor struct {
	logger  zerolog.Logger
	sweeper Sweeper
}

// TaskPayload is the flat field set carried by every stream entry. Lifecycle
// events fill the image fields; maintenance tasks only set Type.
type TaskPayload struct {
	Type        string `mapstructure:"type"`
	ImageID     string `mapstructure:"image_id"`
	UserID      string `mapstructure:"user_id"`
	BlobKey     string `mapstructure:"blob_key"`
	ContentType string `mapstructure:"content_type"`
	OccurredAt  string `mapstructure:"occurred_at"`
}

func NewProcessor(logger zerolog.Logger, sweeper Sweeper) *Processor {
	return &Processor{
		logger:  logger,
		sweeper: sweeper,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload %s: %w", msg.ID, err)
	}

	switch payload.Type {
	case TypeReconcile:
		return p.handleReconcile(ctx)
	case string(models.EventImageCreated), string(models.EventImageDeleted):
		p.handleLifecycle(msg.ID, payload)
		return nil
	default:
		p.logger.Warn().Str("type", payload.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(values)
}

func (p *Processor) handleReconcile(ctx context.Context) error {
	if p.sweeper == nil {
		p.logger.Warn().Msg("reconcile task received but no sweeper configured")
		return nil
	}

	report, err := p.sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if len(report.Orphans) > 0 {
		p.logger.Warn().Strs("orphans", report.Orphans).Int("removed", report.Removed).Msg("orphaned blobs found")
	}
	return nil
}

func (p *Processor) handleLifecycle(id string, payload TaskPayload) {
	p.logger.Info().
		Str("message_id", id).
		Str("event", payload.Type).
		Str("image_id", payload.ImageID).
		Str("user_id", payload.UserID).
		Str("blob_key", payload.BlobKey).
		Str("occurred_at", payload.OccurredAt).
		Msg("image lifecycle event")
}
