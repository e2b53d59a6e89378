package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"imageshelf/internal/models"
	"imageshelf/internal/repository"
)

type BlobLister interface {
	List(ctx context.Context, prefix string) ([]models.BlobObject, error)
	Delete(ctx context.Context, key string) error
}

type RecordReader interface {
	Get(ctx context.Context, imageID string) (models.ImageRecord, error)
}

type ReconcileReport struct {
	Scanned int
	Skipped int
	Orphans []string
	Removed int
}

// Reconciler finds blobs whose metadata record was never written, the state
// left behind when Create fails between its two writes.
type Reconciler struct {
	blobs         BlobLister
	records       RecordReader
	gracePeriod   time.Duration
	deleteOrphans bool
	log           zerolog.Logger
	now           func() time.Time
}

func NewReconciler(blobs BlobLister, records RecordReader, gracePeriod time.Duration, deleteOrphans bool, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		blobs:         blobs,
		records:       records,
		gracePeriod:   gracePeriod,
		deleteOrphans: deleteOrphans,
		log:           log,
		now:           time.Now,
	}
}

// Sweep scans every image blob once. Blobs younger than the grace period are
// skipped since their Create may still be about to write the record.
func (r *Reconciler) Sweep(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{Orphans: []string{}}

	objects, err := r.blobs.List(ctx, BlobKeyPrefix)
	if err != nil {
		return report, &StoreError{Op: "list blobs", Err: err}
	}

	cutoff := r.now().Add(-r.gracePeriod)
	for _, obj := range objects {
		report.Scanned++

		imageID, ok := ImageIDFromBlobKey(obj.Key)
		if !ok || obj.LastModified.After(cutoff) {
			report.Skipped++
			continue
		}

		_, err := r.records.Get(ctx, imageID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrImageNotFound) {
			return report, &StoreError{Op: "get record", ImageID: imageID, Err: err}
		}

		report.Orphans = append(report.Orphans, obj.Key)
		r.log.Warn().
			Str("blob_key", obj.Key).
			Time("last_modified", obj.LastModified).
			Msg("orphaned blob")

		if !r.deleteOrphans {
			continue
		}
		if err := r.blobs.Delete(ctx, obj.Key); err != nil {
			r.log.Error().Err(err).Str("blob_key", obj.Key).Msg("remove orphaned blob failed")
			continue
		}
		report.Removed++
	}

	r.log.Info().
		Int("scanned", report.Scanned).
		Int("skipped", report.Skipped).
		Int("orphans", len(report.Orphans)).
		Int("removed", report.Removed).
		Msg("reconcile sweep finished")
	return report, nil
}
