package repository

import (
	"context"
	"sync"

	"imageshelf/internal/models"
)

// MemoryRepository is an in-process record store with a user_id index.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]models.ImageRecord
	byUser  map[string]map[string]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]models.ImageRecord),
		byUser:  make(map[string]map[string]struct{}),
	}
}

func (r *MemoryRepository) EnsureSchema(ctx context.Context) error { return nil }

func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (r *MemoryRepository) Put(ctx context.Context, record models.ImageRecord) error {
	record = cloneRecord(record)

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.records[record.ImageID]; ok && prev.UserID != record.UserID {
		r.unindex(prev)
	}
	r.records[record.ImageID] = record

	ids, ok := r.byUser[record.UserID]
	if !ok {
		ids = make(map[string]struct{})
		r.byUser[record.UserID] = ids
	}
	ids[record.ImageID] = struct{}{}
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, imageID string) (models.ImageRecord, error) {
	r.mu.RLock()
	record, ok := r.records[imageID]
	r.mu.RUnlock()
	if !ok {
		return models.ImageRecord{}, ErrImageNotFound
	}
	return cloneRecord(record), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, imageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record, ok := r.records[imageID]; ok {
		r.unindex(record)
		delete(r.records, imageID)
	}
	return nil
}

func (r *MemoryRepository) Query(ctx context.Context, userID string) ([]models.ImageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := []models.ImageRecord{}
	if userID == "" {
		for _, record := range r.records {
			records = append(records, cloneRecord(record))
		}
		return records, nil
	}

	for id := range r.byUser[userID] {
		records = append(records, cloneRecord(r.records[id]))
	}
	return records, nil
}

func (r *MemoryRepository) unindex(record models.ImageRecord) {
	ids := r.byUser[record.UserID]
	delete(ids, record.ImageID)
	if len(ids) == 0 {
		delete(r.byUser, record.UserID)
	}
}

func cloneRecord(record models.ImageRecord) models.ImageRecord {
	tags := make([]string, len(record.Tags))
	copy(tags, record.Tags)
	record.Tags = tags
	return record
}
