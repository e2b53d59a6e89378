package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"imageshelf/internal/models"
)

var ErrImageNotFound = errors.New("image not found")

// ImageRepository stores image records in a Postgres table keyed by image_id.
type ImageRepository struct {
	pool  *pgxpool.Pool
	table string
	index string
}

func NewImageRepository(pool *pgxpool.Pool, table, userIndex string) *ImageRepository {
	return &ImageRepository{
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
		index: pgx.Identifier{userIndex}.Sanitize(),
	}
}

func (r *ImageRepository) EnsureSchema(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			image_id     TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			title        TEXT NOT NULL DEFAULT '',
			description  TEXT NOT NULL DEFAULT '',
			tags         TEXT[] NOT NULL DEFAULT '{}',
			content_type TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL,
			blob_key     TEXT NOT NULL
		)
	`, r.table)
	if _, err := r.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	createIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (user_id)`, r.index, r.table)
	if _, err := r.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("create user index: %w", err)
	}
	return nil
}

func (r *ImageRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *ImageRepository) Put(ctx context.Context, record models.ImageRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			image_id, user_id, title, description, tags, content_type, created_at, blob_key
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (image_id)
		DO UPDATE SET
			user_id = EXCLUDED.user_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			tags = EXCLUDED.tags,
			content_type = EXCLUDED.content_type,
			created_at = EXCLUDED.created_at,
			blob_key = EXCLUDED.blob_key
	`, r.table)

	tags := record.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		record.ImageID,
		record.UserID,
		record.Title,
		record.Description,
		tags,
		record.ContentType,
		record.CreatedAt,
		record.BlobKey,
	)
	return err
}

func (r *ImageRepository) Get(ctx context.Context, imageID string) (models.ImageRecord, error) {
	query := fmt.Sprintf(`
		SELECT image_id, user_id, title, description, tags, content_type, created_at, blob_key
		FROM %s WHERE image_id = $1
	`, r.table)

	record, err := scanRecord(r.pool.QueryRow(ctx, query, imageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ImageRecord{}, ErrImageNotFound
		}
		return models.ImageRecord{}, err
	}
	return record, nil
}

func (r *ImageRepository) Delete(ctx context.Context, imageID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE image_id = $1`, r.table)
	_, err := r.pool.Exec(ctx, query, imageID)
	return err
}

func (r *ImageRepository) Query(ctx context.Context, userID string) ([]models.ImageRecord, error) {
	query := fmt.Sprintf(`
		SELECT image_id, user_id, title, description, tags, content_type, created_at, blob_key
		FROM %s
	`, r.table)
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.ImageRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (models.ImageRecord, error) {
	var record models.ImageRecord
	if err := row.Scan(
		&record.ImageID,
		&record.UserID,
		&record.Title,
		&record.Description,
		&record.Tags,
		&record.ContentType,
		&record.CreatedAt,
		&record.BlobKey,
	); err != nil {
		return models.ImageRecord{}, err
	}
	record.CreatedAt = record.CreatedAt.UTC()
	if record.Tags == nil {
		record.Tags = []string{}
	}
	return record, nil
}
