package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"imageshelf/internal/models"
)

// SQLiteRepository stores image records in a single SQLite table. Tags are a
// JSON array and created_at is RFC 3339 text.
type SQLiteRepository struct {
	db    *sql.DB
	table string
	index string
}

func NewSQLiteRepository(db *sql.DB, table, userIndex string) *SQLiteRepository {
	return &SQLiteRepository{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
		index: pgx.Identifier{userIndex}.Sanitize(),
	}
}

func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			image_id     TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			title        TEXT NOT NULL DEFAULT '',
			description  TEXT NOT NULL DEFAULT '',
			tags         TEXT NOT NULL DEFAULT '[]',
			content_type TEXT NOT NULL,
			created_at   TEXT NOT NULL,
			blob_key     TEXT NOT NULL
		)
	`, r.table)
	if _, err := r.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	createIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (user_id)`, r.index, r.table)
	if _, err := r.db.ExecContext(ctx, createIndex); err != nil {
		return fmt.Errorf("create user index: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Put(ctx context.Context, record models.ImageRecord) error {
	tags := record.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			image_id, user_id, title, description, tags, content_type, created_at, blob_key
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (image_id) DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			description = excluded.description,
			tags = excluded.tags,
			content_type = excluded.content_type,
			created_at = excluded.created_at,
			blob_key = excluded.blob_key
	`, r.table)

	_, err = r.db.ExecContext(ctx, query,
		record.ImageID,
		record.UserID,
		record.Title,
		record.Description,
		string(encoded),
		record.ContentType,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
		record.BlobKey,
	)
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, imageID string) (models.ImageRecord, error) {
	query := fmt.Sprintf(`
		SELECT image_id, user_id, title, description, tags, content_type, created_at, blob_key
		FROM %s WHERE image_id = ?
	`, r.table)

	record, err := scanSQLiteRecord(r.db.QueryRowContext(ctx, query, imageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ImageRecord{}, ErrImageNotFound
		}
		return models.ImageRecord{}, err
	}
	return record, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, imageID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE image_id = ?`, r.table)
	_, err := r.db.ExecContext(ctx, query, imageID)
	return err
}

func (r *SQLiteRepository) Query(ctx context.Context, userID string) ([]models.ImageRecord, error) {
	query := fmt.Sprintf(`
		SELECT image_id, user_id, title, description, tags, content_type, created_at, blob_key
		FROM %s
	`, r.table)
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.ImageRecord{}
	for rows.Next() {
		record, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (models.ImageRecord, error) {
	var (
		record    models.ImageRecord
		tags      string
		createdAt string
	)
	if err := row.Scan(
		&record.ImageID,
		&record.UserID,
		&record.Title,
		&record.Description,
		&tags,
		&record.ContentType,
		&createdAt,
		&record.BlobKey,
	); err != nil {
		return models.ImageRecord{}, err
	}

	if err := json.Unmarshal([]byte(tags), &record.Tags); err != nil {
		return models.ImageRecord{}, fmt.Errorf("decode tags of %s: %w", record.ImageID, err)
	}
	if record.Tags == nil {
		record.Tags = []string{}
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return models.ImageRecord{}, fmt.Errorf("parse created_at of %s: %w", record.ImageID, err)
	}
	record.CreatedAt = ts.UTC()
	return record, nil
}
