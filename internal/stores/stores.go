package stores

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"imageshelf/internal/config"
	"imageshelf/internal/database"
	"imageshelf/internal/models"
	"imageshelf/internal/repository"
	"imageshelf/internal/storage"
)

type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (models.Blob, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]models.BlobObject, error)
	EnsureBucket(ctx context.Context) error
	Ping(ctx context.Context) error
}

type RecordStore interface {
	Put(ctx context.Context, record models.ImageRecord) error
	Get(ctx context.Context, imageID string) (models.ImageRecord, error)
	Delete(ctx context.Context, imageID string) error
	Query(ctx context.Context, userID string) ([]models.ImageRecord, error)
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Stores holds the configured blob and record backends and whatever
// connections they own.
type Stores struct {
	Blobs   BlobStore
	Records RecordStore
	closers []func()
}

func Open(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (*Stores, error) {
	s := &Stores{}

	blobs, err := openBlobs(cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.Blobs = blobs

	records, err := s.openRecords(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Records = records

	log.Info().
		Str("storage_driver", cfg.Storage.Driver).
		Str("bucket", cfg.Storage.Bucket).
		Str("metadata_driver", cfg.Metadata.Driver).
		Str("table", cfg.Metadata.Table).
		Msg("stores opened")
	return s, nil
}

// Provision creates the bucket and the metadata table with its user index.
// Failures are logged, not returned, so a partially provisioned environment
// still starts.
func (s *Stores) Provision(ctx context.Context, log zerolog.Logger) {
	if err := s.Blobs.EnsureBucket(ctx); err != nil {
		log.Warn().Err(err).Msg("ensure bucket failed")
	}
	if err := s.Records.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("ensure metadata schema failed")
	}
}

func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func openBlobs(cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Driver {
	case config.StorageDriverMemory:
		return storage.NewMemoryStore(), nil
	case config.StorageDriverMinio:
		store, err := storage.NewObjectStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("object store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func (s *Stores) openRecords(ctx context.Context, cfg *config.AppConfig) (RecordStore, error) {
	switch cfg.Metadata.Driver {
	case config.MetadataDriverMemory:
		return repository.NewMemoryRepository(), nil

	case config.MetadataDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		return repository.NewImageRepository(pool, cfg.Metadata.Table, cfg.Metadata.UserIndex), nil

	case config.MetadataDriverSQLite:
		db, err := database.NewSQLiteDB(ctx, cfg.SQLite)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		s.closers = append(s.closers, func() { _ = db.Close() })
		return repository.NewSQLiteRepository(db, cfg.Metadata.Table, cfg.Metadata.UserIndex), nil

	case config.MetadataDriverDynamoDB:
		client, err := database.NewDynamoDBClient(cfg.DynamoDB)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: %w", err)
		}
		return repository.NewDynamoRepository(
			client,
			cfg.Metadata.Table,
			cfg.Metadata.UserIndex,
			cfg.DynamoDB.ReadCapacity,
			cfg.DynamoDB.WriteCapacity,
		), nil

	case config.MetadataDriverMongo:
		db, err := database.NewMongoDatabase(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		s.closers = append(s.closers, func() {
			_ = db.Client().Disconnect(context.Background())
		})
		return repository.NewMongoRepository(db, cfg.Metadata.Table, cfg.Metadata.UserIndex), nil

	default:
		return nil, fmt.Errorf("unknown metadata driver %q", cfg.Metadata.Driver)
	}
}
