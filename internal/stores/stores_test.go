package stores

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imageshelf/internal/config"
	"imageshelf/internal/repository"
	"imageshelf/internal/storage"
)

func memoryConfig() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.Storage.Driver = config.StorageDriverMemory
	cfg.Storage.Bucket = "instagram-images"
	cfg.Metadata.Driver = config.MetadataDriverMemory
	cfg.Metadata.Table = "image-metadata"
	return cfg
}

func TestOpenMemoryDrivers(t *testing.T) {
	s, err := Open(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &storage.MemoryStore{}, s.Blobs)
	assert.IsType(t, &repository.MemoryRepository{}, s.Records)

	s.Provision(context.Background(), zerolog.Nop())
	assert.NoError(t, s.Blobs.Ping(context.Background()))
	assert.NoError(t, s.Records.Ping(context.Background()))
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Metadata.Driver = "cassandra"

	_, err := Open(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "cassandra")

	cfg = memoryConfig()
	cfg.Storage.Driver = "gcs"
	_, err = Open(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "gcs")
}

func TestOpenDynamoDBDoesNotDial(t *testing.T) {
	cfg := memoryConfig()
	cfg.Metadata.Driver = config.MetadataDriverDynamoDB
	cfg.DynamoDB.Region = "us-east-1"
	cfg.DynamoDB.Endpoint = "http://127.0.0.1:1"
	cfg.DynamoDB.AccessKey = "test"
	cfg.DynamoDB.SecretKey = "test"

	s, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &repository.DynamoRepository{}, s.Records)
}

func TestOpenSQLiteProvisionsSchema(t *testing.T) {
	cfg := memoryConfig()
	cfg.Metadata.Driver = config.MetadataDriverSQLite
	cfg.Metadata.UserIndex = "user-index"
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "meta.db")

	s, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	s.Provision(context.Background(), zerolog.Nop())
	records, err := s.Records.Query(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, records)
}
