package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	StorageDriverMinio  = "minio"
	StorageDriverMemory = "memory"

	MetadataDriverPostgres = "postgres"
	MetadataDriverDynamoDB = "dynamodb"
	MetadataDriverMongo    = "mongo"
	MetadataDriverSQLite   = "sqlite"
	MetadataDriverMemory   = "memory"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodyBytes int64
}

type LoggingConfig struct {
	Level string
}

type StorageConfig struct {
	Driver        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	Region        string
	AutoProvision bool
}

type MetadataConfig struct {
	Driver    string
	Table     string
	UserIndex string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type SQLiteConfig struct {
	Path string
}

type DynamoDBConfig struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	ReadCapacity  int64
	WriteCapacity int64
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type QueueConfig struct {
	ClaimInterval time.Duration
}

type ReconcileConfig struct {
	Schedule      string
	GracePeriod   time.Duration
	DeleteOrphans bool
}

type AppConfig struct {
	Environment      string
	Logging          LoggingConfig
	HTTP             HTTPConfig
	Storage          StorageConfig
	Metadata         MetadataConfig
	Postgres         PostgresConfig
	SQLite           SQLiteConfig
	DynamoDB         DynamoDBConfig
	Mongo            MongoConfig
	Redis            RedisConfig
	Queues           QueueConfig
	Reconcile        ReconcileConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	return load(v)
}

func load(v *viper.Viper) (*AppConfig, error) {
	v.SetEnvPrefix("IMAGESHELF")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Storage.Driver {
	case StorageDriverMinio, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Metadata.Driver {
	case MetadataDriverPostgres, MetadataDriverDynamoDB, MetadataDriverMongo, MetadataDriverSQLite, MetadataDriverMemory:
	default:
		return fmt.Errorf("unknown metadata driver %q", c.Metadata.Driver)
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	if c.Metadata.Table == "" {
		return fmt.Errorf("metadata table is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("logging.level", "info")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.maxbodybytes", 32<<20)

	v.SetDefault("storage.driver", StorageDriverMinio)
	v.SetDefault("storage.endpoint", "http://localhost:4566")
	v.SetDefault("storage.accesskey", "test")
	v.SetDefault("storage.secretkey", "test")
	v.SetDefault("storage.bucket", "instagram-images")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.autoprovision", true)

	v.SetDefault("metadata.driver", MetadataDriverDynamoDB)
	v.SetDefault("metadata.table", "image-metadata")
	v.SetDefault("metadata.userindex", "user-index")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("sqlite.path", "imageshelf.db")

	v.SetDefault("dynamodb.endpoint", "http://localhost:4566")
	v.SetDefault("dynamodb.region", "us-east-1")
	v.SetDefault("dynamodb.accesskey", "test")
	v.SetDefault("dynamodb.secretkey", "test")
	v.SetDefault("dynamodb.readcapacity", 5)
	v.SetDefault("dynamodb.writecapacity", 5)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "imageshelf")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "media:events")
	v.SetDefault("redis.group", "media-workers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("queues.claiminterval", "30s")

	v.SetDefault("reconcile.schedule", "0 0 * * * *") // hourly
	v.SetDefault("reconcile.graceperiod", "15m")
	v.SetDefault("reconcile.deleteorphans", false)

	v.SetDefault("allowcorsorigins", []string{})
}
