package config

import (
	"fmt"
)

type Config struct {
	Server      ServerConfig      `json:"server"`
	Log         LogConfig         `json:"log"`
	Image       ImageConfig       `json:"image"`
	Video       VideoConfig       `json:"video"`
	ObjectStore ObjectStoreConfig `json:"object_store"`
	StatusStore StatusStoreConfig `json:"status_store"`
	Sentry      SentryConfig      `json:"sentry"`
}

type ServerConfig struct {
	Port            int   `json:"port" env:"PORT, overwrite"`
	ReadTimeoutSec  int   `json:"read_timeout" env:"SERVER_READ_TIMEOUT, overwrite"`
	WriteTimeoutSec int   `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT, overwrite"`
	MaxBodyBytes    int64 `json:"max_body_bytes" env:"SERVER_MAX_BODY_BYTES, overwrite"`
}

type LogConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL, overwrite"`
	Pretty bool   `json:"pretty" env:"LOG_PRETTY, overwrite"`
}

type ImageConfig struct {
	MaxBytes  int64 `json:"max_bytes" env:"IMAGE_MAX_BYTES, overwrite"`   // size budget, 5 MiB by default
	MaxPixels int64 `json:"max_pixels" env:"IMAGE_MAX_PIXELS, overwrite"` // decoded bitmap cap
}

type VideoConfig struct {
	FFmpegPath  string  `json:"ffmpeg_path" env:"FFMPEG_PATH, overwrite"`
	ScaleFactor float64 `json:"scale_factor" env:"VIDEO_SCALE_FACTOR, overwrite"`
	WorkDir     string  `json:"work_dir" env:"VIDEO_WORK_DIR, overwrite"` // temp files live here, "" means os.TempDir()
}

const (
	ObjectStoreS3  = "s3"
	ObjectStoreGCS = "gcs"
)

type ObjectStoreConfig struct {
	Driver string    `json:"driver" env:"OBJECT_STORE_DRIVER, overwrite"`
	S3     S3Config  `json:"s3"`
	GCS    GCSConfig `json:"gcs"`
}

type S3Config struct {
	Region       string `json:"region" env:"AWS_REGION, overwrite"`
	Endpoint     string `json:"endpoint" env:"S3_ENDPOINT, overwrite"` // empty for AWS, set for R2/MinIO
	AccessKeyID  string `json:"access_key_id" env:"AWS_ACCESS_KEY_ID, overwrite"`
	SecretKey    string `json:"secret_key" env:"AWS_SECRET_ACCESS_KEY, overwrite"`
	UsePathStyle bool   `json:"use_path_style" env:"S3_USE_PATH_STYLE, overwrite"`
}

type GCSConfig struct {
	CredentialsFile string `json:"credentials_file" env:"GCS_CREDENTIALS_FILE, overwrite"`
}

const (
	StatusStoreDynamoDB = "dynamodb"
	StatusStorePostgres = "postgres"
	StatusStoreRedis    = "redis"
	StatusStoreMemory   = "memory"
)

type StatusStoreConfig struct {
	Driver   string         `json:"driver" env:"STATUS_STORE_DRIVER, overwrite"`
	DynamoDB DynamoDBConfig `json:"dynamodb"`
	Database Database       `json:"database"`
	Redis    RedisConfig    `json:"redis"`
}

type DynamoDBConfig struct {
	Table    string `json:"table" env:"DYNAMODB_TABLE, overwrite"`
	Region   string `json:"region" env:"DYNAMODB_REGION, overwrite"`
	Endpoint string `json:"endpoint" env:"DYNAMODB_ENDPOINT, overwrite"`
}

type Database struct {
	DSN string `json:"dsn" env:"DATABASE_DSN, overwrite"`
}

// Timeouts and intervals are in seconds.
type RedisConfig struct {
	Password            string      `json:"password" env:"REDIS_PASSWORD, overwrite"`
	DatabaseID          int         `json:"database_id" env:"REDIS_DB, overwrite"`
	Namespace           string      `json:"namespace" env:"REDIS_NAMESPACE, overwrite"`
	HealthCheckInterval int         `json:"health_check_interval"`
	DialTimeout         int         `json:"dial_timeout"`
	ReadTimeout         int         `json:"read_timeout"`
	WriteTimeout        int         `json:"write_timeout"`
	PoolSize            int         `json:"pool_size"`
	Nodes               []RedisNode `json:"nodes"`
}

type RedisNode struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (n RedisNode) Addr() string { return fmt.Sprintf("%s:%d", n.Host, n.Port) }

type SentryConfig struct {
	SentryDSN   string `json:"sentry_dsn" env:"SENTRY_DSN, overwrite"`
	Environment string `json:"environment" env:"ENVIRONMENT, overwrite"`
}
