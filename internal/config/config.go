package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// DefaultImageMaxBytes is the default image size budget (5 MiB).
const DefaultImageMaxBytes = 5 * 1024 * 1024

// DefaultImageMaxPixels caps width*height before an image is decoded.
const DefaultImageMaxPixels = 178956970

// Create new config instance with defaults applied
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeoutSec:  30,
			WriteTimeoutSec: 300,
			MaxBodyBytes:    1 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
		Image: ImageConfig{
			MaxBytes:  DefaultImageMaxBytes,
			MaxPixels: DefaultImageMaxPixels,
		},
		Video: VideoConfig{
			FFmpegPath:  "ffmpeg",
			ScaleFactor: 0.6,
		},
		ObjectStore: ObjectStoreConfig{
			Driver: ObjectStoreS3,
			S3:     S3Config{Region: "us-east-1"},
		},
		StatusStore: StatusStoreConfig{
			Driver: StatusStoreDynamoDB,
			DynamoDB: DynamoDBConfig{
				Table:  "media_processing_status",
				Region: "us-east-1",
			},
			Redis: RedisConfig{
				Namespace:           "mediashrink:status",
				HealthCheckInterval: 30,
				DialTimeout:         5,
				ReadTimeout:         3,
				WriteTimeout:        3,
				PoolSize:            20,
			},
		},
		Sentry: SentryConfig{
			Environment: "development",
		},
	}
}

// Load configuration file in json format. A missing file is not an error,
// the defaults and environment still apply.
func (c *Config) Read(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", file, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", file, err)
	}
	return nil
}

// Overlay environment variables (and a .env file if present) on top of the
// values read from the config file.
func (c *Config) ReadEnv(ctx context.Context) error {
	_ = godotenv.Load()

	if err := envconfig.Process(ctx, c); err != nil {
		return fmt.Errorf("process env: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("expected port to be between 1 and 65535 but received: %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Image.MaxBytes <= 0 {
		return fmt.Errorf("image max_bytes must be positive, got %d", c.Image.MaxBytes)
	}
	if c.Image.MaxPixels <= 0 {
		return fmt.Errorf("image max_pixels must be positive, got %d", c.Image.MaxPixels)
	}
	if c.Video.ScaleFactor <= 0 || c.Video.ScaleFactor > 1 {
		return fmt.Errorf("video scale_factor must be in (0, 1], got %v", c.Video.ScaleFactor)
	}

	switch c.ObjectStore.Driver {
	case ObjectStoreS3, ObjectStoreGCS:
	default:
		return fmt.Errorf("unknown object store driver: %q", c.ObjectStore.Driver)
	}

	switch c.StatusStore.Driver {
	case StatusStoreDynamoDB:
		if c.StatusStore.DynamoDB.Table == "" {
			return errors.New("dynamodb table must be provided")
		}
	case StatusStorePostgres:
		if c.StatusStore.Database.DSN == "" {
			return errors.New("database dsn must be provided")
		}
	case StatusStoreRedis:
		if len(c.StatusStore.Redis.Nodes) == 0 {
			return errors.New("at least one redis node must be provided")
		}
	case StatusStoreMemory:
	default:
		return fmt.Errorf("unknown status store driver: %q", c.StatusStore.Driver)
	}

	return nil
}
