package app

import (
	"context"
	"fmt"

	"github.com/trunov/mediashrink/cmd/migrate"
	"github.com/trunov/mediashrink/internal/config"
	"github.com/trunov/mediashrink/internal/objectstore"
	"github.com/trunov/mediashrink/internal/redisholder"
	"github.com/trunov/mediashrink/internal/repository/status"
	use_case "github.com/trunov/mediashrink/internal/use-case"
)

func (a *App) objectStore(ctx context.Context, cfg *config.ObjectStoreConfig) (use_case.ObjectStore, error) {
	switch cfg.Driver {
	case config.ObjectStoreS3:
		return objectstore.NewS3(ctx, &cfg.S3)
	case config.ObjectStoreGCS:
		gcs, err := objectstore.NewGCS(ctx, &cfg.GCS)
		if err != nil {
			return nil, err
		}
		a.onClose(func() error { return gcs.Close() })
		return gcs, nil
	default:
		return nil, fmt.Errorf("unknown object store driver %q", cfg.Driver)
	}
}

func (a *App) statusStore(ctx context.Context, cfg *config.StatusStoreConfig) (use_case.StatusStore, error) {
	switch cfg.Driver {
	case config.StatusStoreDynamoDB:
		return status.NewDynamo(ctx, &cfg.DynamoDB)

	case config.StatusStorePostgres:
		if err := migrate.Migrate(ctx, cfg.Database.DSN, migrate.Migrations); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
		repo, err := status.NewPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.onClose(func() error { repo.Close(); return nil })
		return repo, nil

	case config.StatusStoreRedis:
		holder, err := redisholder.Build(ctx, &cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.onClose(holder.Close)
		return status.NewRedis(cfg.Redis.Namespace, holder.Get), nil

	case config.StatusStoreMemory:
		return status.NewMemory(), nil

	default:
		return nil, fmt.Errorf("unknown status store driver %q", cfg.Driver)
	}
}
