package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trunov/mediashrink/internal/entities"
)

const (
	upsertRecordSQL = `INSERT INTO processing_records (object_key, processed, error, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (object_key) DO UPDATE
SET processed = EXCLUDED.processed, error = EXCLUDED.error, updated_at = EXCLUDED.updated_at`

	selectRecordSQL = `SELECT processed, error FROM processing_records WHERE object_key = $1`
)

type dbStorage struct {
	dbpool *pgxpool.Pool
}

// NewPostgres expects the processing_records table to exist, see cmd/migrate.
func NewPostgres(ctx context.Context, databaseDSN string) (*dbStorage, error) {
	pool, err := pgxpool.New(ctx, databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return &dbStorage{dbpool: pool}, nil
}

func (s *dbStorage) Upsert(ctx context.Context, rec entities.ProcessingRecord) error {
	_, err := s.dbpool.Exec(ctx, upsertRecordSQL, rec.ObjectKey, rec.Processed, rec.Error)
	if err != nil {
		return fmt.Errorf("upsert status for %q: %w", rec.ObjectKey, err)
	}
	return nil
}

func (s *dbStorage) Get(ctx context.Context, key string) (entities.ProcessingRecord, error) {
	rec := entities.ProcessingRecord{ObjectKey: key}

	err := s.dbpool.QueryRow(ctx, selectRecordSQL, key).Scan(&rec.Processed, &rec.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.ProcessingRecord{}, ErrNotFound
	}
	if err != nil {
		return entities.ProcessingRecord{}, fmt.Errorf("get status for %q: %w", key, err)
	}
	return rec, nil
}

func (s *dbStorage) Close() {
	s.dbpool.Close()
}
