package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/trunov/mediashrink/internal/entities"
)

// Redis stores each record as a JSON string under namespace:object_key,
// without expiry. The client is resolved per call so a reconnecting holder
// can swap it underneath.
type Redis struct {
	client    func() redis.UniversalClient
	namespace string
}

func NewRedis(namespace string, client func() redis.UniversalClient) *Redis {
	return &Redis{client: client, namespace: namespace}
}

func (r *Redis) key(objectKey string) string {
	return r.namespace + ":" + objectKey
}

func (r *Redis) Upsert(ctx context.Context, rec entities.ProcessingRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal status for %q: %w", rec.ObjectKey, err)
	}

	if err := r.client().Set(ctx, r.key(rec.ObjectKey), raw, 0).Err(); err != nil {
		return fmt.Errorf("set status for %q: %w", rec.ObjectKey, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) (entities.ProcessingRecord, error) {
	raw, err := r.client().Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entities.ProcessingRecord{}, ErrNotFound
	}
	if err != nil {
		return entities.ProcessingRecord{}, fmt.Errorf("get status for %q: %w", key, err)
	}

	var rec entities.ProcessingRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return entities.ProcessingRecord{}, fmt.Errorf("unmarshal status for %q: %w", key, err)
	}
	return rec, nil
}
