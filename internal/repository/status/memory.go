package status

import (
	"context"
	"sync"

	"github.com/trunov/mediashrink/internal/entities"
)

// Memory is an in-process store, used for local runs and tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]entities.ProcessingRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]entities.ProcessingRecord)}
}

func (m *Memory) Upsert(ctx context.Context, rec entities.ProcessingRecord) error {
	m.mu.Lock()
	m.records[rec.ObjectKey] = clone(rec)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (entities.ProcessingRecord, error) {
	m.mu.RLock()
	rec, ok := m.records[key]
	m.mu.RUnlock()
	if !ok {
		return entities.ProcessingRecord{}, ErrNotFound
	}
	return clone(rec), nil
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func clone(rec entities.ProcessingRecord) entities.ProcessingRecord {
	if rec.Error != nil {
		msg := *rec.Error
		rec.Error = &msg
	}
	return rec
}
