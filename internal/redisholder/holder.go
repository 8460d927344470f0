package redisholder

import (
	"sync"

	"github.com/redis/go-redis/v9"
)

// Holder hands out the current client. The health loop may replace a cluster
// client with a single-node one, so the concrete type can change over time.
type Holder struct {
	mu sync.RWMutex
	c  redis.UniversalClient
}

func NewHolder(initial redis.UniversalClient) *Holder {
	return &Holder{c: initial}
}

func (h *Holder) Get() redis.UniversalClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.c
}

func (h *Holder) swap(newc redis.UniversalClient) (old redis.UniversalClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	old, h.c = h.c, newc
	return old
}

func (h *Holder) Close() error {
	if c := h.Get(); c != nil {
		return c.Close()
	}
	return nil
}
