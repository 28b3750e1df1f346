package cache

import (
	"context"
	"encoding/json"
	"time"

	"homeserve/internal/logger"
)

// JSONCache is a typed JSON cache over a TTLStore. Misses and decode errors
// both report false; write failures are logged and swallowed because a
// missing cache entry is never fatal.
type JSONCache[T any] struct {
	store     TTLStore
	namespace string
	ttl       time.Duration
}

// NewJSONCache creates a JSONCache storing entries under namespace for ttl.
func NewJSONCache[T any](store TTLStore, namespace string, ttl time.Duration) *JSONCache[T] {
	return &JSONCache[T]{store: store, namespace: namespace, ttl: ttl}
}

func (c *JSONCache[T]) key(k string) string {
	return c.namespace + ":" + k
}

// Get retrieves and decodes the value stored under key.
func (c *JSONCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	raw, ok, err := c.store.Get(ctx, c.key(key))
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Set encodes value and stores it under key.
func (c *JSONCache[T]) Set(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Get().Warnw("json cache marshal failed", "key", c.key(key), "error", err)
		return
	}
	if err := c.store.SetWithExpiry(ctx, c.key(key), string(data), c.ttl); err != nil {
		logger.Get().Warnw("json cache write failed", "key", c.key(key), "error", err)
	}
}

// Delete removes key.
func (c *JSONCache[T]) Delete(ctx context.Context, key string) error {
	_, err := c.store.Delete(ctx, c.key(key))
	return err
}
