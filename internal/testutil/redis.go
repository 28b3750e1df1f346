package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"homeserve/internal/cache"
)

// SetupTestRedis starts an in-process Redis server and returns it together
// with a connected client. Both are closed when the test ends. Use
// mr.FastForward to expire keys.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// SetupTestStore returns a TTL store over a fresh in-process Redis server.
func SetupTestStore(t *testing.T) (*cache.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, client := SetupTestRedis(t)
	return cache.NewRedisStore(client, ""), mr
}
