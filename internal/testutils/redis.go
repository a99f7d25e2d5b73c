package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemRedis is an in-memory stand-in for the Redis commands the ledger uses.
// Expirations are ignored.
type MemRedis struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemRedis returns an empty MemRedis
func NewMemRedis() *MemRedis {
	return &MemRedis{data: make(map[string]string)}
}

func (m *MemRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *MemRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *MemRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *MemRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *MemRedis) Close() error { return nil }

// Len is the number of stored keys
func (m *MemRedis) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
