package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory кеш в памяти процесса, используется, когда Redis не настроен.
// Значения хранятся в JSON, чтобы вызывающий код получал копию, а не общий map.
type Memory struct {
	c *gocache.Cache
}

// NewMemory создаёт кеш с периодом очистки просроченных записей cleanup.
func NewMemory(defaultExpiration, cleanup time.Duration) *Memory {
	return &Memory{c: gocache.New(defaultExpiration, cleanup)}
}

// Get читает значение по ключу в result.
func (m *Memory) Get(_ context.Context, key string, result any) (bool, error) {
	const op = "cache.Memory.Get"
	v, ok := m.c.Get(key)
	if !ok {
		return false, nil
	}
	data, ok := v.([]byte)
	if !ok {
		return false, fmt.Errorf("%s: unexpected value type %T", op, v)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение на время expiration.
func (m *Memory) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Memory.Set"
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.c.Set(key, data, expiration)
	return nil
}

// Invalidate удаляет ключ.
func (m *Memory) Invalidate(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

// Close очищает кеш.
func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}
