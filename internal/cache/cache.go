// Package cache 提供缓存抽象，以及 Redis、内存和空实现。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss 键不存在、已过期或缓存被禁用
var ErrCacheMiss = errors.New("cache miss")

// Cache 定义缓存操作接口，值以 JSON 序列化存储
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// MemoryCache 内存缓存实现（用于开发和测试）
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]memoryCacheItem
	now  func() time.Time
}

type memoryCacheItem struct {
	value      []byte
	expiration time.Time
}

// NewMemoryCache 创建内存缓存实例
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]memoryCacheItem),
		now:  time.Now,
	}
}

// Get 获取缓存值
func (m *MemoryCache) Get(_ context.Context, key string, dest any) error {
	m.mu.RLock()
	item, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return ErrCacheMiss
	}

	if m.now().After(item.expiration) {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return ErrCacheMiss
	}

	return json.Unmarshal(item.value, dest)
}

// Set 设置缓存值
func (m *MemoryCache) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data[key] = memoryCacheItem{value: data, expiration: m.now().Add(expiration)}
	m.mu.Unlock()
	return nil
}

// Del 删除缓存值
func (m *MemoryCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.data, key)
	}
	m.mu.Unlock()
	return nil
}

// Ping 检查连接
func (m *MemoryCache) Ping(context.Context) error {
	return nil
}

// Close 清空缓存
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	m.data = make(map[string]memoryCacheItem)
	m.mu.Unlock()
	return nil
}

// NullCache 空缓存实现（禁用缓存时使用）
type NullCache struct{}

// NewNullCache 创建空缓存实例
func NewNullCache() *NullCache {
	return &NullCache{}
}

func (NullCache) Get(context.Context, string, any) error {
	return ErrCacheMiss
}

func (NullCache) Set(context.Context, string, any, time.Duration) error { return nil }

func (NullCache) Del(context.Context, ...string) error { return nil }

func (NullCache) Ping(context.Context) error { return nil }

func (NullCache) Close() error { return nil }
