package limiter

import (
	"context"
	"sync"
	"time"
)

// MemoryFixedWindowLimiter 进程内固定窗口限流器，未配置 Redis 时使用
type MemoryFixedWindowLimiter struct {
	mu       sync.Mutex
	config   Config
	counters map[string]*windowCounter
	now      func() time.Time
}

type windowCounter struct {
	start time.Time
	count int64
}

// NewMemoryFixedWindowLimiter 创建进程内限流器
func NewMemoryFixedWindowLimiter(config Config) *MemoryFixedWindowLimiter {
	return &MemoryFixedWindowLimiter{
		config:   config,
		counters: make(map[string]*windowCounter),
		now:      time.Now,
	}
}

// Allow 检查是否允许请求通过
func (m *MemoryFixedWindowLimiter) Allow(_ context.Context, key string) (*LimitResult, error) {
	start, untilNext := windowStart(m.now(), m.config.Window)

	m.mu.Lock()
	defer m.mu.Unlock()

	// 进入新窗口时清理过期计数
	for k, c := range m.counters {
		if c.start.Before(start) {
			delete(m.counters, k)
		}
	}

	c, ok := m.counters[key]
	if !ok {
		c = &windowCounter{start: start}
		m.counters[key] = c
	}
	if c.count >= m.config.Rate {
		return &LimitResult{Allowed: false, RetryAfter: untilNext}, nil
	}
	c.count++
	return &LimitResult{Allowed: true, Remaining: m.config.Rate - c.count}, nil
}
