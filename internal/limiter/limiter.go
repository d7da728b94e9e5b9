// Package limiter 提供顾客自助接口的固定窗口限流
package limiter

import (
	"context"
	"time"
)

// LimitResult 限流结果
type LimitResult struct {
	Allowed    bool          `json:"allowed"`     // 是否允许通过
	Remaining  int64         `json:"remaining"`   // 剩余配额
	RetryAfter time.Duration `json:"retry_after"` // 建议重试时间
}

// Limiter 限流器接口
type Limiter interface {
	// Allow 检查是否允许请求通过
	Allow(ctx context.Context, key string) (*LimitResult, error)
}

// Config 限流配置
type Config struct {
	Rate      int64         // 每个窗口允许的请求数
	Window    time.Duration // 时间窗口
	KeyPrefix string        // Key前缀
}

// windowStart 计算 now 所在窗口的起始时间和到下一窗口的剩余时间
func windowStart(now time.Time, window time.Duration) (time.Time, time.Duration) {
	start := now.Truncate(window)
	return start, start.Add(window).Sub(now)
}
