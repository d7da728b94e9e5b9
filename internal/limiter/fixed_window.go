package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// evaler 执行 Lua 脚本的最小接口，*redis.Client 和集群客户端都满足
type evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// FixedWindowLimiter 基于 Redis 的固定窗口限流器，多实例部署时共享计数
type FixedWindowLimiter struct {
	client evaler
	config Config
	now    func() time.Time
}

// NewFixedWindowLimiter 创建固定窗口限流器
func NewFixedWindowLimiter(client evaler, config Config) (*FixedWindowLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Rate <= 0 || config.Window < time.Second {
		return nil, fmt.Errorf("invalid limiter config: rate=%d window=%s", config.Rate, config.Window)
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "limiter:fw"
	}
	return &FixedWindowLimiter{client: client, config: config, now: time.Now}, nil
}

// Redis Lua脚本：固定窗口计数
const fixedWindowScript = `
-- KEYS[1]: 当前窗口计数器key
-- ARGV[1]: 限制数量(rate)
-- ARGV[2]: 时间窗口(秒)

local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local current = tonumber(redis.call('GET', key) or 0)
if current + 1 > limit then
    return {0, 0}
end

local count = redis.call('INCR', key)
if count == 1 then
    redis.call('EXPIRE', key, window)
end
return {1, limit - count}
`

// Allow 检查是否允许请求通过
func (fw *FixedWindowLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	start, untilNext := windowStart(fw.now(), fw.config.Window)
	windowKey := fmt.Sprintf("%s:%s:%d", fw.config.KeyPrefix, key, start.Unix())

	values, err := fw.client.Eval(ctx, fixedWindowScript,
		[]string{windowKey},
		fw.config.Rate,
		int64(fw.config.Window.Seconds()),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to execute fixed window script: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected script result: %v", values)
	}

	result := &LimitResult{Allowed: values[0] == 1, Remaining: values[1]}
	if !result.Allowed {
		result.RetryAfter = untilNext
	}
	return result, nil
}
