package limiter

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/middleware"
	"github.com/MorseWayne/bp_store/internal/resp"
)

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	Limiter Limiter

	// Key生成函数，默认按客户端 IP
	KeyGenerator func(*gin.Context) string

	// 限流服务异常时记录日志并放行
	Logger *zap.Logger
}

// ClientIPKey 以路由和客户端 IP 作为限流 Key
func ClientIPKey(c *gin.Context) string {
	return fmt.Sprintf("%s:%s:%s", c.Request.Method, c.FullPath(), c.ClientIP())
}

// RateLimitMiddleware 创建限流中间件
func RateLimitMiddleware(config MiddlewareConfig) gin.HandlerFunc {
	if config.KeyGenerator == nil {
		config.KeyGenerator = ClientIPKey
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		result, err := config.Limiter.Allow(ctx, config.KeyGenerator(c))
		if err != nil {
			config.Logger.Warn("rate limiter unavailable, allowing request",
				zap.String("request_id", middleware.RequestIDFromContext(c.Request.Context())),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.FormatInt(int64(math.Ceil(result.RetryAfter.Seconds())), 10))
			}
			resp.Error(c.Writer, http.StatusTooManyRequests, resp.CodeTooManyReq,
				"too many requests, please try again later",
				middleware.RequestIDFromContext(c.Request.Context()), "")
			c.Abort()
			return
		}

		c.Next()
	}
}
