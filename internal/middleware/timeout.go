package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout 给请求上下文设置截止时间。数据库和 Redis 调用随之取消，
// 处理器把 context.DeadlineExceeded 映射为 504。
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
