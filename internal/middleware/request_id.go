// Package middleware 提供 net/http 层的通用中间件（请求 ID、恢复、超时、访问日志），
// 以及 gin 层的管理员密钥校验。
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// HeaderRequestID 请求 ID 请求头/响应头
const HeaderRequestID = "X-Request-ID"

// maxRequestIDLen 外部传入的请求 ID 超过该长度时重新生成
const maxRequestIDLen = 64

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// WithRequestID 将请求 ID 写入上下文
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}

// RequestIDFromContext 从上下文中读取请求 ID（可能为空）
func RequestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return s
	}
	return ""
}

// RequestID 沿用调用方传入的 X-Request-ID，缺失或不合法时生成 UUID，
// 并写入响应头与请求上下文。
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, rid)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), rid)))
	})
}

// validRequestID 只接受可打印 ASCII，防止日志注入
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
