package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/resp"
)

// Recovery 捕获 panic，记录堆栈并返回统一的 500 响应
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// 客户端断开时 net/http 用 ErrAbortHandler 中止处理，原样抛出
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				reqID := RequestIDFromContext(r.Context())
				logger.Error("panic recovered",
					zap.String("request_id", reqID),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "internal server error", reqID, "")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
