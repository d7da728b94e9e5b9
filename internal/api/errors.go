// Package api 提供订单、库存、退换货的 HTTP 处理器。
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/domain"
	"github.com/MorseWayne/bp_store/internal/middleware"
	"github.com/MorseWayne/bp_store/internal/resp"
)

func requestID(c *gin.Context) string {
	return middleware.RequestIDFromContext(c.Request.Context())
}

// writeError 把服务层错误映射为 HTTP 状态码和业务码；5xx 只返回通用信息，细节写日志
func writeError(c *gin.Context, logger *zap.Logger, err error, op string) {
	reqID := requestID(c)

	var status, code int
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, resp.CodeInvalidParam
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, resp.CodeUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, resp.CodeNotFound
	case errors.Is(err, domain.ErrStockConflict), errors.Is(err, domain.ErrConflict):
		status, code = http.StatusConflict, resp.CodeConflict
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn(op+" timed out", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusGatewayTimeout, resp.CodeTimeout, "request timeout", reqID, "")
		return
	default:
		logger.Error(op+" failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError, "internal server error", reqID, "")
		return
	}

	msg := domain.PublicMessage(err)
	if msg == "" {
		msg = err.Error()
	}
	logger.Info(op+" rejected", zap.String("request_id", reqID), zap.Int("status", status), zap.String("reason", msg))
	resp.Error(c.Writer, status, code, msg, reqID, "")
}

// writeBindError 请求体解析或校验失败时返回 400
func writeBindError(c *gin.Context, logger *zap.Logger, err error) {
	reqID := requestID(c)
	logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
	resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, bindMessage(err), reqID, "")
}

// bindMessage 把校验错误转成可读信息，只报告第一个字段
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", field)
		case "email":
			return fmt.Sprintf("%s must be a valid email", field)
		case "oneof":
			return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
		default:
			return fmt.Sprintf("%s failed on %s=%s", field, fe.Tag(), fe.Param())
		}
	}
	return "invalid request body"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// pathID 解析路径中的正整数 ID
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, "invalid id", requestID(c), "")
		return 0, false
	}
	return id, true
}
