// Package resp 定义统一的 JSON 响应包络和错误码。
package resp

import (
	"encoding/json"
	"net/http"
)

// 业务错误码。0 表示成功。
const (
	CodeOK            = 0
	CodeInvalidParam  = 40000
	CodeUnauthorized  = 40100
	CodeNotFound      = 40400
	CodeConflict      = 40900
	CodeTooManyReq    = 42900
	CodeInternalError = 50000
	CodeTimeout       = 50400
)

// Response 统一响应结构
type Response[T any] struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      T      `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// WriteJSON 以指定 HTTP 状态码和业务码写出响应
func WriteJSON(w http.ResponseWriter, status, code int, message string, data any, requestID, traceID string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response[any]{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: requestID,
		TraceID:   traceID,
	})
}

// OK 写出成功响应
func OK(w http.ResponseWriter, data any, requestID, traceID string) {
	WriteJSON(w, http.StatusOK, CodeOK, "success", data, requestID, traceID)
}

// Created 写出 201 成功响应
func Created(w http.ResponseWriter, data any, requestID, traceID string) {
	WriteJSON(w, http.StatusCreated, CodeOK, "success", data, requestID, traceID)
}

// Error 写出错误响应，data 为空
func Error(w http.ResponseWriter, status, code int, message, requestID, traceID string) {
	WriteJSON(w, status, code, message, nil, requestID, traceID)
}

// HTTPStatusFromCode 将业务码映射为 HTTP 状态码
func HTTPStatusFromCode(code int) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyReq:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
