// Package domain 定义订单、库存、退换货的领域模型和状态机规则。
package domain

import (
	"errors"
	"fmt"
)

// 错误分类。服务层返回的错误通过 errors.Is 归类到这些哨兵值之一。
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrStockConflict = errors.New("stock conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("conflict")
)

// Error 携带面向调用方的可读信息，并归属于某个错误分类。
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// Invalid 构造校验失败错误
func Invalid(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// NotFound 构造资源不存在错误
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// StockConflict 构造库存不足错误
func StockConflict(msg string) error {
	return &Error{Kind: ErrStockConflict, Msg: msg}
}

// Conflict 构造唯一性冲突错误
func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

// PublicMessage 返回可以直接展示给调用方的错误信息；非领域错误返回空串。
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return ""
}
