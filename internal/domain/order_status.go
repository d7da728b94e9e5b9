package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// OrderStatus 订单状态，取值为对外展示的字面量
type OrderStatus string

const (
	OrderStatusPendingPayment   OrderStatus = "입금대기" // 待付款（初始状态）
	OrderStatusPaymentConfirmed OrderStatus = "입금확인" // 已确认付款
	OrderStatusShipping         OrderStatus = "배송중"  // 配送中
	OrderStatusDelivered        OrderStatus = "배송완료" // 已送达，退换货的前提
)

// MaxDelayWeeks 延迟发货状态允许的最大周数
const MaxDelayWeeks = 52

var delayStatusPattern = regexp.MustCompile(`^([1-9][0-9]?)주 뒤 발송$`)

// DelayStatus 构造 “N주 뒤 발송” 延迟发货状态
func DelayStatus(weeks int) OrderStatus {
	return OrderStatus(fmt.Sprintf("%d주 뒤 발송", weeks))
}

// ParseOrderStatus 解析并校验状态字符串
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.TrimSpace(s))
	if !status.Valid() {
		return "", Invalid("invalid order status %q", s)
	}
	return status, nil
}

// DelayWeeks 返回延迟发货的周数；非延迟状态返回 false。
func (s OrderStatus) DelayWeeks() (int, bool) {
	m := delayStatusPattern.FindStringSubmatch(string(s))
	if m == nil {
		return 0, false
	}
	weeks, err := strconv.Atoi(m[1])
	if err != nil || weeks > MaxDelayWeeks {
		return 0, false
	}
	return weeks, true
}

// IsDelay 判断是否为延迟发货状态
func (s OrderStatus) IsDelay() bool {
	_, ok := s.DelayWeeks()
	return ok
}

// IsConfirmed 判断是否为“已确认”状态：入金确认或任一延迟发货状态。
// 进入该类状态时扣减库存。
func (s OrderStatus) IsConfirmed() bool {
	return s == OrderStatusPaymentConfirmed || s.IsDelay()
}

// Valid 判断是否为合法状态
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusPaymentConfirmed, OrderStatusShipping, OrderStatusDelivered:
		return true
	}
	return s.IsDelay()
}

// Key 返回稳定的英文标识，用于通知模板和事件名。
// 所有延迟发货状态共用 "delayed"。
func (s OrderStatus) Key() string {
	switch s {
	case OrderStatusPendingPayment:
		return "pending_payment"
	case OrderStatusPaymentConfirmed:
		return "payment_confirmed"
	case OrderStatusShipping:
		return "shipping"
	case OrderStatusDelivered:
		return "delivered"
	}
	if s.IsDelay() {
		return "delayed"
	}
	return "unknown"
}

// OrderTransition 描述一次订单状态变更及其附带效果
type OrderTransition struct {
	From           OrderStatus
	To             OrderStatus
	DeductStock    bool   // 首次进入已确认状态时扣减库存
	TrackingNumber string // 进入配送中时必填
	StampDelivered bool   // 进入已送达时记录送达时间
}

// PlanOrderTransition 计算把订单变更到目标状态所需的动作。
// 后台允许任意合法状态之间跳转，库存只在订单尚未扣减过时扣减一次。
func PlanOrderTransition(o *Order, to OrderStatus, trackingNumber string) (OrderTransition, error) {
	if !to.Valid() {
		return OrderTransition{}, Invalid("invalid order status %q", string(to))
	}

	t := OrderTransition{From: o.Status, To: to}
	switch {
	case to.IsConfirmed():
		t.DeductStock = !o.StockDeducted
	case to == OrderStatusShipping:
		trackingNumber = strings.TrimSpace(trackingNumber)
		if trackingNumber == "" {
			return OrderTransition{}, Invalid("tracking number is required for status %s", to)
		}
		t.TrackingNumber = trackingNumber
	case to == OrderStatusDelivered:
		t.StampDelivered = true
	}
	return t, nil
}
