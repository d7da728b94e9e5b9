package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReturnType 申请类型
type ReturnType string

const (
	ReturnTypeExchange ReturnType = "exchange" // 换货
	ReturnTypeReturn   ReturnType = "return"   // 退货退款
)

// Valid 判断类型是否合法
func (t ReturnType) Valid() bool {
	return t == ReturnTypeExchange || t == ReturnTypeReturn
}

// ReturnStatus 退换货申请状态，取值为对外展示的字面量
type ReturnStatus string

const (
	ReturnStatusReceived   ReturnStatus = "접수"   // 已受理（初始状态）
	ReturnStatusApproved   ReturnStatus = "승인"   // 已批准
	ReturnStatusCollecting ReturnStatus = "수거중"  // 取件中
	ReturnStatusCollected  ReturnStatus = "수거완료" // 已取件
	ReturnStatusCompleted  ReturnStatus = "완료"   // 已完成（终态）
	ReturnStatusRejected   ReturnStatus = "거절"   // 已拒绝（终态）
)

// returnTransitions 退换货状态迁移表，所有状态变更都必须查表
var returnTransitions = map[ReturnStatus]map[ReturnStatus]bool{
	ReturnStatusReceived:   {ReturnStatusApproved: true, ReturnStatusRejected: true},
	ReturnStatusApproved:   {ReturnStatusCollecting: true},
	ReturnStatusCollecting: {ReturnStatusCollected: true},
	ReturnStatusCollected:  {ReturnStatusCompleted: true},
}

// ParseReturnStatus 解析并校验状态字符串
func ParseReturnStatus(s string) (ReturnStatus, error) {
	status := ReturnStatus(strings.TrimSpace(s))
	if !status.Valid() {
		return "", Invalid("invalid return status %q", s)
	}
	return status, nil
}

// Valid 判断状态是否合法
func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnStatusReceived, ReturnStatusApproved, ReturnStatusCollecting,
		ReturnStatusCollected, ReturnStatusCompleted, ReturnStatusRejected:
		return true
	}
	return false
}

// IsTerminal 判断是否为终态
func (s ReturnStatus) IsTerminal() bool {
	return s == ReturnStatusCompleted || s == ReturnStatusRejected
}

// Key 返回稳定的英文标识，用于通知模板和事件名
func (s ReturnStatus) Key() string {
	switch s {
	case ReturnStatusReceived:
		return "received"
	case ReturnStatusApproved:
		return "approved"
	case ReturnStatusCollecting:
		return "collecting"
	case ReturnStatusCollected:
		return "collected"
	case ReturnStatusCompleted:
		return "completed"
	case ReturnStatusRejected:
		return "rejected"
	}
	return "unknown"
}

// CanTransitionReturn 判断状态迁移是否在迁移表中
func CanTransitionReturn(from, to ReturnStatus) bool {
	return returnTransitions[from][to]
}

// ActiveReturnStatuses 未结束的状态，同一行项目同时只能有一个
func ActiveReturnStatuses() []ReturnStatus {
	return []ReturnStatus{ReturnStatusReceived, ReturnStatusApproved, ReturnStatusCollecting, ReturnStatusCollected}
}

// ReturnRequest 退换货申请聚合
type ReturnRequest struct {
	ID                   int64        `json:"id"`
	RequestNumber        string       `json:"requestNumber"`
	OrderID              int64        `json:"orderId"`
	OrderItemID          int64        `json:"orderItemId"`
	Type                 ReturnType   `json:"type"`
	Reason               string       `json:"reason"`
	Status               ReturnStatus `json:"status"`
	Quantity             int          `json:"quantity"`
	ExchangeSize         *string      `json:"exchangeSize"`
	RefundBank           *string      `json:"refundBank"`
	RefundAccount        *string      `json:"refundAccount"`
	RefundHolder         *string      `json:"refundHolder"`
	RefundAmount         *int64       `json:"refundAmount"`
	ReturnShippingFee    *int64       `json:"returnShippingFee"`
	RefundCompleted      bool         `json:"refundCompleted"`
	ReturnTrackingNumber *string      `json:"returnTrackingNumber"`
	RejectReason         *string      `json:"rejectReason"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`

	// 以下字段由查询时关联订单填充，不落库
	OrderNumber  string `json:"orderNumber,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
	ProductName  string `json:"productName,omitempty"`
	OriginalSize string `json:"originalSize,omitempty"`
}

// ReturnTransitionInput 后台推进状态时附带的参数
type ReturnTransitionInput struct {
	To             ReturnStatus
	RejectReason   string
	TrackingNumber string
}

// ReturnTransition 描述一次退换货状态变更及其附带效果
type ReturnTransition struct {
	From              ReturnStatus
	To                ReturnStatus
	RejectReason      string
	TrackingNumber    string
	RefundAmount      *int64
	ReturnShippingFee *int64

	ReserveExchange bool // 批准换货时扣减新尺码库存
	RestockOriginal bool // 完成时回补原尺码库存
}

// PlanTransition 按迁移表和守卫条件计算状态变更。item 为申请对应的订单行。
func (r *ReturnRequest) PlanTransition(in ReturnTransitionInput, item *OrderItem, returnShippingFee int64) (ReturnTransition, error) {
	if !CanTransitionReturn(r.Status, in.To) {
		return ReturnTransition{}, Invalid("cannot transition return request from %s to %s", r.Status, in.To)
	}

	t := ReturnTransition{From: r.Status, To: in.To}
	switch in.To {
	case ReturnStatusRejected:
		reason := strings.TrimSpace(in.RejectReason)
		if reason == "" {
			return ReturnTransition{}, Invalid("reject reason is required")
		}
		t.RejectReason = reason
	case ReturnStatusCollecting:
		tn := strings.TrimSpace(in.TrackingNumber)
		if tn == "" {
			return ReturnTransition{}, Invalid("return tracking number is required")
		}
		t.TrackingNumber = tn
	case ReturnStatusApproved:
		switch r.Type {
		case ReturnTypeReturn:
			if r.RefundAmount == nil && item != nil {
				amount := RefundAmount(item.Price, r.Quantity, returnShippingFee)
				fee := returnShippingFee
				t.RefundAmount = &amount
				t.ReturnShippingFee = &fee
			}
		case ReturnTypeExchange:
			t.ReserveExchange = r.ExchangeSize != nil && *r.ExchangeSize != ""
		}
	case ReturnStatusCompleted:
		t.RestockOriginal = true
	}
	return t, nil
}

// Apply 把状态变更写入聚合
func (r *ReturnRequest) Apply(t ReturnTransition, now time.Time) {
	r.Status = t.To
	if t.RejectReason != "" {
		reason := t.RejectReason
		r.RejectReason = &reason
	}
	if t.TrackingNumber != "" {
		tn := t.TrackingNumber
		r.ReturnTrackingNumber = &tn
	}
	if t.RefundAmount != nil {
		r.RefundAmount = t.RefundAmount
		r.ReturnShippingFee = t.ReturnShippingFee
	}
	r.UpdatedAt = now
}

// RefundAmount 退款金额 = 单价 × 数量 − 退货运费，最低为 0
func RefundAmount(unitPrice int64, quantity int, returnShippingFee int64) int64 {
	amount := unitPrice*int64(quantity) - returnShippingFee
	if amount < 0 {
		return 0
	}
	return amount
}

// WithinReturnWindow 判断是否在退换货期限内；未记录送达时间时不限制。
func WithinReturnWindow(deliveredAt *time.Time, now time.Time, window time.Duration) bool {
	if deliveredAt == nil {
		return true
	}
	return now.Sub(*deliveredAt) <= window
}

// FormatRequestNumber 生成 RR-YYYYMMDD-NNNNss 格式申请号
func FormatRequestNumber(now time.Time, n, suffix int) string {
	return fmt.Sprintf("RR-%s-%04d%02d", now.In(storeLocation).Format("20060102"), n%10000, suffix%100)
}

// CreateReturnRequest 顾客提交退换货申请
type CreateReturnRequest struct {
	OrderNumber   string     `json:"orderNumber" binding:"required"`
	Phone         string     `json:"phone" binding:"required"`
	OrderItemID   int64      `json:"orderItemId" binding:"required,gt=0"`
	Type          ReturnType `json:"type" binding:"required,oneof=exchange return"`
	Reason        string     `json:"reason" binding:"required"`
	Quantity      int        `json:"quantity" binding:"omitempty,gte=0"`
	ExchangeSize  string     `json:"exchangeSize"`
	RefundBank    string     `json:"refundBank"`
	RefundAccount string     `json:"refundAccount"`
	RefundHolder  string     `json:"refundHolder"`
}

// CreateReturnResponse 申请结果
type CreateReturnResponse struct {
	RequestNumber string       `json:"requestNumber"`
	Status        ReturnStatus `json:"status"`
}

// UpdateReturnRequest 后台推进退换货状态或标记已退款
type UpdateReturnRequest struct {
	Status               string `json:"status"`
	RejectReason         string `json:"rejectReason"`
	ReturnTrackingNumber string `json:"returnTrackingNumber"`
	RefundCompleted      *bool  `json:"refundCompleted"`
}

// ReturnListRequest 退换货列表过滤条件
type ReturnListRequest struct {
	Status *ReturnStatus
}
