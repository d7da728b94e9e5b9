package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// PaymentMethodBankTransfer 唯一支持的支付方式：无通帐入金
const PaymentMethodBankTransfer = "bank_transfer"

// storeLocation 订单号、申请号中的日期按门店所在时区计算
var storeLocation = time.FixedZone("KST", 9*60*60)

// Order 订单聚合根
type Order struct {
	ID             int64        `json:"id"`
	OrderNumber    string       `json:"orderNumber"`
	CustomerName   string       `json:"customerName"`
	CustomerPhone  string       `json:"customerPhone"`
	CustomerEmail  string       `json:"customerEmail,omitempty"`
	Zipcode        string       `json:"zipcode,omitempty"`
	Address        string       `json:"address"`
	AddressDetail  string       `json:"addressDetail,omitempty"`
	DeliveryMemo   string       `json:"deliveryMemo,omitempty"`
	PaymentMethod  string       `json:"paymentMethod"`
	DepositorName  string       `json:"depositorName"`
	Status         OrderStatus  `json:"status"`
	TrackingNumber *string      `json:"trackingNumber"`
	DeliveredAt    *time.Time   `json:"deliveredAt"`
	Subtotal       int64        `json:"subtotal"`
	ShippingFee    int64        `json:"shippingFee"`
	TotalAmount    int64        `json:"totalAmount"`
	StockDeducted  bool         `json:"stockDeducted"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	Items          []*OrderItem `json:"items"`
}

// OrderItem 订单行项目，价格为下单时的单价快照
type OrderItem struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"orderId"`
	ProductID   *string `json:"productId"`
	ProductName string  `json:"productName"`
	Size        string  `json:"size"`
	Quantity    int     `json:"quantity"`
	Price       int64   `json:"price"`
}

// LineTotal 行小计
func (i *OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// StockItem 转换为库存行
func (i *OrderItem) StockItem() StockItem {
	return StockItem{ProductID: i.ProductID, ProductName: i.ProductName, Size: i.Size, Quantity: i.Quantity}
}

// ItemByID 查找订单内的行项目
func (o *Order) ItemByID(id int64) *OrderItem {
	for _, item := range o.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// StockItems 返回订单所有行项目对应的库存行
func (o *Order) StockItems() []StockItem {
	items := make([]StockItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, item.StockItem())
	}
	return items
}

// Apply 把状态变更写入聚合
func (o *Order) Apply(t OrderTransition, now time.Time) {
	o.Status = t.To
	if t.DeductStock {
		o.StockDeducted = true
	}
	if t.TrackingNumber != "" {
		tn := t.TrackingNumber
		o.TrackingNumber = &tn
	}
	if t.StampDelivered {
		at := now
		o.DeliveredAt = &at
	}
	o.UpdatedAt = now
}

// MatchesPhone 判断手机号是否与下单时一致（忽略分隔符）
func (o *Order) MatchesPhone(phone string) bool {
	normalized := NormalizePhone(phone)
	return normalized != "" && normalized == NormalizePhone(o.CustomerPhone)
}

// NormalizePhone 去掉手机号中的非数字字符
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
}

// ShippingFeeFor 按满额包邮策略计算运费
func ShippingFeeFor(subtotal, fee, freeThreshold int64) int64 {
	if freeThreshold > 0 && subtotal >= freeThreshold {
		return 0
	}
	return fee
}

// FormatOrderNumber 生成 BP-YYYYMMDD-NNNN 格式订单号
func FormatOrderNumber(now time.Time, n int) string {
	return fmt.Sprintf("BP-%s-%04d", now.In(storeLocation).Format("20060102"), n%10000)
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	CustomerName  string                   `json:"customerName" binding:"required"`
	CustomerPhone string                   `json:"customerPhone" binding:"required"`
	CustomerEmail string                   `json:"customerEmail" binding:"omitempty,email"`
	Zipcode       string                   `json:"zipcode"`
	Address       string                   `json:"address" binding:"required"`
	AddressDetail string                   `json:"addressDetail"`
	DeliveryMemo  string                   `json:"deliveryMemo"`
	DepositorName string                   `json:"depositorName" binding:"required"`
	Items         []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreateOrderItemRequest 下单行项目
type CreateOrderItemRequest struct {
	ProductID   *string `json:"productId"`
	ProductName string  `json:"productName" binding:"required"`
	Size        string  `json:"size" binding:"required"`
	Quantity    int     `json:"quantity" binding:"required,gt=0"`
	Price       int64   `json:"price" binding:"gte=0"`
}

// CreateOrderResponse 下单结果
type CreateOrderResponse struct {
	OrderNumber string `json:"orderNumber"`
	TotalAmount int64  `json:"totalAmount"`
	ShippingFee int64  `json:"shippingFee"`
}

// ChangeOrderStatusRequest 后台修改订单状态
type ChangeOrderStatusRequest struct {
	Status           string `json:"status" binding:"required"`
	SendNotification bool   `json:"sendNotification"`
	TrackingNumber   string `json:"trackingNumber"`
}

// TrackOrderRequest 顾客凭订单号和手机号查询订单
type TrackOrderRequest struct {
	OrderNumber string `json:"orderNumber" binding:"required"`
	Phone       string `json:"phone" binding:"required"`
}

// OrderListRequest 订单列表过滤条件
type OrderListRequest struct {
	Status *OrderStatus
}

// OrderDetail 顾客查询结果：订单及其退换货申请
type OrderDetail struct {
	*Order
	Returns []*ReturnRequest `json:"returns"`
}
