package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/domain"
	"github.com/MorseWayne/bp_store/internal/resp"
	"github.com/MorseWayne/bp_store/internal/service"
)

// OrderHandler 订单相关的HTTP处理器
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler 创建订单处理器实例
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{orderService: orderService, logger: logger}
}

// CreateOrder 下单
// POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req domain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	result, err := h.orderService.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err, "create order")
		return
	}
	resp.Created(c.Writer, result, requestID(c), "")
}

// ListOrders 订单列表
// GET /orders?status=
// 需要管理员权限
func (h *OrderHandler) ListOrders(c *gin.Context) {
	req := &domain.OrderListRequest{}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := domain.ParseOrderStatus(raw)
		if err != nil {
			writeError(c, h.logger, err, "list orders")
			return
		}
		req.Status = &status
	}

	orders, err := h.orderService.List(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err, "list orders")
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	resp.OK(c.Writer, orders, requestID(c), "")
}

// ChangeStatus 修改订单状态
// PATCH /orders/{id}
// 需要管理员权限
func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req domain.ChangeOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	order, err := h.orderService.ChangeStatus(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, h.logger, err, "change order status")
		return
	}
	resp.OK(c.Writer, order, requestID(c), "")
}

// DeleteOrder 删除订单，必要时回补库存
// DELETE /orders/{id}
// 需要管理员权限
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.orderService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err, "delete order")
		return
	}
	resp.OK(c.Writer, gin.H{"deleted": true}, requestID(c), "")
}

// SendPaymentReminder 发送催款邮件
// POST /orders/{id}
// 需要管理员权限
func (h *OrderHandler) SendPaymentReminder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.orderService.SendPaymentReminder(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err, "send payment reminder")
		return
	}
	resp.WriteJSON(c.Writer, http.StatusAccepted, resp.CodeOK, "success", gin.H{"queued": true}, requestID(c), "")
}

// TrackOrder 顾客凭订单号和手机号查询订单
// POST /orders/track
func (h *OrderHandler) TrackOrder(c *gin.Context) {
	var req domain.TrackOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	detail, err := h.orderService.Track(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err, "track order")
		return
	}
	resp.OK(c.Writer, detail, requestID(c), "")
}
