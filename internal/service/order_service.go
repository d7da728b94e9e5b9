package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/domain"
	"github.com/MorseWayne/bp_store/internal/notify"
	"github.com/MorseWayne/bp_store/internal/repo"
)

// OrderService 定义订单业务逻辑接口
type OrderService interface {
	Create(ctx context.Context, req *domain.CreateOrderRequest) (*domain.CreateOrderResponse, error)
	List(ctx context.Context, req *domain.OrderListRequest) ([]*domain.Order, error)
	ChangeStatus(ctx context.Context, id int64, req *domain.ChangeOrderStatusRequest) (*domain.Order, error)
	Delete(ctx context.Context, id int64) error
	SendPaymentReminder(ctx context.Context, id int64) error
	Track(ctx context.Context, req *domain.TrackOrderRequest) (*domain.OrderDetail, error)
}

// orderService 实现OrderService接口
type orderService struct {
	orderRepo  repo.OrderRepository
	returnRepo repo.ReturnRepository
	inventory  InventoryService
	notifier   Notifier
	config     Config
	logger     *zap.Logger
	clock      clock
}

// NewOrderService 创建订单服务实例
func NewOrderService(
	orderRepo repo.OrderRepository,
	returnRepo repo.ReturnRepository,
	inventory InventoryService,
	notifier Notifier,
	config Config,
	logger *zap.Logger,
) OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &orderService{
		orderRepo:  orderRepo,
		returnRepo: returnRepo,
		inventory:  inventory,
		notifier:   notifier,
		config:     config,
		logger:     logger,
		clock:      defaultClock(),
	}
}

// Create 校验库存后创建待付款订单。此时不扣减库存，入金确认时才扣减。
func (s *orderService) Create(ctx context.Context, req *domain.CreateOrderRequest) (*domain.CreateOrderResponse, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	order := &domain.Order{
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Zipcode:       strings.TrimSpace(req.Zipcode),
		Address:       strings.TrimSpace(req.Address),
		AddressDetail: strings.TrimSpace(req.AddressDetail),
		DeliveryMemo:  strings.TrimSpace(req.DeliveryMemo),
		PaymentMethod: domain.PaymentMethodBankTransfer,
		DepositorName: strings.TrimSpace(req.DepositorName),
		Status:        domain.OrderStatusPendingPayment,
	}
	for _, it := range req.Items {
		item := &domain.OrderItem{
			ProductName: strings.TrimSpace(it.ProductName),
			Size:        strings.TrimSpace(it.Size),
			Quantity:    it.Quantity,
			Price:       it.Price,
		}
		if it.ProductID != nil && strings.TrimSpace(*it.ProductID) != "" {
			pid := strings.TrimSpace(*it.ProductID)
			item.ProductID = &pid
		}
		order.Items = append(order.Items, item)
		order.Subtotal += item.LineTotal()
	}

	check, err := s.inventory.CheckStock(ctx, order.StockItems())
	if err != nil {
		return nil, err
	}
	if !check.OK {
		return nil, domain.StockConflict(check.Message)
	}

	order.ShippingFee = domain.ShippingFeeFor(order.Subtotal, s.config.Policy.ShippingFee, s.config.Policy.FreeShippingThreshold)
	order.TotalAmount = order.Subtotal + order.ShippingFee

	now := s.clock.now()
	order.CreatedAt, order.UpdatedAt = now, now

	if err := s.createWithNumber(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total_amount", order.TotalAmount))

	s.notifyOrder(ctx, notify.EventOrderCreated, order, nil)

	return &domain.CreateOrderResponse{
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
		ShippingFee: order.ShippingFee,
	}, nil
}

// createWithNumber 生成订单号并写入，唯一键冲突时重新生成
func (s *orderService) createWithNumber(ctx context.Context, order *domain.Order) error {
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		order.OrderNumber = domain.FormatOrderNumber(order.CreatedAt, s.clock.intn(10000))
		err := s.orderRepo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repo.ErrDuplicateNumber) {
			return fmt.Errorf("failed to create order: %w", err)
		}
		s.logger.Warn("order number collision", zap.String("order_number", order.OrderNumber), zap.Int("attempt", attempt))
	}
	return domain.Conflict("could not allocate a unique order number, please retry")
}

func (s *orderService) validateCreateRequest(req *domain.CreateOrderRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return domain.Invalid("customerName is required")
	}
	if domain.NormalizePhone(req.CustomerPhone) == "" {
		return domain.Invalid("customerPhone is required")
	}
	if strings.TrimSpace(req.Address) == "" {
		return domain.Invalid("address is required")
	}
	if strings.TrimSpace(req.DepositorName) == "" {
		return domain.Invalid("depositorName is required")
	}
	if len(req.Items) == 0 {
		return domain.Invalid("at least one item is required")
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductName) == "" || strings.TrimSpace(item.Size) == "" {
			return domain.Invalid("items[%d]: productName and size are required", i)
		}
		if item.Quantity <= 0 {
			return domain.Invalid("items[%d]: quantity must be greater than 0", i)
		}
		if item.Price < 0 {
			return domain.Invalid("items[%d]: price cannot be negative", i)
		}
	}
	return nil
}

// List 订单列表，可按状态过滤
func (s *orderService) List(ctx context.Context, req *domain.OrderListRequest) ([]*domain.Order, error) {
	if req == nil {
		req = &domain.OrderListRequest{}
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, domain.Invalid("invalid order status %q", string(*req.Status))
	}
	orders, err := s.orderRepo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ChangeStatus 后台修改订单状态。首次进入已确认状态时扣减库存。
func (s *orderService) ChangeStatus(ctx context.Context, id int64, req *domain.ChangeOrderStatusRequest) (*domain.Order, error) {
	to, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, err
	}

	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	transition, err := domain.PlanOrderTransition(order, to, req.TrackingNumber)
	if err != nil {
		return nil, err
	}

	order.Apply(transition, s.clock.now())
	if err := s.orderRepo.UpdateStatus(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	logger := s.logger.With(zap.Int64("order_id", order.ID), zap.String("order_number", order.OrderNumber))
	logger.Info("order status changed",
		zap.String("from", string(transition.From)),
		zap.String("to", string(transition.To)),
		zap.Bool("deduct_stock", transition.DeductStock))

	// 状态已提交，扣减不随请求取消
	if transition.DeductStock {
		bg := context.WithoutCancel(ctx)
		for _, item := range order.StockItems() {
			if item.Tracked() {
				s.inventory.DecrementStock(bg, *item.ProductID, item.Size, item.Quantity)
			}
		}
	}

	// 不发送顾客通知时仍然发布领域事件
	channels := []notify.Channel{notify.ChannelEvent}
	if req.SendNotification {
		channels = nil
	}
	s.notifyOrder(ctx, notify.OrderStatusEvent(order.Status.Key()), order, channels)

	return order, nil
}

// Delete 删除订单；已扣减过库存的订单先回补库存。
// 回补前原子清除 stock_deducted 标记，删除失败后重试不会重复回补。
func (s *orderService) Delete(ctx context.Context, id int64) error {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return err
	}

	restored := false
	if order.StockDeducted {
		restored, err = s.orderRepo.ClearStockDeducted(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to clear stock flag: %w", err)
		}
	}

	if restored {
		bg := context.WithoutCancel(ctx)
		for _, item := range order.StockItems() {
			if !item.Tracked() {
				continue
			}
			if err := s.inventory.AdjustStock(bg, *item.ProductID, item.Size, item.Quantity); err != nil {
				s.logger.Error("failed to restore stock on order delete",
					zap.Int64("order_id", order.ID),
					zap.String("product_id", *item.ProductID),
					zap.String("size", item.Size),
					zap.Error(err))
			}
		}
	}

	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.logger.Info("order deleted",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Bool("stock_restored", restored))
	return nil
}

// SendPaymentReminder 向待付款订单的顾客发送催款邮件
func (s *orderService) SendPaymentReminder(ctx context.Context, id int64) error {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusPendingPayment {
		return domain.Invalid("payment reminder is only available for orders in %s", domain.OrderStatusPendingPayment)
	}
	if order.CustomerEmail == "" {
		return domain.Invalid("order has no customer email")
	}

	s.notifyOrder(ctx, notify.EventOrderPaymentReminder, order, []notify.Channel{notify.ChannelEmail})
	return nil
}

// Track 顾客凭订单号和手机号查询订单；两者不匹配时与订单不存在同样处理
func (s *orderService) Track(ctx context.Context, req *domain.TrackOrderRequest) (*domain.OrderDetail, error) {
	orderNumber := strings.TrimSpace(req.OrderNumber)
	if orderNumber == "" || domain.NormalizePhone(req.Phone) == "" {
		return nil, domain.Invalid("orderNumber and phone are required")
	}

	order, err := s.orderRepo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || !order.MatchesPhone(req.Phone) {
		return nil, domain.NotFound("order not found")
	}

	returns, err := s.returnRepo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list return requests: %w", err)
	}
	if returns == nil {
		returns = []*domain.ReturnRequest{}
	}
	return &domain.OrderDetail{Order: order, Returns: returns}, nil
}

func (s *orderService) getOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, domain.NotFound("order %d not found", id)
	}
	return order, nil
}

func (s *orderService) notifyOrder(ctx context.Context, event string, order *domain.Order, channels []notify.Channel) {
	if s.notifier == nil {
		return
	}
	data := s.config.templateData()
	data.Order = order
	s.notifier.Notify(ctx, notify.Event{
		Key:      event,
		Email:    order.CustomerEmail,
		Phone:    order.CustomerPhone,
		Channels: channels,
		Data:     data,
	})
}
