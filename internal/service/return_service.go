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

// ReturnService 定义退换货业务逻辑接口
type ReturnService interface {
	Create(ctx context.Context, req *domain.CreateReturnRequest) (*domain.CreateReturnResponse, error)
	List(ctx context.Context, req *domain.ReturnListRequest) ([]*domain.ReturnRequest, error)

	// Update 推进状态和/或标记退款完成
	Update(ctx context.Context, id int64, req *domain.UpdateReturnRequest) (*domain.ReturnRequest, error)

	// Delete 物理删除，不回滚已发生的库存变动
	Delete(ctx context.Context, id int64) error
}

// returnService 实现ReturnService接口
type returnService struct {
	returnRepo repo.ReturnRepository
	orderRepo  repo.OrderRepository
	inventory  InventoryService
	notifier   Notifier
	config     Config
	logger     *zap.Logger
	clock      clock
}

// NewReturnService 创建退换货服务实例
func NewReturnService(
	returnRepo repo.ReturnRepository,
	orderRepo repo.OrderRepository,
	inventory InventoryService,
	notifier Notifier,
	config Config,
	logger *zap.Logger,
) ReturnService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &returnService{
		returnRepo: returnRepo,
		orderRepo:  orderRepo,
		inventory:  inventory,
		notifier:   notifier,
		config:     config,
		logger:     logger,
		clock:      defaultClock(),
	}
}

// Create 顾客提交退换货申请
func (s *returnService) Create(ctx context.Context, req *domain.CreateReturnRequest) (*domain.CreateReturnResponse, error) {
	if !req.Type.Valid() {
		return nil, domain.Invalid("invalid request type %q", string(req.Type))
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, domain.Invalid("reason is required")
	}

	order, err := s.orderRepo.GetByNumber(ctx, strings.TrimSpace(req.OrderNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || !order.MatchesPhone(req.Phone) {
		return nil, domain.NotFound("order not found")
	}

	now := s.clock.now()
	if order.Status != domain.OrderStatusDelivered {
		return nil, domain.Invalid("returns and exchanges are only available for delivered orders")
	}
	if !domain.WithinReturnWindow(order.DeliveredAt, now, s.config.Policy.ReturnWindow()) {
		return nil, domain.Invalid("the %d-day return window has passed", s.config.Policy.ReturnWindowDays)
	}

	item := order.ItemByID(req.OrderItemID)
	if item == nil {
		return nil, domain.Invalid("order item %d does not belong to order %s", req.OrderItemID, order.OrderNumber)
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = item.Quantity
	}
	if quantity < 1 || quantity > item.Quantity {
		return nil, domain.Invalid("quantity must be between 1 and %d", item.Quantity)
	}

	rr := &domain.ReturnRequest{
		OrderID:     order.ID,
		OrderItemID: item.ID,
		Type:        req.Type,
		Reason:      reason,
		Status:      domain.ReturnStatusReceived,
		Quantity:    quantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := applyTypeFields(rr, req); err != nil {
		return nil, err
	}

	// 预检只为尽早返回，并发提交由 active_item_id 唯一键兜底
	active, err := s.returnRepo.HasActive(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active return requests: %w", err)
	}
	if active {
		return nil, errActiveRequest()
	}

	if err := s.createWithNumber(ctx, rr); err != nil {
		return nil, err
	}

	rr.OrderNumber = order.OrderNumber
	rr.CustomerName = order.CustomerName
	rr.ProductName = item.ProductName
	rr.OriginalSize = item.Size

	s.logger.Info("return request created",
		zap.Int64("return_id", rr.ID),
		zap.String("request_number", rr.RequestNumber),
		zap.String("order_number", order.OrderNumber),
		zap.String("type", string(rr.Type)))

	s.notifyReturn(ctx, notify.EventReturnCreated, order, rr)

	return &domain.CreateReturnResponse{RequestNumber: rr.RequestNumber, Status: rr.Status}, nil
}

// applyTypeFields 换货必须指定新尺码（可与原尺码相同），退货必须提供退款账户
func applyTypeFields(rr *domain.ReturnRequest, req *domain.CreateReturnRequest) error {
	switch req.Type {
	case domain.ReturnTypeExchange:
		size := strings.TrimSpace(req.ExchangeSize)
		if size == "" {
			return domain.Invalid("exchangeSize is required for exchanges")
		}
		rr.ExchangeSize = &size
	case domain.ReturnTypeReturn:
		bank := strings.TrimSpace(req.RefundBank)
		account := strings.TrimSpace(req.RefundAccount)
		holder := strings.TrimSpace(req.RefundHolder)
		if bank == "" || account == "" || holder == "" {
			return domain.Invalid("refundBank, refundAccount and refundHolder are required for returns")
		}
		rr.RefundBank, rr.RefundAccount, rr.RefundHolder = &bank, &account, &holder
	}
	return nil
}

func errActiveRequest() error {
	return domain.Invalid("an active return or exchange request already exists for this item")
}

func (s *returnService) createWithNumber(ctx context.Context, rr *domain.ReturnRequest) error {
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		rr.RequestNumber = domain.FormatRequestNumber(rr.CreatedAt, s.clock.intn(10000), s.clock.intn(100))
		err := s.returnRepo.Create(ctx, rr)
		if err == nil {
			return nil
		}
		if errors.Is(err, repo.ErrActiveRequest) {
			return errActiveRequest()
		}
		if !errors.Is(err, repo.ErrDuplicateNumber) {
			return fmt.Errorf("failed to create return request: %w", err)
		}
		s.logger.Warn("request number collision", zap.String("request_number", rr.RequestNumber), zap.Int("attempt", attempt))
	}
	return domain.Conflict("could not allocate a unique request number, please retry")
}

// List 申请列表，可按状态过滤
func (s *returnService) List(ctx context.Context, req *domain.ReturnListRequest) ([]*domain.ReturnRequest, error) {
	if req == nil {
		req = &domain.ReturnListRequest{}
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, domain.Invalid("invalid return status %q", string(*req.Status))
	}
	list, err := s.returnRepo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list return requests: %w", err)
	}
	return list, nil
}

// Update 按迁移表推进状态，成功后执行库存副作用并通知顾客
func (s *returnService) Update(ctx context.Context, id int64, req *domain.UpdateReturnRequest) (*domain.ReturnRequest, error) {
	if strings.TrimSpace(req.Status) == "" && req.RefundCompleted == nil {
		return nil, domain.Invalid("status or refundCompleted is required")
	}

	rr, err := s.returnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get return request: %w", err)
	}
	if rr == nil {
		return nil, domain.NotFound("return request %d not found", id)
	}

	var (
		transition *domain.ReturnTransition
		order      *domain.Order
		item       *domain.OrderItem
	)
	now := s.clock.now()

	if strings.TrimSpace(req.Status) != "" {
		to, err := domain.ParseReturnStatus(req.Status)
		if err != nil {
			return nil, err
		}
		order, err = s.orderRepo.GetByID(ctx, rr.OrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to get order: %w", err)
		}
		if order != nil {
			item = order.ItemByID(rr.OrderItemID)
		}

		t, err := rr.PlanTransition(domain.ReturnTransitionInput{
			To:             to,
			RejectReason:   req.RejectReason,
			TrackingNumber: req.ReturnTrackingNumber,
		}, item, s.config.Policy.ReturnShippingFee)
		if err != nil {
			return nil, err
		}
		rr.Apply(t, now)
		transition = &t
	}

	if req.RefundCompleted != nil {
		rr.RefundCompleted = *req.RefundCompleted
		rr.UpdatedAt = now
	}

	if err := s.returnRepo.Update(ctx, rr); err != nil {
		return nil, fmt.Errorf("failed to update return request: %w", err)
	}

	if transition == nil {
		s.logger.Info("return refund flag updated", zap.Int64("return_id", rr.ID), zap.Bool("refund_completed", rr.RefundCompleted))
		return rr, nil
	}

	s.logger.Info("return request status changed",
		zap.Int64("return_id", rr.ID),
		zap.String("request_number", rr.RequestNumber),
		zap.String("from", string(transition.From)),
		zap.String("to", string(transition.To)))

	s.applyInventory(ctx, rr, item, *transition)

	if order != nil {
		s.notifyReturn(ctx, notify.ReturnStatusEvent(rr.Status.Key()), order, rr)
	}
	return rr, nil
}

// applyInventory 批准换货时预留新尺码，完成时回补原尺码。
// 状态已提交，请求取消后库存仍须落地。
func (s *returnService) applyInventory(ctx context.Context, rr *domain.ReturnRequest, item *domain.OrderItem, t domain.ReturnTransition) {
	if item == nil || item.ProductID == nil || *item.ProductID == "" {
		return
	}
	productID := *item.ProductID
	ctx = context.WithoutCancel(ctx)

	if t.ReserveExchange {
		s.inventory.DecrementStock(ctx, productID, *rr.ExchangeSize, rr.Quantity)
	}
	if t.RestockOriginal {
		if err := s.inventory.AdjustStock(ctx, productID, item.Size, rr.Quantity); err != nil {
			s.logger.Error("failed to restock original size",
				zap.Int64("return_id", rr.ID),
				zap.String("product_id", productID),
				zap.String("size", item.Size),
				zap.Error(err))
		}
	}
}

// Delete 删除申请
func (s *returnService) Delete(ctx context.Context, id int64) error {
	rr, err := s.returnRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get return request: %w", err)
	}
	if rr == nil {
		return domain.NotFound("return request %d not found", id)
	}
	if err := s.returnRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete return request: %w", err)
	}
	s.logger.Info("return request deleted",
		zap.Int64("return_id", id),
		zap.String("request_number", rr.RequestNumber),
		zap.String("status", string(rr.Status)))
	return nil
}

func (s *returnService) notifyReturn(ctx context.Context, event string, order *domain.Order, rr *domain.ReturnRequest) {
	if s.notifier == nil {
		return
	}
	data := s.config.templateData()
	data.Order = order
	data.Return = rr
	s.notifier.Notify(ctx, notify.Event{
		Key:   event,
		Email: order.CustomerEmail,
		Phone: order.CustomerPhone,
		Data:  data,
	})
}
