package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/domain"
	"github.com/MorseWayne/bp_store/internal/repo"
)

// InventoryService 定义库存业务逻辑接口
type InventoryService interface {
	// CheckStock 下单前校验库存，只读
	CheckStock(ctx context.Context, items []domain.StockItem) (*domain.StockCheckResult, error)

	// DecrementStock 尽力扣减库存，失败只记录日志
	DecrementStock(ctx context.Context, productID, size string, quantity int)

	// AdjustStock 按增量调整库存，正数补货、负数消耗
	AdjustStock(ctx context.Context, productID, size string, delta int) error

	// UpdateSize 管理员直接设置库存和/或状态
	UpdateSize(ctx context.Context, req *domain.UpdateSizeRequest) (*domain.ProductSize, error)

	// ListSizes 列出尺码库存，顺带修正过期的可售标记
	ListSizes(ctx context.Context, req *domain.SizeListRequest) ([]*domain.ProductSize, error)
}

// inventoryService 实现InventoryService接口
type inventoryService struct {
	sizeRepo repo.ProductSizeRepository
	logger   *zap.Logger
	clock    clock
}

// NewInventoryService 创建库存服务实例
func NewInventoryService(sizeRepo repo.ProductSizeRepository, logger *zap.Logger) InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inventoryService{
		sizeRepo: sizeRepo,
		logger:   logger,
		clock:    defaultClock(),
	}
}

// CheckStock 校验每个带商品 ID 的行项目，查不到库存条目的行视为不计库存
func (s *inventoryService) CheckStock(ctx context.Context, items []domain.StockItem) (*domain.StockCheckResult, error) {
	for _, item := range items {
		if !item.Tracked() {
			continue
		}
		entry, err := s.sizeRepo.Get(ctx, *item.ProductID, item.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to get size entry: %w", err)
		}
		if entry == nil {
			continue
		}

		switch {
		case entry.Status == domain.SizeStatusSoldOut, entry.Stock <= 0:
			return &domain.StockCheckResult{
				Message: fmt.Sprintf("%s (%s) is sold out", item.ProductName, item.Size),
			}, nil
		case item.Quantity > entry.Stock:
			return &domain.StockCheckResult{
				Message: fmt.Sprintf("%s (%s) has only %d left", item.ProductName, item.Size, entry.Stock),
			}, nil
		}
	}
	return &domain.StockCheckResult{OK: true}, nil
}

// DecrementStock 扣减库存；库存漂移由管理员手动修正，不阻塞调用方
func (s *inventoryService) DecrementStock(ctx context.Context, productID, size string, quantity int) {
	if quantity <= 0 {
		return
	}
	if err := s.AdjustStock(ctx, productID, size, -quantity); err != nil {
		s.logger.Error("failed to decrement stock",
			zap.String("product_id", productID),
			zap.String("size", size),
			zap.Int("quantity", quantity),
			zap.Error(err))
	}
}

// AdjustStock 原子调整库存，条目不存在时忽略
func (s *inventoryService) AdjustStock(ctx context.Context, productID, size string, delta int) error {
	if delta == 0 {
		return nil
	}
	found, err := s.sizeRepo.AdjustStock(ctx, productID, size, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if !found {
		s.logger.Debug("size entry not tracked, stock unchanged",
			zap.String("product_id", productID), zap.String("size", size), zap.Int("delta", delta))
		return nil
	}
	s.logger.Info("stock adjusted",
		zap.String("product_id", productID), zap.String("size", size), zap.Int("delta", delta))
	return nil
}

// UpdateSize 覆盖库存和状态，条目不存在时创建
func (s *inventoryService) UpdateSize(ctx context.Context, req *domain.UpdateSizeRequest) (*domain.ProductSize, error) {
	productID := strings.TrimSpace(req.ProductID)
	size := strings.TrimSpace(req.Size)
	if productID == "" || size == "" {
		return nil, domain.Invalid("productId and size are required")
	}
	if req.Status == nil && req.Stock == nil {
		return nil, domain.Invalid("status or stock is required")
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, domain.Invalid("invalid size status %q", string(*req.Status))
	}
	if req.Stock != nil && *req.Stock < 0 {
		return nil, domain.Invalid("stock cannot be negative")
	}

	entry, err := s.sizeRepo.Get(ctx, productID, size)
	if err != nil {
		return nil, fmt.Errorf("failed to get size entry: %w", err)
	}
	if entry == nil {
		entry = &domain.ProductSize{ProductID: productID, Size: size, Status: domain.SizeStatusAvailable}
	}

	entry.Override(req.Stock, req.Status)
	entry.UpdatedAt = s.clock.now()

	if err := s.sizeRepo.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save size entry: %w", err)
	}
	return entry, nil
}

// ListSizes 读取库存列表；库存为 0 却标记可售的条目在返回前修正并回写
func (s *inventoryService) ListSizes(ctx context.Context, req *domain.SizeListRequest) ([]*domain.ProductSize, error) {
	var productID *string
	if req != nil && req.ProductID != nil && *req.ProductID != "" {
		productID = req.ProductID
	}

	entries, err := s.sizeRepo.List(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sizes: %w", err)
	}

	healed := false
	for _, entry := range entries {
		if entry.Heal() {
			healed = true
		}
	}
	if healed {
		if n, err := s.sizeRepo.HealSoldOut(ctx, productID); err != nil {
			s.logger.Warn("failed to persist sold out correction", zap.Error(err))
		} else {
			s.logger.Info("stale available sizes corrected", zap.Int64("rows", n))
		}
	}
	return entries, nil
}
