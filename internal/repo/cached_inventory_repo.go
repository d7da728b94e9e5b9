package repo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/cache"
	"github.com/MorseWayne/bp_store/internal/domain"
)

// CachedProductSizeRepository 带缓存的尺码库存仓储。
// 只缓存列表读取；任何写操作都会清除相关商品和全量列表的缓存。
type CachedProductSizeRepository struct {
	repo   ProductSizeRepository
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProductSizeRepository 创建带缓存的尺码库存仓储
func NewCachedProductSizeRepository(repo ProductSizeRepository, c cache.Cache, ttl time.Duration, logger *zap.Logger) ProductSizeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProductSizeRepository{repo: repo, cache: c, ttl: ttl, logger: logger}
}

// Get 直接读库，下单校验需要最新库存
func (r *CachedProductSizeRepository) Get(ctx context.Context, productID, size string) (*domain.ProductSize, error) {
	return r.repo.Get(ctx, productID, size)
}

// List 列出尺码条目（带缓存）
func (r *CachedProductSizeRepository) List(ctx context.Context, productID *string) ([]*domain.ProductSize, error) {
	key := r.listCacheKey(productID)

	var entries []*domain.ProductSize
	if err := r.cache.Get(ctx, key, &entries); err == nil {
		return entries, nil
	}

	entries, err := r.repo.List(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, entries, r.ttl); err != nil {
		r.logger.Warn("failed to cache product sizes", zap.String("key", key), zap.Error(err))
	}
	return entries, nil
}

// AdjustStock 调整库存（清除相关缓存）
func (r *CachedProductSizeRepository) AdjustStock(ctx context.Context, productID, size string, delta int) (bool, error) {
	found, err := r.repo.AdjustStock(ctx, productID, size, delta)
	if err != nil {
		return false, err
	}
	if found {
		r.invalidate(ctx, &productID)
	}
	return found, nil
}

// Upsert 写入尺码条目（清除相关缓存）
func (r *CachedProductSizeRepository) Upsert(ctx context.Context, entry *domain.ProductSize) error {
	if err := r.repo.Upsert(ctx, entry); err != nil {
		return err
	}
	r.invalidate(ctx, &entry.ProductID)
	return nil
}

// HealSoldOut 持久化售罄修正（有修正时清除缓存）
func (r *CachedProductSizeRepository) HealSoldOut(ctx context.Context, productID *string) (int64, error) {
	n, err := r.repo.HealSoldOut(ctx, productID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.invalidate(ctx, productID)
	}
	return n, nil
}

func (r *CachedProductSizeRepository) invalidate(ctx context.Context, productID *string) {
	keys := []string{r.listCacheKey(nil)}
	if productID != nil && *productID != "" {
		keys = append(keys, r.listCacheKey(productID))
	}
	if err := r.cache.Del(ctx, keys...); err != nil {
		r.logger.Warn("failed to invalidate product size cache", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (r *CachedProductSizeRepository) listCacheKey(productID *string) string {
	if productID == nil || *productID == "" {
		return "product_sizes:all"
	}
	return "product_sizes:" + *productID
}
