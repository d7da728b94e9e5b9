// Package repo 实现 MySQL 数据访问层。查询不到记录时返回 (nil, nil)。
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MorseWayne/bp_store/internal/domain"
)

// ErrDuplicateNumber 订单号或申请号唯一键冲突，调用方可重新生成后重试
var ErrDuplicateNumber = errors.New("duplicate number")

// ErrActiveRequest 同一行项目已有进行中的退换货申请
var ErrActiveRequest = errors.New("active request exists")

// ProductSizeRepository 定义尺码库存数据访问接口
type ProductSizeRepository interface {
	Get(ctx context.Context, productID, size string) (*domain.ProductSize, error)
	List(ctx context.Context, productID *string) ([]*domain.ProductSize, error)

	// AdjustStock 在单条 UPDATE 中完成库存增减和状态修正，条目不存在时返回 false
	AdjustStock(ctx context.Context, productID, size string, delta int) (bool, error)

	// Upsert 写入管理员设置的库存和状态
	Upsert(ctx context.Context, entry *domain.ProductSize) error

	// HealSoldOut 把库存为 0 却标记为可售的条目改为售罄，productID 为空时处理全部
	HealSoldOut(ctx context.Context, productID *string) (int64, error)
}

// productSizeRepo 实现ProductSizeRepository接口
type productSizeRepo struct {
	db *sql.DB
}

// NewProductSizeRepository 创建尺码库存仓储实例
func NewProductSizeRepository(db *sql.DB) ProductSizeRepository {
	return &productSizeRepo{db: db}
}

const productSizeColumns = `product_id, size, stock, status, updated_at`

func scanProductSize(row interface{ Scan(...any) error }) (*domain.ProductSize, error) {
	entry := &domain.ProductSize{}
	if err := row.Scan(&entry.ProductID, &entry.Size, &entry.Stock, &entry.Status, &entry.UpdatedAt); err != nil {
		return nil, err
	}
	return entry, nil
}

// Get 获取单个尺码条目
func (r *productSizeRepo) Get(ctx context.Context, productID, size string) (*domain.ProductSize, error) {
	query := `SELECT ` + productSizeColumns + ` FROM product_sizes WHERE product_id = ? AND size = ?`

	entry, err := scanProductSize(r.db.QueryRowContext(ctx, query, productID, size))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product size: %w", err)
	}
	return entry, nil
}

// List 列出尺码条目，可按商品过滤
func (r *productSizeRepo) List(ctx context.Context, productID *string) ([]*domain.ProductSize, error) {
	var (
		where []string
		args  []any
	)
	if productID != nil && *productID != "" {
		where = append(where, "product_id = ?")
		args = append(args, *productID)
	}

	query := `SELECT ` + productSizeColumns + ` FROM product_sizes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY product_id, size"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list product sizes: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ProductSize
	for rows.Next() {
		entry, err := scanProductSize(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product size: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product sizes: %w", err)
	}
	return entries, nil
}

// adjustStockQuery 原子调整库存。
// MySQL 按书写顺序执行 SET，status 先于 stock 计算，因此 CASE 中看到的是调整前的 stock。
// 规则与 domain.ProductSize.ApplyDelta 一致。
const adjustStockQuery = `
	UPDATE product_sizes
	SET status = CASE
			WHEN status = 'delayed' THEN status
			WHEN GREATEST(stock + ?, 0) = 0 THEN 'sold_out'
			WHEN status = 'sold_out' AND ? > 0 THEN 'available'
			ELSE status
		END,
		stock = GREATEST(stock + ?, 0)
	WHERE product_id = ? AND size = ?
`

// AdjustStock 原子调整库存，条目不存在时返回 false
func (r *productSizeRepo) AdjustStock(ctx context.Context, productID, size string, delta int) (bool, error) {
	result, err := r.db.ExecContext(ctx, adjustStockQuery, delta, delta, delta, productID, size)
	if err != nil {
		return false, fmt.Errorf("failed to adjust stock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

// Upsert 写入或覆盖尺码条目
func (r *productSizeRepo) Upsert(ctx context.Context, entry *domain.ProductSize) error {
	query := `
		INSERT INTO product_sizes (product_id, size, stock, status)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE stock = VALUES(stock), status = VALUES(status)
	`

	if _, err := r.db.ExecContext(ctx, query, entry.ProductID, entry.Size, entry.Stock, entry.Status); err != nil {
		return fmt.Errorf("failed to upsert product size: %w", err)
	}
	return nil
}

// HealSoldOut 持久化售罄修正
func (r *productSizeRepo) HealSoldOut(ctx context.Context, productID *string) (int64, error) {
	query := `UPDATE product_sizes SET status = 'sold_out' WHERE stock <= 0 AND status = 'available'`
	var args []any
	if productID != nil && *productID != "" {
		query += " AND product_id = ?"
		args = append(args, *productID)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to heal sold out sizes: %w", err)
	}
	return result.RowsAffected()
}
