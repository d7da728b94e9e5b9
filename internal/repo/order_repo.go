package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MorseWayne/bp_store/internal/database"
	"github.com/MorseWayne/bp_store/internal/domain"
)

// OrderRepository 定义订单数据访问接口
type OrderRepository interface {
	// Create 在一个事务中写入订单和行项目，订单号冲突时返回 ErrDuplicateNumber
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	List(ctx context.Context, req *domain.OrderListRequest) ([]*domain.Order, error)

	// UpdateStatus 写入状态及其附带字段：运单号、送达时间、库存扣减标记
	UpdateStatus(ctx context.Context, order *domain.Order) error

	// ClearStockDeducted 原子清除库存扣减标记，仅当本次调用清除了标记时返回 true
	ClearStockDeducted(ctx context.Context, id int64) (bool, error)

	// Delete 物理删除订单，行项目和退换货申请由外键级联删除
	Delete(ctx context.Context, id int64) error
}

// orderRepo 实现OrderRepository接口
type orderRepo struct {
	db *sql.DB
}

// NewOrderRepository 创建订单仓储实例
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepo{db: db}
}

const orderColumns = `id, order_number, customer_name, customer_phone, customer_email, zipcode, address,
	address_detail, delivery_memo, payment_method, depositor_name, status, tracking_number, delivered_at,
	subtotal, shipping_fee, total_amount, stock_deducted, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var (
		o              domain.Order
		trackingNumber sql.NullString
		deliveredAt    sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail, &o.Zipcode, &o.Address,
		&o.AddressDetail, &o.DeliveryMemo, &o.PaymentMethod, &o.DepositorName, &o.Status, &trackingNumber, &deliveredAt,
		&o.Subtotal, &o.ShippingFee, &o.TotalAmount, &o.StockDeducted, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if trackingNumber.Valid {
		o.TrackingNumber = &trackingNumber.String
	}
	if deliveredAt.Valid {
		o.DeliveredAt = &deliveredAt.Time
	}
	return &o, nil
}

// Create 创建订单
func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO orders (order_number, customer_name, customer_phone, customer_email, zipcode, address,
				address_detail, delivery_memo, payment_method, depositor_name, status, subtotal, shipping_fee,
				total_amount, stock_deducted, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			order.OrderNumber, order.CustomerName, order.CustomerPhone, order.CustomerEmail, order.Zipcode, order.Address,
			order.AddressDetail, order.DeliveryMemo, order.PaymentMethod, order.DepositorName, order.Status, order.Subtotal,
			order.ShippingFee, order.TotalAmount, order.StockDeducted, order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			return err
		}
		orderID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, size, quantity, price)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare order item insert: %w", err)
		}
		defer stmt.Close()

		for _, item := range order.Items {
			res, err := stmt.ExecContext(ctx, orderID, item.ProductID, item.ProductName, item.Size, item.Quantity, item.Price)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
			if item.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to get order item id: %w", err)
			}
			item.OrderID = orderID
		}

		order.ID = orderID
		return nil
	})
	if database.IsDuplicateKey(err) {
		return ErrDuplicateNumber
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID 根据ID获取订单（含行项目）
func (r *orderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByNumber 根据订单号获取订单（含行项目）
func (r *orderRepo) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.getOne(ctx, "order_number = ?", orderNumber)
}

func (r *orderRepo) getOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// List 按创建时间倒序列出订单（含行项目）
func (r *orderRepo) List(ctx context.Context, req *domain.OrderListRequest) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if req != nil && req.Status != nil {
		query += " WHERE status = ?"
		args = append(args, *req.Status)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems 一次查询加载多个订单的行项目
func (r *orderRepo) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Order, len(orders))
	placeholders := make([]string, 0, len(orders))
	args := make([]any, 0, len(orders))
	for _, o := range orders {
		o.Items = []*domain.OrderItem{}
		byID[o.ID] = o
		placeholders = append(placeholders, "?")
		args = append(args, o.ID)
	}

	query := fmt.Sprintf(`
		SELECT id, order_id, product_id, product_name, size, quantity, price
		FROM order_items
		WHERE order_id IN (%s)
		ORDER BY id`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item      domain.OrderItem
			productID sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &productID, &item.ProductName, &item.Size, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if productID.Valid {
			item.ProductID = &productID.String
		}
		if o := byID[item.OrderID]; o != nil {
			o.Items = append(o.Items, &item)
		}
	}
	return rows.Err()
}

// UpdateStatus 更新订单状态
func (r *orderRepo) UpdateStatus(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = ?, tracking_number = ?, delivered_at = ?, stock_deducted = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		order.Status, order.TrackingNumber, order.DeliveredAt, order.StockDeducted, order.UpdatedAt, order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NotFound("order %d not found", order.ID)
	}
	return nil
}

// ClearStockDeducted 清除库存扣减标记，并发调用中只有一个会得到 true
func (r *orderRepo) ClearStockDeducted(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET stock_deducted = FALSE WHERE id = ? AND stock_deducted = TRUE`, id)
	if err != nil {
		return false, fmt.Errorf("failed to clear stock flag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

// Delete 删除订单
func (r *orderRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NotFound("order %d not found", id)
	}
	return nil
}
