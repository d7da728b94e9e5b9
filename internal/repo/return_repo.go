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

// ReturnRepository 定义退换货申请数据访问接口
type ReturnRepository interface {
	// Create 写入申请，申请号冲突时返回 ErrDuplicateNumber，
	// 同一行项目已有进行中申请时返回 ErrActiveRequest
	Create(ctx context.Context, req *domain.ReturnRequest) error
	GetByID(ctx context.Context, id int64) (*domain.ReturnRequest, error)
	List(ctx context.Context, req *domain.ReturnListRequest) ([]*domain.ReturnRequest, error)
	ListByOrder(ctx context.Context, orderID int64) ([]*domain.ReturnRequest, error)

	// HasActive 判断行项目是否存在未结束的申请
	HasActive(ctx context.Context, orderItemID int64) (bool, error)

	// Update 写入状态、拒绝原因、回寄运单号、退款金额和退款完成标记
	Update(ctx context.Context, req *domain.ReturnRequest) error
	Delete(ctx context.Context, id int64) error
}

// returnRepo 实现ReturnRepository接口
type returnRepo struct {
	db *sql.DB
}

// NewReturnRepository 创建退换货仓储实例
func NewReturnRepository(db *sql.DB) ReturnRepository {
	return &returnRepo{db: db}
}

const returnSelect = `
	SELECT rr.id, rr.request_number, rr.order_id, rr.order_item_id, rr.type, rr.reason, rr.status, rr.quantity,
		rr.exchange_size, rr.refund_bank, rr.refund_account, rr.refund_holder, rr.refund_amount,
		rr.return_shipping_fee, rr.refund_completed, rr.return_tracking_number, rr.reject_reason,
		rr.created_at, rr.updated_at,
		o.order_number, o.customer_name, oi.product_name, oi.size
	FROM return_requests rr
	JOIN orders o ON o.id = rr.order_id
	JOIN order_items oi ON oi.id = rr.order_item_id`

func scanReturn(row interface{ Scan(...any) error }) (*domain.ReturnRequest, error) {
	var (
		rr                                                      domain.ReturnRequest
		exchangeSize, bank, account, holder, tracking, rejected sql.NullString
		refundAmount, shippingFee                               sql.NullInt64
	)
	err := row.Scan(
		&rr.ID, &rr.RequestNumber, &rr.OrderID, &rr.OrderItemID, &rr.Type, &rr.Reason, &rr.Status, &rr.Quantity,
		&exchangeSize, &bank, &account, &holder, &refundAmount,
		&shippingFee, &rr.RefundCompleted, &tracking, &rejected,
		&rr.CreatedAt, &rr.UpdatedAt,
		&rr.OrderNumber, &rr.CustomerName, &rr.ProductName, &rr.OriginalSize,
	)
	if err != nil {
		return nil, err
	}
	rr.ExchangeSize = nullString(exchangeSize)
	rr.RefundBank = nullString(bank)
	rr.RefundAccount = nullString(account)
	rr.RefundHolder = nullString(holder)
	rr.ReturnTrackingNumber = nullString(tracking)
	rr.RejectReason = nullString(rejected)
	if refundAmount.Valid {
		rr.RefundAmount = &refundAmount.Int64
	}
	if shippingFee.Valid {
		rr.ReturnShippingFee = &shippingFee.Int64
	}
	return &rr, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// activeItemKey 生成列 active_item_id 上的唯一键，终态申请该列为 NULL
const activeItemKey = "uk_return_requests_active_item"

// Create 创建退换货申请
func (r *returnRepo) Create(ctx context.Context, req *domain.ReturnRequest) error {
	query := `
		INSERT INTO return_requests (request_number, order_id, order_item_id, type, reason, status, quantity,
			exchange_size, refund_bank, refund_account, refund_holder, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		req.RequestNumber, req.OrderID, req.OrderItemID, req.Type, req.Reason, req.Status, req.Quantity,
		req.ExchangeSize, req.RefundBank, req.RefundAccount, req.RefundHolder, req.CreatedAt, req.UpdatedAt,
	)
	if database.IsDuplicateKeyOn(err, activeItemKey) {
		return ErrActiveRequest
	}
	if database.IsDuplicateKey(err) {
		return ErrDuplicateNumber
	}
	if err != nil {
		return fmt.Errorf("failed to create return request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	req.ID = id
	return nil
}

// GetByID 根据ID获取申请
func (r *returnRepo) GetByID(ctx context.Context, id int64) (*domain.ReturnRequest, error) {
	rr, err := scanReturn(r.db.QueryRowContext(ctx, returnSelect+` WHERE rr.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get return request: %w", err)
	}
	return rr, nil
}

// List 按创建时间倒序列出申请，可按状态过滤
func (r *returnRepo) List(ctx context.Context, req *domain.ReturnListRequest) ([]*domain.ReturnRequest, error) {
	var (
		where []string
		args  []any
	)
	if req != nil && req.Status != nil {
		where = append(where, "rr.status = ?")
		args = append(args, *req.Status)
	}

	query := returnSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rr.created_at DESC, rr.id DESC"
	return r.query(ctx, query, args...)
}

// ListByOrder 列出订单下的所有申请
func (r *returnRepo) ListByOrder(ctx context.Context, orderID int64) ([]*domain.ReturnRequest, error) {
	return r.query(ctx, returnSelect+` WHERE rr.order_id = ? ORDER BY rr.created_at DESC, rr.id DESC`, orderID)
}

func (r *returnRepo) query(ctx context.Context, query string, args ...any) ([]*domain.ReturnRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list return requests: %w", err)
	}
	defer rows.Close()

	requests := []*domain.ReturnRequest{}
	for rows.Next() {
		rr, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan return request: %w", err)
		}
		requests = append(requests, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate return requests: %w", err)
	}
	return requests, nil
}

// HasActive 判断行项目是否存在未结束的申请
func (r *returnRepo) HasActive(ctx context.Context, orderItemID int64) (bool, error) {
	active := domain.ActiveReturnStatuses()
	placeholders := make([]string, len(active))
	args := []any{orderItemID}
	for i, s := range active {
		placeholders[i] = "?"
		args = append(args, s)
	}

	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM return_requests WHERE order_item_id = ? AND status IN (%s))`,
		strings.Join(placeholders, ","))

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check active return request: %w", err)
	}
	return exists, nil
}

// Update 更新申请
func (r *returnRepo) Update(ctx context.Context, req *domain.ReturnRequest) error {
	query := `
		UPDATE return_requests
		SET status = ?, reject_reason = ?, return_tracking_number = ?, refund_amount = ?,
			return_shipping_fee = ?, refund_completed = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		req.Status, req.RejectReason, req.ReturnTrackingNumber, req.RefundAmount,
		req.ReturnShippingFee, req.RefundCompleted, req.UpdatedAt, req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update return request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NotFound("return request %d not found", req.ID)
	}
	return nil
}

// Delete 删除申请，不回滚已发生的库存变动
func (r *returnRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM return_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete return request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NotFound("return request %d not found", id)
	}
	return nil
}
