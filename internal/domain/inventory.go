package domain

import (
	"time"
)

// SizeStatus 定义尺码的销售状态
type SizeStatus string

const (
	SizeStatusAvailable SizeStatus = "available" // 可售
	SizeStatusSoldOut   SizeStatus = "sold_out"  // 售罄
	SizeStatusDelayed   SizeStatus = "delayed"   // 延迟发货，仅由管理员手动设置和清除
)

// Valid 判断状态值是否合法
func (s SizeStatus) Valid() bool {
	switch s {
	case SizeStatusAvailable, SizeStatusSoldOut, SizeStatusDelayed:
		return true
	}
	return false
}

// ProductSize 表示 (商品, 尺码) 维度的库存条目
type ProductSize struct {
	ProductID string     `json:"productId"`
	Size      string     `json:"size"`
	Stock     int        `json:"stock"`
	Status    SizeStatus `json:"status"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Heal 修正库存为 0 却标记为可售的条目，返回是否发生了修正。
func (p *ProductSize) Heal() bool {
	if p.Stock <= 0 && p.Status == SizeStatusAvailable {
		p.Stock = 0
		p.Status = SizeStatusSoldOut
		return true
	}
	return false
}

// ApplyDelta 按增量调整库存：下限为 0，降到 0 时可售变售罄，补货时售罄恢复可售。
// delayed 状态不受库存运算影响。仓储层的原子 SQL 与此规则保持一致。
func (p *ProductSize) ApplyDelta(delta int) {
	next := p.Stock + delta
	if next < 0 {
		next = 0
	}
	p.Stock = next

	switch {
	case p.Status == SizeStatusDelayed:
	case next == 0:
		p.Status = SizeStatusSoldOut
	case delta > 0 && p.Status == SizeStatusSoldOut:
		p.Status = SizeStatusAvailable
	}
}

// Override 管理员直接设置库存和/或状态。
// 只设置库存时，依据修改前的状态自动修正；显式设置的状态总是优先。
func (p *ProductSize) Override(stock *int, status *SizeStatus) {
	prev := p.Status
	if stock != nil {
		p.Stock = *stock
		if p.Stock < 0 {
			p.Stock = 0
		}
	}
	if status != nil {
		p.Status = *status
		return
	}
	if stock == nil {
		return
	}
	switch prev {
	case SizeStatusAvailable:
		if p.Stock == 0 {
			p.Status = SizeStatusSoldOut
		}
	case SizeStatusSoldOut:
		if p.Stock > 0 {
			p.Status = SizeStatusAvailable
		}
	}
}

// StockItem 表示一次库存校验或调整涉及的行项目
type StockItem struct {
	ProductID   *string
	ProductName string
	Size        string
	Quantity    int
}

// Tracked 判断该行是否参与库存核算（无商品 ID 的行不计库存）
func (i StockItem) Tracked() bool {
	return i.ProductID != nil && *i.ProductID != ""
}

// StockCheckResult 表示下单前的库存校验结果
type StockCheckResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// UpdateSizeRequest 表示管理员修改尺码库存/状态的请求
type UpdateSizeRequest struct {
	ProductID string      `json:"productId" binding:"required"`
	Size      string      `json:"size" binding:"required"`
	Status    *SizeStatus `json:"status"`
	Stock     *int        `json:"stock" binding:"omitempty,gte=0"`
}

// SizeListRequest 表示尺码列表查询请求
type SizeListRequest struct {
	ProductID *string
}
