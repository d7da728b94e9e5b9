package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/MorseWayne/bp_store/internal/domain"
	"github.com/MorseWayne/bp_store/internal/notify"
	"github.com/MorseWayne/bp_store/internal/repo"
)

// Mock ProductSizeRepository for testing
type mockSizeRepository struct {
	entries   map[string]*domain.ProductSize
	healCalls int
	err       error
}

func newMockSizeRepository() *mockSizeRepository {
	return &mockSizeRepository{entries: make(map[string]*domain.ProductSize)}
}

func sizeKey(productID, size string) string { return productID + "/" + size }

func (m *mockSizeRepository) put(productID, size string, stock int, status domain.SizeStatus) {
	m.entries[sizeKey(productID, size)] = &domain.ProductSize{ProductID: productID, Size: size, Stock: stock, Status: status}
}

func (m *mockSizeRepository) stored(productID, size string) *domain.ProductSize {
	return m.entries[sizeKey(productID, size)]
}

func (m *mockSizeRepository) Get(_ context.Context, productID, size string) (*domain.ProductSize, error) {
	if m.err != nil {
		return nil, m.err
	}
	entry, ok := m.entries[sizeKey(productID, size)]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

func (m *mockSizeRepository) List(_ context.Context, productID *string) ([]*domain.ProductSize, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.ProductSize
	for _, entry := range m.entries {
		if productID != nil && entry.ProductID != *productID {
			continue
		}
		cp := *entry
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return sizeKey(out[i].ProductID, out[i].Size) < sizeKey(out[j].ProductID, out[j].Size) })
	return out, nil
}

func (m *mockSizeRepository) AdjustStock(ctx context.Context, productID, size string, delta int) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	entry, ok := m.entries[sizeKey(productID, size)]
	if !ok {
		return false, nil
	}
	entry.ApplyDelta(delta)
	return true, nil
}

func (m *mockSizeRepository) Upsert(_ context.Context, entry *domain.ProductSize) error {
	if m.err != nil {
		return m.err
	}
	cp := *entry
	m.entries[sizeKey(entry.ProductID, entry.Size)] = &cp
	return nil
}

func (m *mockSizeRepository) HealSoldOut(_ context.Context, productID *string) (int64, error) {
	m.healCalls++
	var n int64
	for _, entry := range m.entries {
		if productID != nil && entry.ProductID != *productID {
			continue
		}
		if entry.Heal() {
			n++
		}
	}
	return n, nil
}

// Mock OrderRepository for testing
type mockOrderRepository struct {
	orders     map[int64]*domain.Order
	nextID     int64
	nextItemID int64
	duplicates int // 接下来多少次 Create 返回订单号冲突
	createErr  error
	deleteErrs []error // 依次作为 Delete 的返回值
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[int64]*domain.Order), nextID: 1, nextItemID: 1}
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = make([]*domain.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		ic := *item
		cp.Items = append(cp.Items, &ic)
	}
	return &cp
}

func (m *mockOrderRepository) Create(_ context.Context, order *domain.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.duplicates > 0 {
		m.duplicates--
		return repo.ErrDuplicateNumber
	}
	for _, existing := range m.orders {
		if existing.OrderNumber == order.OrderNumber {
			return repo.ErrDuplicateNumber
		}
	}
	order.ID = m.nextID
	m.nextID++
	for _, item := range order.Items {
		item.ID = m.nextItemID
		item.OrderID = order.ID
		m.nextItemID++
	}
	m.orders[order.ID] = copyOrder(order)
	return nil
}

func (m *mockOrderRepository) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return copyOrder(order), nil
}

func (m *mockOrderRepository) GetByNumber(_ context.Context, orderNumber string) (*domain.Order, error) {
	for _, order := range m.orders {
		if order.OrderNumber == orderNumber {
			return copyOrder(order), nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepository) List(_ context.Context, req *domain.OrderListRequest) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, order := range m.orders {
		if req.Status != nil && order.Status != *req.Status {
			continue
		}
		out = append(out, copyOrder(order))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockOrderRepository) UpdateStatus(_ context.Context, order *domain.Order) error {
	stored, ok := m.orders[order.ID]
	if !ok {
		return domain.NotFound("order %d not found", order.ID)
	}
	stored.Status = order.Status
	stored.TrackingNumber = order.TrackingNumber
	stored.DeliveredAt = order.DeliveredAt
	stored.StockDeducted = order.StockDeducted
	stored.UpdatedAt = order.UpdatedAt
	return nil
}

func (m *mockOrderRepository) ClearStockDeducted(_ context.Context, id int64) (bool, error) {
	stored, ok := m.orders[id]
	if !ok || !stored.StockDeducted {
		return false, nil
	}
	stored.StockDeducted = false
	return true, nil
}

func (m *mockOrderRepository) Delete(_ context.Context, id int64) error {
	if len(m.deleteErrs) > 0 {
		err := m.deleteErrs[0]
		m.deleteErrs = m.deleteErrs[1:]
		return err
	}
	if _, ok := m.orders[id]; !ok {
		return domain.NotFound("order %d not found", id)
	}
	delete(m.orders, id)
	return nil
}

// Mock ReturnRepository for testing
type mockReturnRepository struct {
	requests   map[int64]*domain.ReturnRequest
	nextID     int64
	duplicates int
	staleCheck bool // HasActive 总是返回 false，模拟并发提交时预检已过期
}

func newMockReturnRepository() *mockReturnRepository {
	return &mockReturnRepository{requests: make(map[int64]*domain.ReturnRequest), nextID: 1}
}

func (m *mockReturnRepository) Create(_ context.Context, req *domain.ReturnRequest) error {
	if m.duplicates > 0 {
		m.duplicates--
		return repo.ErrDuplicateNumber
	}
	for _, existing := range m.requests {
		if existing.OrderItemID == req.OrderItemID && !existing.Status.IsTerminal() {
			return repo.ErrActiveRequest
		}
		if existing.RequestNumber == req.RequestNumber {
			return repo.ErrDuplicateNumber
		}
	}
	req.ID = m.nextID
	m.nextID++
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *mockReturnRepository) GetByID(_ context.Context, id int64) (*domain.ReturnRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (m *mockReturnRepository) List(_ context.Context, req *domain.ReturnListRequest) ([]*domain.ReturnRequest, error) {
	var out []*domain.ReturnRequest
	for _, r := range m.requests {
		if req.Status != nil && r.Status != *req.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockReturnRepository) ListByOrder(_ context.Context, orderID int64) ([]*domain.ReturnRequest, error) {
	var out []*domain.ReturnRequest
	for _, r := range m.requests {
		if r.OrderID == orderID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockReturnRepository) HasActive(_ context.Context, orderItemID int64) (bool, error) {
	if m.staleCheck {
		return false, nil
	}
	for _, r := range m.requests {
		if r.OrderItemID == orderItemID && !r.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReturnRepository) Update(_ context.Context, req *domain.ReturnRequest) error {
	if _, ok := m.requests[req.ID]; !ok {
		return domain.NotFound("return request %d not found", req.ID)
	}
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *mockReturnRepository) Delete(_ context.Context, id int64) error {
	if _, ok := m.requests[id]; !ok {
		return domain.NotFound("return request %d not found", id)
	}
	delete(m.requests, id)
	return nil
}

// mockNotifier 记录所有通知事件
type mockNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (m *mockNotifier) Notify(_ context.Context, ev notify.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockNotifier) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, ev := range m.events {
		out = append(out, ev.Key)
	}
	return out
}

func (m *mockNotifier) last() notify.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return notify.Event{}
	}
	return m.events[len(m.events)-1]
}

// fixedClock 固定时间，随机数按给定序列循环返回
func fixedClock(now time.Time, numbers ...int) clock {
	i := 0
	return clock{
		now: func() time.Time { return now },
		intn: func(n int) int {
			if len(numbers) == 0 {
				return 0
			}
			v := numbers[i%len(numbers)] % n
			i++
			return v
		},
	}
}

var errStore = errors.New("connection refused")
