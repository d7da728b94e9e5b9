package api

import (
	"context"

	"github.com/MorseWayne/bp_store/internal/domain"
)

// MockOrderService for testing
type MockOrderService struct {
	createFunc       func(ctx context.Context, req *domain.CreateOrderRequest) (*domain.CreateOrderResponse, error)
	listFunc         func(ctx context.Context, req *domain.OrderListRequest) ([]*domain.Order, error)
	changeStatusFunc func(ctx context.Context, id int64, req *domain.ChangeOrderStatusRequest) (*domain.Order, error)
	deleteFunc       func(ctx context.Context, id int64) error
	reminderFunc     func(ctx context.Context, id int64) error
	trackFunc        func(ctx context.Context, req *domain.TrackOrderRequest) (*domain.OrderDetail, error)
}

func (m *MockOrderService) Create(ctx context.Context, req *domain.CreateOrderRequest) (*domain.CreateOrderResponse, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return &domain.CreateOrderResponse{OrderNumber: "BP-20250601-0042", TotalAmount: 38000, ShippingFee: 3000}, nil
}

func (m *MockOrderService) List(ctx context.Context, req *domain.OrderListRequest) ([]*domain.Order, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockOrderService) ChangeStatus(ctx context.Context, id int64, req *domain.ChangeOrderStatusRequest) (*domain.Order, error) {
	if m.changeStatusFunc != nil {
		return m.changeStatusFunc(ctx, id, req)
	}
	return &domain.Order{ID: id, Status: domain.OrderStatus(req.Status)}, nil
}

func (m *MockOrderService) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *MockOrderService) SendPaymentReminder(ctx context.Context, id int64) error {
	if m.reminderFunc != nil {
		return m.reminderFunc(ctx, id)
	}
	return nil
}

func (m *MockOrderService) Track(ctx context.Context, req *domain.TrackOrderRequest) (*domain.OrderDetail, error) {
	if m.trackFunc != nil {
		return m.trackFunc(ctx, req)
	}
	return &domain.OrderDetail{Order: &domain.Order{OrderNumber: req.OrderNumber}, Returns: []*domain.ReturnRequest{}}, nil
}

// MockInventoryService for testing
type MockInventoryService struct {
	listFunc   func(ctx context.Context, req *domain.SizeListRequest) ([]*domain.ProductSize, error)
	updateFunc func(ctx context.Context, req *domain.UpdateSizeRequest) (*domain.ProductSize, error)
}

func (m *MockInventoryService) CheckStock(context.Context, []domain.StockItem) (*domain.StockCheckResult, error) {
	return &domain.StockCheckResult{OK: true}, nil
}

func (m *MockInventoryService) DecrementStock(context.Context, string, string, int) {}

func (m *MockInventoryService) AdjustStock(context.Context, string, string, int) error { return nil }

func (m *MockInventoryService) UpdateSize(ctx context.Context, req *domain.UpdateSizeRequest) (*domain.ProductSize, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, req)
	}
	return &domain.ProductSize{ProductID: req.ProductID, Size: req.Size, Status: domain.SizeStatusAvailable}, nil
}

func (m *MockInventoryService) ListSizes(ctx context.Context, req *domain.SizeListRequest) ([]*domain.ProductSize, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, req)
	}
	return nil, nil
}

// MockReturnService for testing
type MockReturnService struct {
	createFunc func(ctx context.Context, req *domain.CreateReturnRequest) (*domain.CreateReturnResponse, error)
	listFunc   func(ctx context.Context, req *domain.ReturnListRequest) ([]*domain.ReturnRequest, error)
	updateFunc func(ctx context.Context, id int64, req *domain.UpdateReturnRequest) (*domain.ReturnRequest, error)
	deleteFunc func(ctx context.Context, id int64) error
}

func (m *MockReturnService) Create(ctx context.Context, req *domain.CreateReturnRequest) (*domain.CreateReturnResponse, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return &domain.CreateReturnResponse{RequestNumber: "RR-20250607-123456", Status: domain.ReturnStatusReceived}, nil
}

func (m *MockReturnService) List(ctx context.Context, req *domain.ReturnListRequest) ([]*domain.ReturnRequest, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockReturnService) Update(ctx context.Context, id int64, req *domain.UpdateReturnRequest) (*domain.ReturnRequest, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, req)
	}
	return &domain.ReturnRequest{ID: id, Status: domain.ReturnStatus(req.Status)}, nil
}

func (m *MockReturnService) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}
