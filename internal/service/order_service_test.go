package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MorseWayne/bp_store/internal/config"
	"github.com/MorseWayne/bp_store/internal/domain"
	"github.com/MorseWayne/bp_store/internal/notify"
)

var testNow = time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		StoreName: "BP",
		Bank:      config.BankConfig{Name: "국민은행", Account: "123-45-6789", Holder: "BP"},
		Policy: config.PolicyConfig{
			ShippingFee:           3000,
			FreeShippingThreshold: 70000,
			ReturnShippingFee:     6000,
			ReturnWindowDays:      7,
		},
	}
}

type testEnv struct {
	sizes    *mockSizeRepository
	orders   *mockOrderRepository
	returns  *mockReturnRepository
	notifier *mockNotifier

	inventory *inventoryService
	orderSvc  *orderService
	returnSvc *returnService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		sizes:    newMockSizeRepository(),
		orders:   newMockOrderRepository(),
		returns:  newMockReturnRepository(),
		notifier: &mockNotifier{},
	}
	env.inventory = NewInventoryService(env.sizes, nil).(*inventoryService)
	env.orderSvc = NewOrderService(env.orders, env.returns, env.inventory, env.notifier, testConfig(), nil).(*orderService)
	env.returnSvc = NewReturnService(env.returns, env.orders, env.inventory, env.notifier, testConfig(), nil).(*returnService)
	env.setNow(testNow, 42, 43, 44, 45, 46)
	return env
}

func (e *testEnv) setNow(now time.Time, numbers ...int) {
	c := fixedClock(now, numbers...)
	e.inventory.clock = c
	e.orderSvc.clock = c
	e.returnSvc.clock = c
}

func orderRequest(items ...domain.CreateOrderItemRequest) *domain.CreateOrderRequest {
	return &domain.CreateOrderRequest{
		CustomerName:  "김민수",
		CustomerPhone: "010-1234-5678",
		CustomerEmail: "minsu@example.com",
		Address:       "서울시 강남구 테헤란로 1",
		DepositorName: "김민수",
		Items:         items,
	}
}

func teeItem(size string, quantity int, price int64) domain.CreateOrderItemRequest {
	return domain.CreateOrderItemRequest{ProductID: ptr("tee"), ProductName: "BP Tee", Size: size, Quantity: quantity, Price: price}
}

// placeOrder 下单并返回订单 ID
func (e *testEnv) placeOrder(t *testing.T, items ...domain.CreateOrderItemRequest) *domain.Order {
	t.Helper()
	resp, err := e.orderSvc.Create(context.Background(), orderRequest(items...))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	order, _ := e.orders.GetByNumber(context.Background(), resp.OrderNumber)
	if order == nil {
		t.Fatalf("order %s not stored", resp.OrderNumber)
	}
	return order
}

func (e *testEnv) changeStatus(t *testing.T, id int64, status domain.OrderStatus, tracking string) *domain.Order {
	t.Helper()
	order, err := e.orderSvc.ChangeStatus(context.Background(), id, &domain.ChangeOrderStatusRequest{Status: string(status), TrackingNumber: tracking})
	if err != nil {
		t.Fatalf("ChangeStatus(%s) error = %v", status, err)
	}
	return order
}

func TestOrderService_Create_StockDeductedOnlyOnConfirm(t *testing.T) {
	env := newTestEnv()
	env.sizes.put("tee", "M", 3, domain.SizeStatusAvailable)

	order := env.placeOrder(t, teeItem("M", 2, 35000))

	if order.OrderNumber != "BP-20250601-0042" {
		t.Errorf("OrderNumber = %s", order.OrderNumber)
	}
	if order.Status != domain.OrderStatusPendingPayment || order.StockDeducted {
		t.Errorf("new order = (%s, %v), want pending and not deducted", order.Status, order.StockDeducted)
	}
	if got := env.sizes.stored("tee", "M").Stock; got != 3 {
		t.Errorf("stock after checkout = %d, want 3", got)
	}

	env.changeStatus(t, order.ID, domain.OrderStatusPaymentConfirmed, "")
	if got := env.sizes.stored("tee", "M").Stock; got != 1 {
		t.Errorf("stock after confirm = %d, want 1", got)
	}

	// 已确认 → 延迟发货 → 已确认，不重复扣减
	env.changeStatus(t, order.ID, domain.DelayStatus(2), "")
	env.changeStatus(t, order.ID, domain.OrderStatusPaymentConfirmed, "")
	if got := env.sizes.stored("tee", "M").Stock; got != 1 {
		t.Errorf("stock after confirmed→confirmed = %d, want 1", got)
	}
}

func TestOrderService_Create_SoldOut(t *testing.T) {
	env := newTestEnv()
	env.sizes.put("tee", "M", 0, domain.SizeStatusSoldOut)

	_, err := env.orderSvc.Create(context.Background(), orderRequest(teeItem("M", 1, 35000)))
	if !errors.Is(err, domain.ErrStockConflict) {
		t.Fatalf("Create() error = %v, want stock conflict", err)
	}
	if !strings.Contains(domain.PublicMessage(err), "(M)") {
		t.Errorf("message %q should name the size", domain.PublicMessage(err))
	}
	if len(env.orders.orders) != 0 {
		t.Errorf("order stored despite stock conflict")
	}
}

func TestOrderService_Create_ShippingFee(t *testing.T) {
	tests := []struct {
		name      string
		items     []domain.CreateOrderItemRequest
		wantFee   int64
		wantTotal int64
	}{
		{"below threshold", []domain.CreateOrderItemRequest{teeItem("M", 1, 35000)}, 3000, 38000},
		{"at threshold", []domain.CreateOrderItemRequest{teeItem("M", 2, 35000)}, 0, 70000},
		{"untracked item counted", []domain.CreateOrderItemRequest{
			teeItem("M", 1, 65000),
			{ProductName: "Gift Wrap", Size: "-", Quantity: 1, Price: 5000},
		}, 0, 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			resp, err := env.orderSvc.Create(context.Background(), orderRequest(tt.items...))
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if resp.ShippingFee != tt.wantFee || resp.TotalAmount != tt.wantTotal {
				t.Errorf("Create() = (fee %d, total %d), want (%d, %d)", resp.ShippingFee, resp.TotalAmount, tt.wantFee, tt.wantTotal)
			}
		})
	}
}

func TestOrderService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *domain.CreateOrderRequest)
	}{
		{"no items", func(r *domain.CreateOrderRequest) { r.Items = nil }},
		{"no name", func(r *domain.CreateOrderRequest) { r.CustomerName = " " }},
		{"phone without digits", func(r *domain.CreateOrderRequest) { r.CustomerPhone = "--" }},
		{"no depositor", func(r *domain.CreateOrderRequest) { r.DepositorName = "" }},
		{"zero quantity", func(r *domain.CreateOrderRequest) { r.Items[0].Quantity = 0 }},
		{"negative price", func(r *domain.CreateOrderRequest) { r.Items[0].Price = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			req := orderRequest(teeItem("M", 1, 35000))
			tt.mutate(req)
			_, err := env.orderSvc.Create(context.Background(), req)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("Create() error = %v, want invalid input", err)
			}
		})
	}
}

func TestOrderService_Create_NumberRetry(t *testing.T) {
	env := newTestEnv()
	env.setNow(testNow, 1, 2, 3)
	env.orders.duplicates = 2

	resp, err := env.orderSvc.Create(context.Background(), orderRequest(teeItem("M", 1, 35000)))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if resp.OrderNumber != "BP-20250601-0003" {
		t.Errorf("OrderNumber = %s, want third candidate", resp.OrderNumber)
	}

	env.orders.duplicates = 3
	_, err = env.orderSvc.Create(context.Background(), orderRequest(teeItem("M", 1, 35000)))
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("Create() error = %v, want conflict after 3 collisions", err)
	}
}

func TestOrderService_Create_NotifiesCustomer(t *testing.T) {
	env := newTestEnv()
	env.placeOrder(t, teeItem("M", 1, 35000))

	ev := env.notifier.last()
	if ev.Key != notify.EventOrderCreated {
		t.Fatalf("event = %s, want %s", ev.Key, notify.EventOrderCreated)
	}
	if ev.Email != "minsu@example.com" || ev.Phone != "010-1234-5678" {
		t.Errorf("recipients = (%s, %s)", ev.Email, ev.Phone)
	}
	if ev.Data.Bank.Account != "123-45-6789" || ev.Data.Order == nil {
		t.Errorf("template data missing bank or order: %+v", ev.Data)
	}
}

func TestOrderService_Create_StoreError(t *testing.T) {
	env := newTestEnv()
	env.orders.createErr = errStore

	_, err := env.orderSvc.Create(context.Background(), orderRequest(teeItem("M", 1, 35000)))
	if !errors.Is(err, errStore) {
		t.Errorf("Create() error = %v, want store error", err)
	}
	if len(env.notifier.keys()) != 0 {
		t.Errorf("notification sent for failed order")
	}
}

func TestOrderService_ChangeStatus(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, teeItem("M", 1, 35000))

	tests := []struct {
		name     string
		id       int64
		req      domain.ChangeOrderStatusRequest
		wantKind error
	}{
		{"unknown status", order.ID, domain.ChangeOrderStatusRequest{Status: "cancelled"}, domain.ErrInvalidInput},
		{"delay out of range", order.ID, domain.ChangeOrderStatusRequest{Status: "53주 뒤 발송"}, domain.ErrInvalidInput},
		{"shipping without tracking", order.ID, domain.ChangeOrderStatusRequest{Status: string(domain.OrderStatusShipping)}, domain.ErrInvalidInput},
		{"missing order", 999, domain.ChangeOrderStatusRequest{Status: string(domain.OrderStatusDelivered)}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.orderSvc.ChangeStatus(context.Background(), tt.id, &tt.req)
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("ChangeStatus() error = %v, want %v", err, tt.wantKind)
			}
		})
	}

	if got := env.orders.orders[order.ID].Status; got != domain.OrderStatusPendingPayment {
		t.Errorf("status changed by failed transitions: %s", got)
	}
}

func TestOrderService_ChangeStatus_ShippingAndDelivered(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, teeItem("M", 1, 35000))

	updated := env.changeStatus(t, order.ID, domain.OrderStatusShipping, " 6000-1234 ")
	if updated.TrackingNumber == nil || *updated.TrackingNumber != "6000-1234" {
		t.Errorf("TrackingNumber = %v", updated.TrackingNumber)
	}

	later := testNow.Add(48 * time.Hour)
	env.setNow(later)
	updated = env.changeStatus(t, order.ID, domain.OrderStatusDelivered, "")
	if updated.DeliveredAt == nil || !updated.DeliveredAt.Equal(later) {
		t.Errorf("DeliveredAt = %v, want %v", updated.DeliveredAt, later)
	}
	stored := env.orders.orders[order.ID]
	if stored.DeliveredAt == nil || stored.TrackingNumber == nil {
		t.Errorf("delivery fields not persisted: %+v", stored)
	}
}

func TestOrderService_ChangeStatus_NotificationChannels(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, teeItem("M", 1, 35000))

	_, err := env.orderSvc.ChangeStatus(context.Background(), order.ID, &domain.ChangeOrderStatusRequest{
		Status: string(domain.OrderStatusPaymentConfirmed),
	})
	if err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	ev := env.notifier.last()
	if ev.Key != "order.status.payment_confirmed" {
		t.Errorf("event key = %s", ev.Key)
	}
	if len(ev.Channels) != 1 || ev.Channels[0] != notify.ChannelEvent {
		t.Errorf("without sendNotification only the event channel is used, got %v", ev.Channels)
	}

	_, err = env.orderSvc.ChangeStatus(context.Background(), order.ID, &domain.ChangeOrderStatusRequest{
		Status:           string(domain.DelayStatus(3)),
		SendNotification: true,
	})
	if err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	ev = env.notifier.last()
	if ev.Key != "order.status.delayed" || len(ev.Channels) != 0 {
		t.Errorf("event = %s channels %v, want delayed on all channels", ev.Key, ev.Channels)
	}
}

func TestOrderService_Delete_RestoresStock(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []domain.OrderStatus
		wantStock int
	}{
		{"pending order leaves stock", nil, 5},
		{"confirmed order restores stock", []domain.OrderStatus{domain.OrderStatusPaymentConfirmed}, 5},
		{"delayed then shipped restores once", []domain.OrderStatus{domain.DelayStatus(1), domain.OrderStatusPaymentConfirmed, domain.OrderStatusShipping}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.sizes.put("tee", "M", 5, domain.SizeStatusAvailable)
			env.sizes.put("tee", "L", 5, domain.SizeStatusAvailable)
			order := env.placeOrder(t, teeItem("M", 2, 35000), teeItem("L", 1, 35000),
				domain.CreateOrderItemRequest{ProductName: "Sticker", Size: "-", Quantity: 1, Price: 0})

			for _, s := range tt.statuses {
				env.changeStatus(t, order.ID, s, "6000-1234")
			}

			if err := env.orderSvc.Delete(context.Background(), order.ID); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if got := env.sizes.stored("tee", "M").Stock; got != tt.wantStock {
				t.Errorf("M stock = %d, want %d", got, tt.wantStock)
			}
			if got := env.sizes.stored("tee", "L").Stock; got != tt.wantStock {
				t.Errorf("L stock = %d, want %d", got, tt.wantStock)
			}
			if _, ok := env.orders.orders[order.ID]; ok {
				t.Errorf("order still stored after delete")
			}
		})
	}
}

func TestOrderService_Delete_RetryRestoresOnce(t *testing.T) {
	env := newTestEnv()
	env.sizes.put("tee", "M", 3, domain.SizeStatusAvailable)
	order := env.placeOrder(t, teeItem("M", 2, 35000))
	env.changeStatus(t, order.ID, domain.OrderStatusPaymentConfirmed, "")
	if got := env.sizes.stored("tee", "M").Stock; got != 1 {
		t.Fatalf("stock after confirm = %d, want 1", got)
	}

	env.orders.deleteErrs = []error{context.DeadlineExceeded}
	if err := env.orderSvc.Delete(context.Background(), order.ID); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("first Delete() error = %v, want deadline exceeded", err)
	}
	if err := env.orderSvc.Delete(context.Background(), order.ID); err != nil {
		t.Fatalf("retried Delete() error = %v", err)
	}
	if got := env.sizes.stored("tee", "M").Stock; got != 3 {
		t.Errorf("stock after retried delete = %d, want 3", got)
	}
}

func TestOrderService_ChangeStatus_DeductSurvivesCancel(t *testing.T) {
	env := newTestEnv()
	env.sizes.put("tee", "M", 3, domain.SizeStatusAvailable)
	order := env.placeOrder(t, teeItem("M", 2, 35000))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := env.orderSvc.ChangeStatus(ctx, order.ID, &domain.ChangeOrderStatusRequest{Status: string(domain.OrderStatusPaymentConfirmed)}); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	if got := env.sizes.stored("tee", "M").Stock; got != 1 {
		t.Errorf("stock after confirm with cancelled request = %d, want 1", got)
	}
}

func TestOrderService_Delete_NotFound(t *testing.T) {
	env := newTestEnv()
	if err := env.orderSvc.Delete(context.Background(), 7); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete() error = %v, want not found", err)
	}
}

func TestOrderService_SendPaymentReminder(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, teeItem("M", 1, 35000))

	if err := env.orderSvc.SendPaymentReminder(context.Background(), order.ID); err != nil {
		t.Fatalf("SendPaymentReminder() error = %v", err)
	}
	ev := env.notifier.last()
	if ev.Key != notify.EventOrderPaymentReminder || len(ev.Channels) != 1 || ev.Channels[0] != notify.ChannelEmail {
		t.Errorf("event = %s channels %v", ev.Key, ev.Channels)
	}

	env.changeStatus(t, order.ID, domain.OrderStatusPaymentConfirmed, "")
	if err := env.orderSvc.SendPaymentReminder(context.Background(), order.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("reminder on confirmed order error = %v, want invalid input", err)
	}

	req := orderRequest(teeItem("M", 1, 35000))
	req.CustomerEmail = ""
	resp, err := env.orderSvc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	noEmail, _ := env.orders.GetByNumber(context.Background(), resp.OrderNumber)
	if err := env.orderSvc.SendPaymentReminder(context.Background(), noEmail.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("reminder without email error = %v, want invalid input", err)
	}
}

func TestOrderService_Track(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, teeItem("M", 1, 35000))
	env.returns.requests[1] = &domain.ReturnRequest{ID: 1, OrderID: order.ID, Status: domain.ReturnStatusReceived}

	tests := []struct {
		name     string
		req      domain.TrackOrderRequest
		wantKind error
	}{
		{"phone without dashes", domain.TrackOrderRequest{OrderNumber: order.OrderNumber, Phone: "01012345678"}, nil},
		{"phone with spaces", domain.TrackOrderRequest{OrderNumber: order.OrderNumber, Phone: "010 1234 5678"}, nil},
		{"wrong phone", domain.TrackOrderRequest{OrderNumber: order.OrderNumber, Phone: "01099998888"}, domain.ErrNotFound},
		{"unknown order", domain.TrackOrderRequest{OrderNumber: "BP-20250601-9999", Phone: "01012345678"}, domain.ErrNotFound},
		{"empty phone", domain.TrackOrderRequest{OrderNumber: order.OrderNumber}, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, err := env.orderSvc.Track(context.Background(), &tt.req)
			if tt.wantKind != nil {
				if !errors.Is(err, tt.wantKind) {
					t.Errorf("Track() error = %v, want %v", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Track() error = %v", err)
			}
			if detail.OrderNumber != order.OrderNumber || len(detail.Items) != 1 || len(detail.Returns) != 1 {
				t.Errorf("Track() = %+v", detail)
			}
		})
	}
}

func TestOrderService_List(t *testing.T) {
	env := newTestEnv()
	env.setNow(testNow, 1, 2)
	first := env.placeOrder(t, teeItem("M", 1, 35000))
	env.placeOrder(t, teeItem("M", 1, 35000))
	env.changeStatus(t, first.ID, domain.OrderStatusPaymentConfirmed, "")

	all, err := env.orderSvc.List(context.Background(), nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("List() = %d, %v", len(all), err)
	}

	confirmed := domain.OrderStatusPaymentConfirmed
	filtered, err := env.orderSvc.List(context.Background(), &domain.OrderListRequest{Status: &confirmed})
	if err != nil || len(filtered) != 1 || filtered[0].ID != first.ID {
		t.Errorf("List(status) = %v, %v", filtered, err)
	}

	bogus := domain.OrderStatus("cancelled")
	if _, err := env.orderSvc.List(context.Background(), &domain.OrderListRequest{Status: &bogus}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("List(bogus) error = %v", err)
	}
}
