package usecase_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"

	"fooddelivery/internal/domain/model"
	"fooddelivery/internal/domain/policy"
	repo "fooddelivery/internal/repository"
	"fooddelivery/internal/usecase"
	"fooddelivery/internal/validator"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var orderSettings = usecase.OrderSettings{ShippingFee: 15000, MinOrderAmount: 50000}

type orderFixture struct {
	tx        *TxManagerMock
	orders    *OrderRepoMock
	items     *OrderItemRepoMock
	carts     *CartRepoMock
	products  *ProductRepoMock
	combos    *ComboRepoMock
	vouchers  *VoucherRepoMock
	users     *UserRepoMock
	publisher *PublisherMock
	metrics   *metricsRecorder
	uc        *usecase.OrderUsecase
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		tx:        new(TxManagerMock),
		orders:    new(OrderRepoMock),
		items:     new(OrderItemRepoMock),
		carts:     new(CartRepoMock),
		products:  new(ProductRepoMock),
		combos:    new(ComboRepoMock),
		vouchers:  new(VoucherRepoMock),
		users:     new(UserRepoMock),
		publisher: new(PublisherMock),
		metrics:   &metricsRecorder{},
	}
	f.tx.Repos = &TxReposMock{
		orders:     f.orders,
		orderItems: f.items,
		carts:      f.carts,
		products:   f.products,
		combos:     f.combos,
		vouchers:   f.vouchers,
	}
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.uc = usecase.NewOrderUsecase(
		f.tx, f.orders, f.items, f.users,
		validator.NewCustomerValidator(),
		f.publisher, f.metrics, orderSettings, zap.NewNop(),
	)
	return f
}

func guestOrderInput(items ...usecase.LineItemInput) usecase.PlaceOrderInput {
	return usecase.PlaceOrderInput{
		CustomerName:    "Nguyen Van A",
		CustomerPhone:   "0912345678",
		CustomerAddress: "12 Le Loi, District 1",
		Items:           items,
	}
}

func productLine(id, qty int64) usecase.LineItemInput {
	return usecase.LineItemInput{Kind: "product", ReferenceID: id, Quantity: qty}
}

func member(id int64) *model.User {
	return &model.User{
		ID:       id,
		Name:     "Tran Thi B",
		Phone:    "0987654321",
		Address:  "99 Hai Ba Trung",
		Role:     model.RoleCustomer,
		IsActive: true,
	}
}

func save20k() model.Voucher {
	from, to := openWindow()
	return model.Voucher{
		ID:             3,
		Code:           "SAVE20K",
		DiscountType:   model.VoucherTypeFixed,
		DiscountValue:  decimal.NewFromInt(20000),
		MinOrderAmount: int64Ptr(200000),
		UsageLimit:     int64Ptr(50),
		UsedCount:      10,
		PerUserLimit:   int64Ptr(2),
		ValidFrom:      from,
		ValidTo:        to,
		IsActive:       true,
	}
}

// =====================
// PlaceOrder tests
// =====================

func TestOrderUsecase_PlaceOrder_EmptyItems(t *testing.T) {
	f := newOrderFixture()

	_, err := f.uc.PlaceOrder(context.Background(), nil, guestOrderInput())
	requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)
	assertErrContains(t, err, "items required")
	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestOrderUsecase_PlaceOrder_InvalidQuantity(t *testing.T) {
	f := newOrderFixture()

	_, err := f.uc.PlaceOrder(context.Background(), nil, guestOrderInput(productLine(1, 0)))
	requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)
}

func TestOrderUsecase_PlaceOrder_QuantityAboveLimit(t *testing.T) {
	f := newOrderFixture()

	// 50000 * 368934881474193 はint64で一周して小さな小計になる数量
	_, err := f.uc.PlaceOrder(context.Background(), nil, guestOrderInput(productLine(1, 368934881474193)))
	requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)

	_, err = f.uc.PlaceOrder(context.Background(), nil, guestOrderInput(productLine(1, policy.MaxQuantity+1)))
	requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)

	f.products.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_SubtotalOverflow(t *testing.T) {
	f := newOrderFixture()

	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Gold Leaf Pho", Price: math.MaxInt64 / 2, IsActive: true}, nil)

	_, err := f.uc.PlaceOrder(context.Background(), nil, guestOrderInput(productLine(1, 3)))
	he := requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)
	assert.Equal(t, "order amount out of range", he.Message)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_GuestMissingAddress(t *testing.T) {
	f := newOrderFixture()

	in := guestOrderInput(productLine(1, 1))
	in.CustomerAddress = "  "
	_, err := f.uc.PlaceOrder(context.Background(), nil, in)
	requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)
}

func TestOrderUsecase_PlaceOrder_Guest_Success(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Pho Bo", Price: 40000, IsActive: true}, nil)
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.UserID == nil &&
			o.Status == model.OrderStatusPending &&
			o.Subtotal == 80000 &&
			o.ShippingFee == 15000 &&
			o.Discount == 0 &&
			o.Total == 95000 &&
			o.IdempotencyKey == nil
	})).Return(int64(10), nil)
	f.items.On("CreateBulk", mock.Anything, int64(10), mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 1 && items[0].NameSnapshot == "Pho Bo" && items[0].UnitPriceSnapshot == 40000
	})).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(ev model.OrderEvent) bool {
		return ev.Type == model.OrderEventCreated && ev.OrderID == 10 && ev.Status == model.OrderStatusPending
	})).Return(nil)

	in := guestOrderInput(productLine(1, 2))
	// ゲストのキーは無視される
	in.IdempotencyKey = "ignored"
	out, err := f.uc.PlaceOrder(ctx, nil, in)
	require.NoError(t, err)

	assert.Equal(t, int64(10), out.ID)
	assert.Nil(t, out.UserID)
	assert.Equal(t, int64(95000), out.Total)
	assert.Equal(t, "PENDING", out.Status)
	assert.Regexp(t, `^ORD-\d+-[0-9A-F]{6}$`, out.OrderNumber)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(80000), out.Items[0].LineTotal)
	assert.Equal(t, []int64{95000}, f.metrics.placed)

	f.orders.AssertNotCalled(t, "FindByIdempotencyKey", mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertExpectations(t)
	f.items.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestOrderUsecase_PlaceOrder_Guest_VoucherNotAllowed(t *testing.T) {
	f := newOrderFixture()

	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Pho Bo", Price: 40000, IsActive: true}, nil)

	in := guestOrderInput(productLine(1, 2))
	in.VoucherCode = "WELCOME10"
	_, err := f.uc.PlaceOrder(context.Background(), nil, in)

	he := requireHTTPError(t, err, http.StatusUnprocessableEntity, usecase.KindEligibility)
	assert.Equal(t, policy.ReasonGuestNotAllowed, he.Reason)

	f.vouchers.AssertNotCalled(t, "FindByCodeForUpdate", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_BelowMinimum(t *testing.T) {
	f := newOrderFixture()

	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Tra Da", Price: 30000, IsActive: true}, nil)

	_, err := f.uc.PlaceOrder(context.Background(), nil, guestOrderInput(productLine(1, 1)))

	he := requireHTTPError(t, err, http.StatusUnprocessableEntity, usecase.KindEligibility)
	assert.Equal(t, policy.ReasonBelowMinimum, he.Reason)
	assert.Equal(t, int64(50000), he.MinOrderAmount)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_InactiveProduct(t *testing.T) {
	f := newOrderFixture()

	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Banh Mi", Price: 60000, IsActive: false}, nil)

	_, err := f.uc.PlaceOrder(context.Background(), nil, guestOrderInput(productLine(1, 1)))

	requireHTTPError(t, err, http.StatusUnprocessableEntity, usecase.KindInactiveItem)
	assertErrContains(t, err, "Banh Mi")
}

func TestOrderUsecase_PlaceOrder_UnknownCombo(t *testing.T) {
	f := newOrderFixture()

	f.combos.On("FindByID", mock.Anything, int64(9)).Return(model.Combo{}, repo.ErrNotFound)

	in := guestOrderInput(usecase.LineItemInput{Kind: "combo", ReferenceID: 9, Quantity: 1})
	_, err := f.uc.PlaceOrder(context.Background(), nil, in)

	requireHTTPError(t, err, http.StatusNotFound, usecase.KindNotFound)
}

func TestOrderUsecase_PlaceOrder_Member_VoucherUsageExhausted(t *testing.T) {
	f := newOrderFixture()
	userID := int64(7)

	f.users.On("FindByID", mock.Anything, userID).Return(member(userID), nil)
	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Com Tam", Price: 120000, IsActive: true}, nil)
	f.vouchers.On("FindByCodeForUpdate", mock.Anything, "SAVE20K").Return(save20k(), nil)
	f.vouchers.On("FindGrantForUpdate", mock.Anything, userID, int64(3)).
		Return(model.UserVoucher{ID: 5, UserID: userID, VoucherID: 3}, nil)
	// 読んだ後に他の注文が枠を使い切った
	f.vouchers.On("IncrementUsage", mock.Anything, int64(3)).Return(false, nil)

	in := usecase.PlaceOrderInput{Items: []usecase.LineItemInput{productLine(1, 2)}, VoucherCode: "save20k"}
	_, err := f.uc.PlaceOrder(context.Background(), &userID, in)

	he := requireHTTPError(t, err, http.StatusUnprocessableEntity, usecase.KindEligibility)
	assert.Equal(t, policy.ReasonUsageExhausted, he.Reason)
	f.vouchers.AssertNotCalled(t, "IncrementGrantUsage", mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_Member_NotEntitled(t *testing.T) {
	f := newOrderFixture()
	userID := int64(7)

	f.users.On("FindByID", mock.Anything, userID).Return(member(userID), nil)
	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Com Tam", Price: 120000, IsActive: true}, nil)
	f.vouchers.On("FindByCodeForUpdate", mock.Anything, "SAVE20K").Return(save20k(), nil)
	f.vouchers.On("FindGrantForUpdate", mock.Anything, userID, int64(3)).Return(model.UserVoucher{}, repo.ErrNotFound)

	in := usecase.PlaceOrderInput{Items: []usecase.LineItemInput{productLine(1, 2)}, VoucherCode: "SAVE20K"}
	_, err := f.uc.PlaceOrder(context.Background(), &userID, in)

	he := requireHTTPError(t, err, http.StatusUnprocessableEntity, usecase.KindEligibility)
	assert.Equal(t, policy.ReasonNotEntitled, he.Reason)
	f.vouchers.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_Member_UnknownVoucher(t *testing.T) {
	f := newOrderFixture()
	userID := int64(7)

	f.users.On("FindByID", mock.Anything, userID).Return(member(userID), nil)
	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Com Tam", Price: 120000, IsActive: true}, nil)
	f.vouchers.On("FindByCodeForUpdate", mock.Anything, "NOPE").Return(model.Voucher{}, repo.ErrNotFound)

	in := usecase.PlaceOrderInput{Items: []usecase.LineItemInput{productLine(1, 1)}, VoucherCode: "nope"}
	_, err := f.uc.PlaceOrder(context.Background(), &userID, in)

	he := requireHTTPError(t, err, http.StatusNotFound, usecase.KindNotFound)
	assert.Equal(t, policy.ReasonNotFound, he.Reason)
}

func TestOrderUsecase_PlaceOrder_Member_VoucherRedeemed_CartCleared(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()
	userID := int64(7)

	f.users.On("FindByID", mock.Anything, userID).Return(member(userID), nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, userID, "req-1").Return(model.Order{}, false, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Com Tam", Price: 120000, IsActive: true}, nil)
	f.vouchers.On("FindByCodeForUpdate", mock.Anything, "SAVE20K").Return(save20k(), nil)
	f.vouchers.On("FindGrantForUpdate", mock.Anything, userID, int64(3)).
		Return(model.UserVoucher{ID: 5, UserID: userID, VoucherID: 3, UsedCount: 1}, nil)
	f.vouchers.On("IncrementUsage", mock.Anything, int64(3)).Return(true, nil)
	f.vouchers.On("IncrementGrantUsage", mock.Anything, int64(5), mock.Anything).Return(true, nil)
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.UserID != nil && *o.UserID == userID &&
			o.CustomerName == "Tran Thi B" &&
			o.CustomerAddress == "99 Hai Ba Trung" &&
			o.Subtotal == 240000 &&
			o.Discount == 20000 &&
			o.Total == 235000 &&
			o.VoucherID != nil && *o.VoucherID == 3 &&
			o.IdempotencyKey != nil && *o.IdempotencyKey == "req-1"
	})).Return(int64(11), nil)
	f.items.On("CreateBulk", mock.Anything, int64(11), mock.Anything).Return(nil)
	f.carts.On("FindActiveByUserID", mock.Anything, userID).Return(model.Cart{ID: 4, UserID: userID}, nil)
	f.carts.On("Clear", mock.Anything, int64(4)).Return(nil)
	f.carts.On("UpdateStatus", mock.Anything, int64(4), model.CartStatusCheckedOut).Return(nil)
	// 送信に失敗しても注文は成功
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	in := usecase.PlaceOrderInput{
		Items:          []usecase.LineItemInput{productLine(1, 2)},
		VoucherCode:    "save20k",
		IdempotencyKey: "req-1",
	}
	out, err := f.uc.PlaceOrder(ctx, &userID, in)
	require.NoError(t, err)

	assert.Equal(t, int64(11), out.ID)
	assert.Equal(t, int64(20000), out.Discount)
	assert.Equal(t, int64(235000), out.Total)
	require.NotNil(t, out.VoucherCode)
	assert.Equal(t, "SAVE20K", *out.VoucherCode)
	assert.Equal(t, []string{"SAVE20K"}, f.metrics.redeemed)

	f.vouchers.AssertExpectations(t)
	f.carts.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestOrderUsecase_PlaceOrder_IdempotentReplay(t *testing.T) {
	f := newOrderFixture()
	userID := int64(7)

	existing := model.Order{
		ID:          20,
		OrderNumber: "ORD-1-ABCDEF",
		UserID:      &userID,
		Subtotal:    120000,
		ShippingFee: 15000,
		Total:       135000,
		Status:      model.OrderStatusPending,
	}
	pid := int64(1)
	f.users.On("FindByID", mock.Anything, userID).Return(member(userID), nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, userID, "req-1").Return(existing, true, nil)
	f.items.On("ListByOrderID", mock.Anything, int64(20)).Return([]model.OrderItem{
		{ID: 1, OrderID: 20, Kind: model.ItemKindProduct, ProductID: &pid, NameSnapshot: "Com Tam", UnitPriceSnapshot: 120000, Quantity: 1},
	}, nil)

	in := usecase.PlaceOrderInput{Items: []usecase.LineItemInput{productLine(1, 1)}, IdempotencyKey: "req-1"}
	out, err := f.uc.PlaceOrder(context.Background(), &userID, in)
	require.NoError(t, err)

	assert.Equal(t, int64(20), out.ID)
	assert.Equal(t, "ORD-1-ABCDEF", out.OrderNumber)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(1), out.Items[0].ReferenceID)

	f.products.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	assert.Empty(t, f.metrics.placed)
}

func TestOrderUsecase_PlaceOrder_ConcurrentSameKey_Conflict(t *testing.T) {
	f := newOrderFixture()
	userID := int64(7)

	f.users.On("FindByID", mock.Anything, userID).Return(member(userID), nil)
	f.orders.On("FindByIdempotencyKey", mock.Anything, userID, "req-1").Return(model.Order{}, false, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Com Tam", Price: 120000, IsActive: true}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(int64(0), repo.ErrConflict)

	in := usecase.PlaceOrderInput{Items: []usecase.LineItemInput{productLine(1, 1)}, IdempotencyKey: "req-1"}
	_, err := f.uc.PlaceOrder(context.Background(), &userID, in)

	requireHTTPError(t, err, http.StatusConflict, usecase.KindConflict)
}

func TestOrderUsecase_PlaceOrder_DisabledMember(t *testing.T) {
	f := newOrderFixture()
	userID := int64(7)

	u := member(userID)
	u.IsActive = false
	f.users.On("FindByID", mock.Anything, userID).Return(u, nil)

	in := usecase.PlaceOrderInput{Items: []usecase.LineItemInput{productLine(1, 1)}}
	_, err := f.uc.PlaceOrder(context.Background(), &userID, in)

	requireHTTPError(t, err, http.StatusForbidden, usecase.KindForbidden)
	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

// =====================
// Get / Cancel tests
// =====================

func TestOrderUsecase_Get_OtherUsersOrder_NotFound(t *testing.T) {
	f := newOrderFixture()
	owner := int64(8)

	f.orders.On("FindByID", mock.Anything, int64(30)).Return(model.Order{ID: 30, UserID: &owner}, nil)

	_, err := f.uc.Get(context.Background(), usecase.Actor{UserID: 7, Role: model.RoleCustomer}, 30)
	requireHTTPError(t, err, http.StatusNotFound, usecase.KindNotFound)
	f.items.AssertNotCalled(t, "ListByOrderID", mock.Anything, mock.Anything)
}

func TestOrderUsecase_Get_AdminSeesGuestOrder(t *testing.T) {
	f := newOrderFixture()

	f.orders.On("FindByID", mock.Anything, int64(30)).Return(model.Order{ID: 30, Status: model.OrderStatusPending}, nil)
	f.items.On("ListByOrderID", mock.Anything, int64(30)).Return([]model.OrderItem{}, nil)

	out, err := f.uc.Get(context.Background(), usecase.Actor{UserID: 1, Role: model.RoleAdmin}, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(30), out.ID)
}

func TestOrderUsecase_ListMine_InvalidLimit(t *testing.T) {
	f := newOrderFixture()

	_, err := f.uc.ListMine(context.Background(), 7, 1, 101)
	assertErrContains(t, err, "invalid limit")
}

func TestOrderUsecase_Cancel_Pending_Success(t *testing.T) {
	f := newOrderFixture()
	userID := int64(7)

	f.orders.On("FindByIDForUpdate", mock.Anything, int64(40)).
		Return(model.Order{ID: 40, UserID: &userID, Status: model.OrderStatusPending, Total: 95000}, nil)
	f.orders.On("UpdateStatus", mock.Anything, int64(40), model.OrderStatusCancelled).Return(nil)
	f.items.On("ListByOrderID", mock.Anything, int64(40)).Return([]model.OrderItem{}, nil)
	f.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(ev model.OrderEvent) bool {
		return ev.Type == model.OrderEventCancelled && ev.FromStatus == model.OrderStatusPending
	})).Return(nil)

	out, err := f.uc.Cancel(context.Background(), userID, 40)
	require.NoError(t, err)

	assert.Equal(t, "CANCELLED", out.Status)
	assert.Equal(t, []string{"CANCELLED"}, f.metrics.changed)
	f.orders.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestOrderUsecase_Cancel_NotOwner_Forbidden(t *testing.T) {
	f := newOrderFixture()
	owner := int64(8)

	f.orders.On("FindByIDForUpdate", mock.Anything, int64(40)).
		Return(model.Order{ID: 40, UserID: &owner, Status: model.OrderStatusPending}, nil)

	_, err := f.uc.Cancel(context.Background(), 7, 40)
	requireHTTPError(t, err, http.StatusForbidden, usecase.KindForbidden)
	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_Cancel_Confirmed_Forbidden(t *testing.T) {
	f := newOrderFixture()
	userID := int64(7)

	f.orders.On("FindByIDForUpdate", mock.Anything, int64(40)).
		Return(model.Order{ID: 40, UserID: &userID, Status: model.OrderStatusConfirmed}, nil)

	_, err := f.uc.Cancel(context.Background(), userID, 40)
	requireHTTPError(t, err, http.StatusForbidden, usecase.KindForbidden)
	assertErrContains(t, err, "only pending orders can be cancelled")
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
