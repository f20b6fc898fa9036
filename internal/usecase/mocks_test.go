package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"
	"fooddelivery/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	carts      repo.CartRepository
	cartItems  repo.CartItemRepository
	products   repo.ProductRepository
	combos     repo.ComboRepository
	vouchers   repo.VoucherRepository
	auditLogs  repo.AuditLogRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *TxReposMock) Carts() repo.CartRepository           { return r.carts }
func (r *TxReposMock) CartItems() repo.CartItemRepository   { return r.cartItems }
func (r *TxReposMock) Products() repo.ProductRepository     { return r.products }
func (r *TxReposMock) Combos() repo.ComboRepository         { return r.combos }
func (r *TxReposMock) Vouchers() repo.VoucherRepository     { return r.vouchers }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) HasDeliveredProduct(ctx context.Context, userID int64, productID int64) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	args := m.Called(ctx, cartID, status)
	return args.Error(0)
}

func (m *CartRepoMock) Clear(ctx context.Context, cartID int64) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) UpsertLine(ctx context.Context, cartID int64, kind model.ItemKind, refID int64, addQty int64, unitPriceSnapshot int64) error {
	args := m.Called(ctx, cartID, kind, refID, addQty, unitPriceSnapshot)
	return args.Error(0)
}

func (m *CartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	args := m.Called(ctx, cartItemID, qty)
	return args.Error(0)
}

func (m *CartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	args := m.Called(ctx, cartItemID)
	return args.Error(0)
}

func (m *CartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	panic("not used in usecase tests")
}

func (m *CartItemRepoMock) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	args := m.Called(ctx, cartItemID, userID)
	return args.Bool(0), args.Error(1)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	panic("not used in usecase tests")
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	panic("not used in usecase tests")
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	panic("not used in usecase tests")
}

func (m *ProductRepoMock) Delete(ctx context.Context, id int64) error {
	panic("not used in usecase tests")
}

func (m *ProductRepoMock) IsReferenced(ctx context.Context, id int64) (bool, error) {
	panic("not used in usecase tests")
}

type ComboRepoMock struct{ mock.Mock }

func (m *ComboRepoMock) List(ctx context.Context, q repo.ComboListQuery) ([]model.Combo, int64, error) {
	panic("not used in usecase tests")
}

func (m *ComboRepoMock) FindByID(ctx context.Context, id int64) (model.Combo, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Combo)
	return c, args.Error(1)
}

func (m *ComboRepoMock) Create(ctx context.Context, c model.Combo) (model.Combo, error) {
	panic("not used in usecase tests")
}

func (m *ComboRepoMock) Update(ctx context.Context, c model.Combo) error {
	panic("not used in usecase tests")
}

func (m *ComboRepoMock) Delete(ctx context.Context, id int64) error {
	panic("not used in usecase tests")
}

func (m *ComboRepoMock) IsReferenced(ctx context.Context, id int64) (bool, error) {
	panic("not used in usecase tests")
}

type VoucherRepoMock struct{ mock.Mock }

func (m *VoucherRepoMock) FindByCode(ctx context.Context, code string) (model.Voucher, error) {
	args := m.Called(ctx, code)
	v, _ := args.Get(0).(model.Voucher)
	return v, args.Error(1)
}

func (m *VoucherRepoMock) FindByCodeForUpdate(ctx context.Context, code string) (model.Voucher, error) {
	args := m.Called(ctx, code)
	v, _ := args.Get(0).(model.Voucher)
	return v, args.Error(1)
}

func (m *VoucherRepoMock) FindByID(ctx context.Context, id int64) (model.Voucher, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(model.Voucher)
	return v, args.Error(1)
}

func (m *VoucherRepoMock) List(ctx context.Context, page int, limit int) ([]model.Voucher, int64, error) {
	panic("not used in usecase tests")
}

func (m *VoucherRepoMock) Create(ctx context.Context, v model.Voucher) (model.Voucher, error) {
	args := m.Called(ctx, v)
	created, _ := args.Get(0).(model.Voucher)
	return created, args.Error(1)
}

func (m *VoucherRepoMock) Update(ctx context.Context, v model.Voucher) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *VoucherRepoMock) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *VoucherRepoMock) IncrementUsage(ctx context.Context, voucherID int64) (bool, error) {
	args := m.Called(ctx, voucherID)
	return args.Bool(0), args.Error(1)
}

func (m *VoucherRepoMock) FindGrant(ctx context.Context, userID int64, voucherID int64) (model.UserVoucher, error) {
	args := m.Called(ctx, userID, voucherID)
	g, _ := args.Get(0).(model.UserVoucher)
	return g, args.Error(1)
}

func (m *VoucherRepoMock) FindGrantForUpdate(ctx context.Context, userID int64, voucherID int64) (model.UserVoucher, error) {
	args := m.Called(ctx, userID, voucherID)
	g, _ := args.Get(0).(model.UserVoucher)
	return g, args.Error(1)
}

func (m *VoucherRepoMock) IncrementGrantUsage(ctx context.Context, grantID int64, perUserLimit *int64) (bool, error) {
	args := m.Called(ctx, grantID, perUserLimit)
	return args.Bool(0), args.Error(1)
}

func (m *VoucherRepoMock) CreateGrant(ctx context.Context, g model.UserVoucher) (model.UserVoucher, error) {
	panic("not used in usecase tests")
}

func (m *VoucherRepoMock) ListGrantsByVoucher(ctx context.Context, voucherID int64) ([]model.UserVoucher, error) {
	panic("not used in usecase tests")
}

func (m *VoucherRepoMock) ListGrantsByUser(ctx context.Context, userID int64) ([]model.UserVoucher, error) {
	args := m.Called(ctx, userID)
	gs, _ := args.Get(0).([]model.UserVoucher)
	return gs, args.Error(1)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	panic("not used in usecase tests")
}

type ReviewRepoMock struct{ mock.Mock }

func (m *ReviewRepoMock) ListByProduct(ctx context.Context, productID int64, page int, limit int) ([]repo.ReviewWithUser, int64, error) {
	panic("not used in usecase tests")
}

func (m *ReviewRepoMock) Summaries(ctx context.Context, productIDs []int64) (map[int64]repo.RatingSummary, error) {
	panic("not used in usecase tests")
}

func (m *ReviewRepoMock) FindByID(ctx context.Context, id int64) (model.Review, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(model.Review)
	return r, args.Error(1)
}

func (m *ReviewRepoMock) ExistsByUserAndProduct(ctx context.Context, userID int64, productID int64) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *ReviewRepoMock) Create(ctx context.Context, r model.Review) (model.Review, error) {
	args := m.Called(ctx, r)
	rv, _ := args.Get(0).(model.Review)
	return rv, args.Error(1)
}

func (m *ReviewRepoMock) Update(ctx context.Context, r model.Review) error {
	panic("not used in usecase tests")
}

func (m *ReviewRepoMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	args := m.Called(ctx, phone)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) IncrementTokenVersion(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *UserRepoMock) SetActive(ctx context.Context, userID int64, active bool) error {
	panic("not used in usecase tests")
}

func (m *UserRepoMock) List(ctx context.Context, f repo.UserListFilter) ([]model.User, int64, error) {
	panic("not used in usecase tests")
}

// =====================
// Publisher / Metrics
// =====================

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, ev model.OrderEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// 呼ばれた値を記録するだけ
type metricsRecorder struct {
	mu       sync.Mutex
	placed   []int64
	redeemed []string
	changed  []string
}

func (r *metricsRecorder) OrderPlaced(_ context.Context, _ bool, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed = append(r.placed, total)
}

func (r *metricsRecorder) VoucherRedeemed(_ context.Context, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redeemed = append(r.redeemed, code)
}

func (r *metricsRecorder) StatusChanged(_ context.Context, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, to)
}

// =====================
// Helpers
// =====================

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

// HTTPErrorのstatus/kindを確認して返す
func requireHTTPError(t *testing.T, err error, status int, kind usecase.ErrorKind) *usecase.HTTPError {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "want *usecase.HTTPError, got %v", err)
	assert.Equal(t, status, he.Status)
	assert.Equal(t, kind, he.Kind)
	return he
}

func int64Ptr(v int64) *int64 { return &v }

// 今日を挟んだ有効期間
func openWindow() (time.Time, *time.Time) {
	from := time.Now().Add(-24 * time.Hour)
	to := time.Now().Add(24 * time.Hour)
	return from, &to
}
