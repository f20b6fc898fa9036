package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"fooddelivery/internal/domain/model"
	"fooddelivery/internal/domain/policy"
	"fooddelivery/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type cartFixture struct {
	carts    *CartRepoMock
	items    *CartItemRepoMock
	products *ProductRepoMock
	combos   *ComboRepoMock
	uc       *usecase.CartUsecase
}

func newCartFixture() *cartFixture {
	f := &cartFixture{
		carts:    new(CartRepoMock),
		items:    new(CartItemRepoMock),
		products: new(ProductRepoMock),
		combos:   new(ComboRepoMock),
	}
	f.uc = usecase.NewCartUsecase(f.carts, f.items, f.products, f.combos, zap.NewNop())
	return f
}

func TestCartUsecase_AddItem_RequiresExactlyOneReference(t *testing.T) {
	f := newCartFixture()

	_, err := f.uc.AddItem(context.Background(), 7, usecase.AddCartInput{
		ProductID: int64Ptr(1),
		ComboID:   int64Ptr(2),
		Quantity:  1,
	})
	requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)

	_, err = f.uc.AddItem(context.Background(), 7, usecase.AddCartInput{Quantity: 1})
	requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)
}

func TestCartUsecase_AddItem_InactiveProduct(t *testing.T) {
	f := newCartFixture()

	f.products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, IsActive: false}, nil)

	_, err := f.uc.AddItem(context.Background(), 7, usecase.AddCartInput{ProductID: int64Ptr(1), Quantity: 1})
	requireHTTPError(t, err, http.StatusUnprocessableEntity, usecase.KindInactiveItem)
	f.carts.AssertNotCalled(t, "GetOrCreateActiveByUserID", mock.Anything, mock.Anything)
}

func TestCartUsecase_AddItem_SnapshotsPriceAndTotals(t *testing.T) {
	f := newCartFixture()
	pid := int64(1)

	f.products.On("FindByID", mock.Anything, pid).
		Return(model.Product{ID: pid, Name: "Bun Cha", Price: 55000, IsActive: true}, nil)
	f.carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(7)).Return(model.Cart{ID: 4, UserID: 7}, nil)
	f.items.On("UpsertLine", mock.Anything, int64(4), model.ItemKindProduct, pid, int64(2), int64(55000)).Return(nil)
	f.items.On("ListByCartID", mock.Anything, int64(4)).Return([]model.CartItem{
		{ID: 9, CartID: 4, Kind: model.ItemKindProduct, ProductID: &pid, Quantity: 2, UnitPriceSnapshot: 55000},
	}, nil)
	f.products.On("FindByIDs", mock.Anything, []int64{pid}).
		Return([]model.Product{{ID: pid, Name: "Bun Cha", Price: 55000, IsActive: true}}, nil)

	out, err := f.uc.AddItem(context.Background(), 7, usecase.AddCartInput{ProductID: &pid, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, out.Items, 1)
	assert.Equal(t, "Bun Cha", out.Items[0].Name)
	assert.Equal(t, int64(110000), out.Total)
	assert.Equal(t, int64(2), out.ItemCount)
	f.items.AssertExpectations(t)
}

func TestCartUsecase_GetCart_InactiveLineExcludedFromTotal(t *testing.T) {
	f := newCartFixture()
	pid := int64(1)
	cid := int64(2)

	f.carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(7)).Return(model.Cart{ID: 4, UserID: 7}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(4)).Return([]model.CartItem{
		{ID: 9, Kind: model.ItemKindProduct, ProductID: &pid, Quantity: 1, UnitPriceSnapshot: 55000},
		{ID: 10, Kind: model.ItemKindCombo, ComboID: &cid, Quantity: 1, UnitPriceSnapshot: 150000},
	}, nil)
	f.products.On("FindByIDs", mock.Anything, []int64{pid}).
		Return([]model.Product{{ID: pid, Name: "Bun Cha", IsActive: true}}, nil)
	f.combos.On("FindByID", mock.Anything, cid).Return(model.Combo{ID: cid, Name: "Family", IsActive: false}, nil)

	out, err := f.uc.GetCart(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, out.Items, 2)
	assert.False(t, out.Items[1].Available)
	assert.Equal(t, int64(55000), out.Total)
	assert.Equal(t, int64(1), out.ItemCount)
}

func TestCartUsecase_UpdateItem_OtherUsersLine_NotFound(t *testing.T) {
	f := newCartFixture()

	f.items.On("IsOwnedByUser", mock.Anything, int64(9), int64(7)).Return(false, nil)

	_, err := f.uc.UpdateItem(context.Background(), 7, 9, usecase.UpdateCartItemInput{Quantity: 3})
	requireHTTPError(t, err, http.StatusNotFound, usecase.KindNotFound)
	f.items.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartUsecase_AddItem_QuantityAboveLimit(t *testing.T) {
	f := newCartFixture()

	_, err := f.uc.AddItem(context.Background(), 7, usecase.AddCartInput{ProductID: int64Ptr(1), Quantity: policy.MaxQuantity + 1})
	requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)
	f.products.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestCartUsecase_AddItem_MergedQuantityAboveLimit(t *testing.T) {
	f := newCartFixture()
	pid := int64(1)

	f.products.On("FindByID", mock.Anything, pid).
		Return(model.Product{ID: pid, Name: "Bun Cha", Price: 55000, IsActive: true}, nil)
	f.carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(7)).Return(model.Cart{ID: 4, UserID: 7}, nil)
	f.items.On("UpsertLine", mock.Anything, int64(4), model.ItemKindProduct, pid, int64(500), int64(55000)).
		Return(policy.ErrInvalidQuantity)

	_, err := f.uc.AddItem(context.Background(), 7, usecase.AddCartInput{ProductID: &pid, Quantity: 500})
	requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)
	f.items.AssertNotCalled(t, "ListByCartID", mock.Anything, mock.Anything)
}

func TestCartUsecase_UpdateItem_QuantityAboveLimit(t *testing.T) {
	f := newCartFixture()

	_, err := f.uc.UpdateItem(context.Background(), 7, 9, usecase.UpdateCartItemInput{Quantity: policy.MaxQuantity + 1})
	requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)
	f.items.AssertNotCalled(t, "IsOwnedByUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartUsecase_UpdateItem_ZeroQuantity(t *testing.T) {
	f := newCartFixture()

	_, err := f.uc.UpdateItem(context.Background(), 7, 9, usecase.UpdateCartItemInput{Quantity: 0})
	requireHTTPError(t, err, http.StatusBadRequest, usecase.KindValidation)
}
