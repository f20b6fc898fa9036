package usecase

import (
	"context"
	"errors"

	"fooddelivery/internal/domain/model"
	"fooddelivery/internal/domain/policy"
	repo "fooddelivery/internal/repository"

	"go.uber.org/zap"
)

// CartUsecase は /cart の業務ロジック。
// 表示用の単価は追加時点のスナップショット。注文時は必ず取り直す。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	comboRepo    repo.ComboRepository
	log          *zap.Logger
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	comboRepo repo.ComboRepository,
	log *zap.Logger,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		comboRepo:    comboRepo,
		log:          log,
	}
}

type CartItemResponse struct {
	ID          int64          `json:"id"`
	Kind        model.ItemKind `json:"kind"`
	ReferenceID int64          `json:"reference_id"`
	Name        string         `json:"name"`
	UnitPrice   int64          `json:"unit_price"`
	Quantity    int64          `json:"quantity"`
	LineTotal   int64          `json:"line_total"`
	Available   bool           `json:"available"`
}

type CartResponse struct {
	Items     []CartItemResponse `json:"items"`
	Total     int64              `json:"total"`
	ItemCount int64              `json:"item_count"`
}

// product_idかcombo_idのどちらか一方
type AddCartInput struct {
	ProductID *int64
	ComboID   *int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// カート取得（無ければACTIVEを作って空を返す）
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, unauthorizedError()
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		u.log.Error("get cart failed", zap.Int64("user_id", userID), zap.Error(err))
		return CartResponse{}, dbError()
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// カートに追加（同じ商品/コンボは数量加算）
func (u *CartUsecase) AddItem(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, unauthorizedError()
	}
	if (in.ProductID == nil) == (in.ComboID == nil) {
		return CartResponse{}, validationError("exactly one of product_id or combo_id is required")
	}
	if err := policy.ValidateQuantity(in.Quantity); err != nil {
		return CartResponse{}, validationError(err.Error())
	}

	var kind model.ItemKind
	var refID, price int64
	if in.ProductID != nil {
		p, err := u.productRepo.FindByID(ctx, *in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, notFoundError("product not found")
		}
		if err != nil {
			return CartResponse{}, dbError()
		}
		if !p.IsActive {
			return CartResponse{}, inactiveItemError("item no longer available")
		}
		kind, refID, price = model.ItemKindProduct, p.ID, p.Price
	} else {
		c, err := u.comboRepo.FindByID(ctx, *in.ComboID)
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, notFoundError("combo not found")
		}
		if err != nil {
			return CartResponse{}, dbError()
		}
		if !c.IsActive {
			return CartResponse{}, inactiveItemError("item no longer available")
		}
		kind, refID, price = model.ItemKindCombo, c.ID, c.Price
	}

	// ACTIVEカート取得（無ければ作成）
	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, dbError()
	}

	if err := u.cartItemRepo.UpsertLine(ctx, cart.ID, kind, refID, in.Quantity, price); err != nil {
		if errors.Is(err, policy.ErrInvalidQuantity) {
			return CartResponse{}, validationError(err.Error())
		}
		u.log.Error("cart upsert failed", zap.Int64("cart_id", cart.ID), zap.Error(err))
		return CartResponse{}, dbError()
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// 数量変更（所有チェック）
func (u *CartUsecase) UpdateItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, unauthorizedError()
	}
	if cartItemID <= 0 {
		return CartResponse{}, validationError("invalid id")
	}
	if err := policy.ValidateQuantity(in.Quantity); err != nil {
		return CartResponse{}, validationError(err.Error())
	}

	if err := u.checkOwner(ctx, userID, cartItemID); err != nil {
		return CartResponse{}, err
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, in.Quantity); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, notFoundError("cart item not found")
		}
		return CartResponse{}, dbError()
	}
	return u.currentCart(ctx, userID)
}

// 明細削除
func (u *CartUsecase) DeleteItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, unauthorizedError()
	}
	if cartItemID <= 0 {
		return CartResponse{}, validationError("invalid id")
	}

	if err := u.checkOwner(ctx, userID, cartItemID); err != nil {
		return CartResponse{}, err
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, notFoundError("cart item not found")
		}
		return CartResponse{}, dbError()
	}
	return u.currentCart(ctx, userID)
}

func (u *CartUsecase) Clear(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, unauthorizedError()
	}
	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{Items: []CartItemResponse{}}, nil
	}
	if err != nil {
		return CartResponse{}, dbError()
	}
	if err := u.cartRepo.Clear(ctx, cart.ID); err != nil {
		return CartResponse{}, dbError()
	}
	return CartResponse{Items: []CartItemResponse{}}, nil
}

// 他人の明細は「存在しない扱い」
func (u *CartUsecase) checkOwner(ctx context.Context, userID, cartItemID int64) error {
	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return dbError()
	}
	if !owned {
		return notFoundError("cart item not found")
	}
	return nil
}

func (u *CartUsecase) currentCart(ctx context.Context, userID int64) (CartResponse, error) {
	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, dbError()
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// cartIDの明細をまとめてCartResponseを作る。非公開になったものは合計に含めない
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, dbError()
	}

	productIDs := make([]int64, 0, len(items))
	for _, it := range items {
		if it.Kind == model.ItemKindProduct && it.ProductID != nil {
			productIDs = append(productIDs, *it.ProductID)
		}
	}
	products, err := u.productRepo.FindByIDs(ctx, productIDs)
	if err != nil {
		return CartResponse{}, dbError()
	}
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	resp := CartResponse{Items: make([]CartItemResponse, 0, len(items))}
	for _, it := range items {
		line := CartItemResponse{
			ID:          it.ID,
			Kind:        it.Kind,
			ReferenceID: it.ReferenceID(),
			UnitPrice:   it.UnitPriceSnapshot,
			Quantity:    it.Quantity,
			LineTotal:   policy.LineTotal(it.UnitPriceSnapshot, it.Quantity),
		}

		switch it.Kind {
		case model.ItemKindProduct:
			p, ok := byID[line.ReferenceID]
			if !ok {
				continue
			}
			line.Name, line.Available = p.Name, p.IsActive
		case model.ItemKindCombo:
			c, err := u.comboRepo.FindByID(ctx, line.ReferenceID)
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			if err != nil {
				return CartResponse{}, dbError()
			}
			line.Name, line.Available = c.Name, c.IsActive
		}

		resp.Items = append(resp.Items, line)
		if line.Available {
			resp.Total += line.LineTotal
			resp.ItemCount += line.Quantity
		}
	}
	return resp, nil
}
