package usecase

import (
	"context"
	"errors"
	"strings"

	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductUsecase struct {
	productRepo  repo.ProductRepository
	categoryRepo repo.CategoryRepository
	reviewRepo   repo.ReviewRepository
	auditRepo    repo.AuditLogRepository
	log          *zap.Logger
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	categoryRepo repo.CategoryRepository,
	reviewRepo repo.ReviewRepository,
	auditRepo repo.AuditLogRepository,
	log *zap.Logger,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		reviewRepo:   reviewRepo,
		auditRepo:    auditRepo,
		log:          log,
	}
}

// 一覧・詳細で返す形（評価つき）
type ProductView struct {
	model.Product
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page            int
	Limit           int
	Q               string
	CategoryID      *int64
	MinPrice        *int64
	MaxPrice        *int64
	Sort            string
	IncludeInactive bool
}

type ProductListOutput struct {
	Items []ProductView `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (u *ProductUsecase) List(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, validationError("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, validationError("invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, validationError("q too long")
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		return ProductListOutput{}, validationError("min_price must be >= 0")
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return ProductListOutput{}, validationError("max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return ProductListOutput{}, validationError("min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "name":
	default:
		return ProductListOutput{}, validationError("invalid sort")
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:            in.Page,
		Limit:           in.Limit,
		Q:               strings.TrimSpace(in.Q),
		CategoryID:      in.CategoryID,
		MinPrice:        in.MinPrice,
		MaxPrice:        in.MaxPrice,
		Sort:            in.Sort,
		IncludeInactive: in.IncludeInactive,
	})
	if err != nil {
		u.log.Error("list products failed", zap.Error(err))
		return ProductListOutput{}, dbError()
	}

	views, err := u.withRatings(ctx, items)
	if err != nil {
		return ProductListOutput{}, err
	}
	return ProductListOutput{
		Items: views,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) Get(ctx context.Context, productID int64, includeInactive bool) (ProductView, error) {
	if productID <= 0 {
		return ProductView{}, validationError("invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return ProductView{}, notFoundError("product not found")
	}
	if err != nil {
		return ProductView{}, dbError()
	}
	if !p.IsActive && !includeInactive {
		return ProductView{}, notFoundError("product not found")
	}

	views, err := u.withRatings(ctx, []model.Product{p})
	if err != nil {
		return ProductView{}, err
	}
	return views[0], nil
}

// 平均は小数1桁
func (u *ProductUsecase) withRatings(ctx context.Context, items []model.Product) ([]ProductView, error) {
	ids := make([]int64, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	sums, err := u.reviewRepo.Summaries(ctx, ids)
	if err != nil {
		u.log.Error("rating summaries failed", zap.Error(err))
		return nil, dbError()
	}

	views := make([]ProductView, 0, len(items))
	for _, p := range items {
		v := ProductView{Product: p}
		if s, ok := sums[p.ID]; ok {
			v.AverageRating = roundRating(s.AverageRating)
			v.ReviewCount = s.ReviewCount
		}
		views = append(views, v)
	}
	return views, nil
}

func roundRating(avg float64) float64 {
	return decimal.NewFromFloat(avg).Round(1).InexactFloat64()
}

type AdminProductInput struct {
	CategoryID  int64
	Name        string
	Description string
	Price       int64
	ImageURL    string
	IsActive    *bool
}

func (u *ProductUsecase) validateInput(ctx context.Context, in AdminProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError("name required")
	}
	if in.Price < 0 {
		return validationError("price must be >= 0")
	}
	if in.CategoryID <= 0 {
		return validationError("category_id required")
	}
	if _, err := u.categoryRepo.FindByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("category not found")
		}
		return dbError()
	}
	return nil
}

func (u *ProductUsecase) AdminCreate(ctx context.Context, adminUserID int64, in AdminProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, unauthorizedError()
	}
	if err := u.validateInput(ctx, in); err != nil {
		return model.Product{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	p, err := u.productRepo.Create(ctx, model.Product{
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		IsActive:    active,
	})
	if err != nil {
		u.log.Error("create product failed", zap.Error(err))
		return model.Product{}, dbError()
	}

	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionCreate,
		model.AuditResourceProduct, p.ID, nil, p); err != nil {
		return model.Product{}, dbError()
	}
	return p, nil
}

func (u *ProductUsecase) AdminUpdate(ctx context.Context, adminUserID int64, productID int64, in AdminProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, unauthorizedError()
	}
	if productID <= 0 {
		return model.Product{}, validationError("invalid product id")
	}
	if err := u.validateInput(ctx, in); err != nil {
		return model.Product{}, err
	}

	before, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFoundError("product not found")
	}
	if err != nil {
		return model.Product{}, dbError()
	}

	after := before
	after.CategoryID = in.CategoryID
	after.Name = strings.TrimSpace(in.Name)
	after.Description = in.Description
	after.Price = in.Price
	after.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.IsActive != nil {
		after.IsActive = *in.IsActive
	}

	err = u.productRepo.Update(ctx, after)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFoundError("product not found")
	}
	if err != nil {
		return model.Product{}, dbError()
	}

	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionUpdate,
		model.AuditResourceProduct, productID, before, after); err != nil {
		return model.Product{}, dbError()
	}
	return after, nil
}

// 注文明細・コンボから参照されている商品は消せない（非公開にする）
func (u *ProductUsecase) AdminDelete(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return unauthorizedError()
	}
	if productID <= 0 {
		return validationError("invalid product id")
	}

	before, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundError("product not found")
	}
	if err != nil {
		return dbError()
	}

	referenced, err := u.productRepo.IsReferenced(ctx, productID)
	if err != nil {
		return dbError()
	}
	if referenced {
		return conflictError("product is referenced by orders or combos")
	}

	err = u.productRepo.Delete(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundError("product not found")
	}
	if errors.Is(err, repo.ErrConflict) {
		return conflictError("product is referenced by orders or combos")
	}
	if err != nil {
		return dbError()
	}

	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionDelete,
		model.AuditResourceProduct, productID, before, nil); err != nil {
		return dbError()
	}
	return nil
}
