package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"

	"go.uber.org/zap"
)

type ComboUsecase struct {
	combos     repo.ComboRepository
	products   repo.ProductRepository
	categories repo.CategoryRepository
	auditRepo  repo.AuditLogRepository
	log        *zap.Logger
}

func NewComboUsecase(
	combos repo.ComboRepository,
	products repo.ProductRepository,
	categories repo.CategoryRepository,
	auditRepo repo.AuditLogRepository,
	log *zap.Logger,
) *ComboUsecase {
	return &ComboUsecase{
		combos:     combos,
		products:   products,
		categories: categories,
		auditRepo:  auditRepo,
		log:        log,
	}
}

type ComboView struct {
	model.Combo
	DiscountPercent int64 `json:"discount_percent"`
}

type ComboListOutput struct {
	Items []ComboView `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

type ComboItemInput struct {
	ProductID int64
	Quantity  int64
}

type ComboInput struct {
	CategoryID    *int64
	Name          string
	Description   string
	Price         int64
	OriginalPrice int64
	ImageURL      string
	IsActive      *bool
	Items         []ComboItemInput
}

func toComboView(c model.Combo) ComboView {
	if c.Items == nil {
		c.Items = []model.ComboItem{}
	}
	return ComboView{Combo: c, DiscountPercent: c.DiscountPercent()}
}

func (u *ComboUsecase) List(ctx context.Context, q repo.ComboListQuery) (ComboListOutput, error) {
	if q.Page < 1 {
		return ComboListOutput{}, validationError("invalid page")
	}
	if q.Limit < 1 || q.Limit > 100 {
		return ComboListOutput{}, validationError("invalid limit")
	}

	items, total, err := u.combos.List(ctx, q)
	if err != nil {
		u.log.Error("list combos failed", zap.Error(err))
		return ComboListOutput{}, dbError()
	}
	views := make([]ComboView, 0, len(items))
	for _, c := range items {
		views = append(views, toComboView(c))
	}
	return ComboListOutput{Items: views, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

func (u *ComboUsecase) Get(ctx context.Context, id int64, includeInactive bool) (ComboView, error) {
	if id <= 0 {
		return ComboView{}, validationError("invalid combo id")
	}
	c, err := u.combos.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ComboView{}, notFoundError("combo not found")
	}
	if err != nil {
		return ComboView{}, dbError()
	}
	if !c.IsActive && !includeInactive {
		return ComboView{}, notFoundError("combo not found")
	}
	return toComboView(c), nil
}

// 明細の商品は全部存在していること
func (u *ComboUsecase) buildCombo(ctx context.Context, in ComboInput) (model.Combo, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Combo{}, validationError("name required")
	}
	if in.Price < 0 || in.OriginalPrice < 0 {
		return model.Combo{}, validationError("price must be >= 0")
	}
	if len(in.Items) == 0 {
		return model.Combo{}, validationError("items required")
	}

	if in.CategoryID != nil {
		if _, err := u.categories.FindByID(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return model.Combo{}, notFoundError("category not found")
			}
			return model.Combo{}, dbError()
		}
	}

	ids := make([]int64, 0, len(in.Items))
	seen := make(map[int64]bool, len(in.Items))
	items := make([]model.ComboItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return model.Combo{}, validationError("invalid product_id")
		}
		if it.Quantity < 1 {
			return model.Combo{}, validationError("invalid quantity")
		}
		if seen[it.ProductID] {
			return model.Combo{}, validationError("duplicate product in combo")
		}
		seen[it.ProductID] = true
		ids = append(ids, it.ProductID)
		items = append(items, model.ComboItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	found, err := u.products.FindByIDs(ctx, ids)
	if err != nil {
		return model.Combo{}, dbError()
	}
	if len(found) != len(ids) {
		exists := make(map[int64]bool, len(found))
		for _, p := range found {
			exists[p.ID] = true
		}
		for _, id := range ids {
			if !exists[id] {
				return model.Combo{}, notFoundError(fmt.Sprintf("product %d not found", id))
			}
		}
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return model.Combo{
		CategoryID:    in.CategoryID,
		Name:          name,
		Description:   in.Description,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		ImageURL:      strings.TrimSpace(in.ImageURL),
		IsActive:      active,
		Items:         items,
	}, nil
}

func (u *ComboUsecase) AdminCreate(ctx context.Context, adminUserID int64, in ComboInput) (ComboView, error) {
	if adminUserID <= 0 {
		return ComboView{}, unauthorizedError()
	}
	c, err := u.buildCombo(ctx, in)
	if err != nil {
		return ComboView{}, err
	}

	created, err := u.combos.Create(ctx, c)
	if err != nil {
		u.log.Error("create combo failed", zap.Error(err))
		return ComboView{}, dbError()
	}

	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionCreate,
		model.AuditResourceCombo, created.ID, nil, created); err != nil {
		return ComboView{}, dbError()
	}
	return toComboView(created), nil
}

func (u *ComboUsecase) AdminUpdate(ctx context.Context, adminUserID int64, id int64, in ComboInput) (ComboView, error) {
	if adminUserID <= 0 {
		return ComboView{}, unauthorizedError()
	}
	if id <= 0 {
		return ComboView{}, validationError("invalid combo id")
	}

	before, err := u.combos.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ComboView{}, notFoundError("combo not found")
	}
	if err != nil {
		return ComboView{}, dbError()
	}

	c, err := u.buildCombo(ctx, in)
	if err != nil {
		return ComboView{}, err
	}
	c.ID = id
	c.CreatedAt = before.CreatedAt

	err = u.combos.Update(ctx, c)
	if errors.Is(err, repo.ErrNotFound) {
		return ComboView{}, notFoundError("combo not found")
	}
	if err != nil {
		u.log.Error("update combo failed", zap.Int64("combo_id", id), zap.Error(err))
		return ComboView{}, dbError()
	}

	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionUpdate,
		model.AuditResourceCombo, id, before, c); err != nil {
		return ComboView{}, dbError()
	}
	for i := range c.Items {
		c.Items[i].ComboID = id
	}
	return toComboView(c), nil
}

func (u *ComboUsecase) AdminDelete(ctx context.Context, adminUserID int64, id int64) error {
	if adminUserID <= 0 {
		return unauthorizedError()
	}
	if id <= 0 {
		return validationError("invalid combo id")
	}

	before, err := u.combos.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundError("combo not found")
	}
	if err != nil {
		return dbError()
	}

	referenced, err := u.combos.IsReferenced(ctx, id)
	if err != nil {
		return dbError()
	}
	if referenced {
		return conflictError("combo is referenced by orders")
	}

	err = u.combos.Delete(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundError("combo not found")
	}
	if errors.Is(err, repo.ErrConflict) {
		return conflictError("combo is referenced by orders")
	}
	if err != nil {
		return dbError()
	}

	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionDelete,
		model.AuditResourceCombo, id, before, nil); err != nil {
		return dbError()
	}
	return nil
}
