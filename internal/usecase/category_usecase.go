package usecase

import (
	"context"
	"errors"
	"strings"

	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"

	"go.uber.org/zap"
)

type CategoryUsecase struct {
	categories repo.CategoryRepository
	auditRepo  repo.AuditLogRepository
	log        *zap.Logger
}

func NewCategoryUsecase(categories repo.CategoryRepository, auditRepo repo.AuditLogRepository, log *zap.Logger) *CategoryUsecase {
	return &CategoryUsecase{categories: categories, auditRepo: auditRepo, log: log}
}

type CategoryInput struct {
	Name        string
	Description string
	ImageURL    string
	IsActive    *bool
}

func (u *CategoryUsecase) List(ctx context.Context, includeInactive bool) ([]model.Category, error) {
	items, err := u.categories.List(ctx, includeInactive)
	if err != nil {
		u.log.Error("list categories failed", zap.Error(err))
		return []model.Category{}, dbError()
	}
	return items, nil
}

// 非公開カテゴリは管理者以外には見せない
func (u *CategoryUsecase) Get(ctx context.Context, id int64, includeInactive bool) (model.Category, error) {
	if id <= 0 {
		return model.Category{}, validationError("invalid category id")
	}
	c, err := u.categories.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Category{}, notFoundError("category not found")
	}
	if err != nil {
		return model.Category{}, dbError()
	}
	if !c.IsActive && !includeInactive {
		return model.Category{}, notFoundError("category not found")
	}
	return c, nil
}

func (u *CategoryUsecase) AdminCreate(ctx context.Context, adminUserID int64, in CategoryInput) (model.Category, error) {
	if adminUserID <= 0 {
		return model.Category{}, unauthorizedError()
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, validationError("name required")
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	c, err := u.categories.Create(ctx, model.Category{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		IsActive:    active,
	})
	if errors.Is(err, repo.ErrConflict) {
		return model.Category{}, conflictError("category name already exists")
	}
	if err != nil {
		u.log.Error("create category failed", zap.Error(err))
		return model.Category{}, dbError()
	}

	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionCreate,
		model.AuditResourceCategory, c.ID, nil, c); err != nil {
		return model.Category{}, dbError()
	}
	return c, nil
}

func (u *CategoryUsecase) AdminUpdate(ctx context.Context, adminUserID int64, id int64, in CategoryInput) (model.Category, error) {
	if adminUserID <= 0 {
		return model.Category{}, unauthorizedError()
	}
	if id <= 0 {
		return model.Category{}, validationError("invalid category id")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, validationError("name required")
	}

	before, err := u.categories.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Category{}, notFoundError("category not found")
	}
	if err != nil {
		return model.Category{}, dbError()
	}

	after := before
	after.Name = name
	after.Description = strings.TrimSpace(in.Description)
	after.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.IsActive != nil {
		after.IsActive = *in.IsActive
	}

	err = u.categories.Update(ctx, after)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Category{}, notFoundError("category not found")
	}
	if errors.Is(err, repo.ErrConflict) {
		return model.Category{}, conflictError("category name already exists")
	}
	if err != nil {
		return model.Category{}, dbError()
	}

	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionUpdate,
		model.AuditResourceCategory, id, before, after); err != nil {
		return model.Category{}, dbError()
	}
	return after, nil
}

// 商品・コンボが残っているカテゴリは消せない
func (u *CategoryUsecase) AdminDelete(ctx context.Context, adminUserID int64, id int64) error {
	if adminUserID <= 0 {
		return unauthorizedError()
	}
	if id <= 0 {
		return validationError("invalid category id")
	}

	before, err := u.categories.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundError("category not found")
	}
	if err != nil {
		return dbError()
	}

	n, err := u.categories.CountChildren(ctx, id)
	if err != nil {
		return dbError()
	}
	if n > 0 {
		return conflictError("category still has products or combos")
	}

	err = u.categories.Delete(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundError("category not found")
	}
	if errors.Is(err, repo.ErrConflict) {
		return conflictError("category still has products or combos")
	}
	if err != nil {
		return dbError()
	}

	if err := writeAudit(ctx, u.auditRepo, adminUserID, model.AuditActionDelete,
		model.AuditResourceCategory, id, before, nil); err != nil {
		return dbError()
	}
	return nil
}
