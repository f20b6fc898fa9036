package repository

import (
	"context"

	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"

	"gorm.io/gorm"
)

type CategoryGormRepository struct {
	db *gorm.DB
}

func NewCategoryGormRepository(db *gorm.DB) *CategoryGormRepository {
	return &CategoryGormRepository{db: db}
}

func (r *CategoryGormRepository) List(ctx context.Context, includeInactive bool) ([]model.Category, error) {
	q := r.db.WithContext(ctx).Model(&model.Category{})
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}

	var items []model.Category
	if err := q.Order("name asc").Find(&items).Error; err != nil {
		return []model.Category{}, err
	}
	return items, nil
}

func (r *CategoryGormRepository) FindByID(ctx context.Context, id int64) (model.Category, error) {
	var c model.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return model.Category{}, mapFindError(err)
	}
	return c, nil
}

func (r *CategoryGormRepository) Create(ctx context.Context, c model.Category) (model.Category, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Category{}, mapWriteError(err)
	}
	return c, nil
}

func (r *CategoryGormRepository) Update(ctx context.Context, c model.Category) error {
	res := r.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"name":        c.Name,
		"description": c.Description,
		"image_url":   c.ImageURL,
		"is_active":   c.IsActive,
	})
	if res.Error != nil {
		return mapWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CategoryGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Category{}, id)
	if res.Error != nil {
		return mapWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CategoryGormRepository) CountChildren(ctx context.Context, id int64) (int64, error) {
	var products, combos int64
	if err := r.db.WithContext(ctx).Model(&model.Product{}).Where("category_id = ?", id).Count(&products).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Model(&model.Combo{}).Where("category_id = ?", id).Count(&combos).Error; err != nil {
		return 0, err
	}
	return products + combos, nil
}
