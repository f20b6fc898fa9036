package repository

import (
	"context"

	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"

	"gorm.io/gorm"
)

type ComboGormRepository struct {
	db *gorm.DB
}

func NewComboGormRepository(db *gorm.DB) *ComboGormRepository {
	return &ComboGormRepository{db: db}
}

func (r *ComboGormRepository) List(ctx context.Context, q repo.ComboListQuery) ([]model.Combo, int64, error) {
	page, limit := normalizePage(q.Page, q.Limit, 20, 100)

	tx := r.db.WithContext(ctx).Model(&model.Combo{})
	if !q.IncludeInactive {
		tx = tx.Where("is_active = ?", true)
	}
	if q.CategoryID != nil {
		tx = tx.Where("category_id = ?", *q.CategoryID)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return []model.Combo{}, 0, err
	}

	var combos []model.Combo
	err := tx.Preload("Items").
		Order("created_at desc").Order("id desc").
		Limit(limit).Offset((page - 1) * limit).
		Find(&combos).Error
	if err != nil {
		return []model.Combo{}, 0, err
	}
	return combos, total, nil
}

func (r *ComboGormRepository) FindByID(ctx context.Context, id int64) (model.Combo, error) {
	var c model.Combo
	if err := r.db.WithContext(ctx).Preload("Items").First(&c, id).Error; err != nil {
		return model.Combo{}, mapFindError(err)
	}
	return c, nil
}

// Itemsもまとめて作る（gormのassociation保存）
func (r *ComboGormRepository) Create(ctx context.Context, c model.Combo) (model.Combo, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Combo{}, mapWriteError(err)
	}
	return c, nil
}

// 本体を更新して明細を入れ替える
func (r *ComboGormRepository) Update(ctx context.Context, c model.Combo) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Combo{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
			"category_id":    c.CategoryID,
			"name":           c.Name,
			"description":    c.Description,
			"price":          c.Price,
			"original_price": c.OriginalPrice,
			"image_url":      c.ImageURL,
			"is_active":      c.IsActive,
		})
		if res.Error != nil {
			return mapWriteError(res.Error)
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		if err := tx.Where("combo_id = ?", c.ID).Delete(&model.ComboItem{}).Error; err != nil {
			return err
		}
		if len(c.Items) == 0 {
			return nil
		}

		items := make([]model.ComboItem, 0, len(c.Items))
		for _, it := range c.Items {
			items = append(items, model.ComboItem{ComboID: c.ID, ProductID: it.ProductID, Quantity: it.Quantity})
		}
		return mapWriteError(tx.Create(&items).Error)
	})
}

func (r *ComboGormRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("combo_id = ?", id).Delete(&model.ComboItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Combo{}, id)
		if res.Error != nil {
			return mapWriteError(res.Error)
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

func (r *ComboGormRepository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.OrderItem{}).Where("combo_id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
