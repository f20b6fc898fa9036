package repository

import (
	"context"

	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"

	"gorm.io/gorm"
)

type ReviewGormRepository struct {
	db *gorm.DB
}

func NewReviewGormRepository(db *gorm.DB) *ReviewGormRepository {
	return &ReviewGormRepository{db: db}
}

// 投稿者名つきで新しい順
func (r *ReviewGormRepository) ListByProduct(ctx context.Context, productID int64, page int, limit int) ([]repo.ReviewWithUser, int64, error) {
	page, limit = normalizePage(page, limit, 20, 100)

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Review{}).
		Where("product_id = ?", productID).
		Count(&total).Error; err != nil {
		return []repo.ReviewWithUser{}, 0, err
	}

	var items []repo.ReviewWithUser
	err := r.db.WithContext(ctx).
		Table("reviews").
		Select("reviews.*, users.name AS user_name").
		Joins("join users on users.id = reviews.user_id").
		Where("reviews.product_id = ?", productID).
		Order("reviews.created_at desc").Order("reviews.id desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(&items).Error
	if err != nil {
		return []repo.ReviewWithUser{}, 0, err
	}
	return items, total, nil
}

func (r *ReviewGormRepository) Summaries(ctx context.Context, productIDs []int64) (map[int64]repo.RatingSummary, error) {
	out := make(map[int64]repo.RatingSummary, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var rows []repo.RatingSummary
	err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Select("product_id, AVG(rating)::float8 AS average_rating, COUNT(*) AS review_count").
		Where("product_id IN ?", productIDs).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, s := range rows {
		out[s.ProductID] = s
	}
	return out, nil
}

func (r *ReviewGormRepository) FindByID(ctx context.Context, id int64) (model.Review, error) {
	var rv model.Review
	if err := r.db.WithContext(ctx).First(&rv, id).Error; err != nil {
		return model.Review{}, mapFindError(err)
	}
	return rv, nil
}

func (r *ReviewGormRepository) ExistsByUserAndProduct(ctx context.Context, userID int64, productID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Review{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ReviewGormRepository) Create(ctx context.Context, rv model.Review) (model.Review, error) {
	if err := r.db.WithContext(ctx).Create(&rv).Error; err != nil {
		return model.Review{}, mapWriteError(err)
	}
	return rv, nil
}

func (r *ReviewGormRepository) Update(ctx context.Context, rv model.Review) error {
	res := r.db.WithContext(ctx).Model(&model.Review{}).Where("id = ?", rv.ID).Updates(map[string]interface{}{
		"rating":  rv.Rating,
		"comment": rv.Comment,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ReviewGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Review{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
