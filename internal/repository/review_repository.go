package repository

import (
	"context"

	"fooddelivery/internal/domain/model"
)

type ReviewWithUser struct {
	model.Review `gorm:"embedded"`
	UserName     string `json:"user_name"`
}

type RatingSummary struct {
	ProductID     int64   `json:"product_id"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
}

type ReviewRepository interface {
	ListByProduct(ctx context.Context, productID int64, page int, limit int) ([]ReviewWithUser, int64, error)
	//商品ごとの平均評価（レビューが無い商品はmapに入らない）
	Summaries(ctx context.Context, productIDs []int64) (map[int64]RatingSummary, error)
	FindByID(ctx context.Context, id int64) (model.Review, error)
	ExistsByUserAndProduct(ctx context.Context, userID int64, productID int64) (bool, error)
	Create(ctx context.Context, r model.Review) (model.Review, error)
	Update(ctx context.Context, r model.Review) error
	Delete(ctx context.Context, id int64) error
}
