package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"

	"go.uber.org/zap"
)

const maxReviewComment = 1000

type ReviewUsecase struct {
	reviews  repo.ReviewRepository
	products repo.ProductRepository
	orders   repo.OrderRepository
	log      *zap.Logger
}

func NewReviewUsecase(
	reviews repo.ReviewRepository,
	products repo.ProductRepository,
	orders repo.OrderRepository,
	log *zap.Logger,
) *ReviewUsecase {
	return &ReviewUsecase{reviews: reviews, products: products, orders: orders, log: log}
}

type ReviewInput struct {
	ProductID int64
	Rating    int
	Comment   string
}

type ProductReviewsOutput struct {
	Items         []repo.ReviewWithUser `json:"items"`
	AverageRating float64               `json:"average_rating"`
	Total         int64                 `json:"total"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
}

func validateReview(rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return validationError("rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(comment) > maxReviewComment {
		return validationError("comment too long")
	}
	return nil
}

func (u *ReviewUsecase) ListByProduct(ctx context.Context, productID int64, page, limit int) (ProductReviewsOutput, error) {
	if productID <= 0 {
		return ProductReviewsOutput{}, validationError("invalid product id")
	}
	if page < 1 {
		return ProductReviewsOutput{}, validationError("invalid page")
	}
	if limit < 1 || limit > 100 {
		return ProductReviewsOutput{}, validationError("invalid limit")
	}

	if _, err := u.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ProductReviewsOutput{}, notFoundError("product not found")
		}
		return ProductReviewsOutput{}, dbError()
	}

	items, total, err := u.reviews.ListByProduct(ctx, productID, page, limit)
	if err != nil {
		u.log.Error("list reviews failed", zap.Int64("product_id", productID), zap.Error(err))
		return ProductReviewsOutput{}, dbError()
	}
	sums, err := u.reviews.Summaries(ctx, []int64{productID})
	if err != nil {
		return ProductReviewsOutput{}, dbError()
	}

	return ProductReviewsOutput{
		Items:         items,
		AverageRating: roundRating(sums[productID].AverageRating),
		Total:         total,
		Page:          page,
		Limit:         limit,
	}, nil
}

// 配達済み注文に含まれる商品だけレビューできる。1ユーザー1商品1件
func (u *ReviewUsecase) Create(ctx context.Context, userID int64, in ReviewInput) (model.Review, error) {
	if userID <= 0 {
		return model.Review{}, unauthorizedError()
	}
	if in.ProductID <= 0 {
		return model.Review{}, validationError("invalid product id")
	}
	comment := strings.TrimSpace(in.Comment)
	if err := validateReview(in.Rating, comment); err != nil {
		return model.Review{}, err
	}

	if _, err := u.products.FindByID(ctx, in.ProductID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Review{}, notFoundError("product not found")
		}
		return model.Review{}, dbError()
	}

	delivered, err := u.orders.HasDeliveredProduct(ctx, userID, in.ProductID)
	if err != nil {
		return model.Review{}, dbError()
	}
	if !delivered {
		return model.Review{}, forbiddenError("you can only review products from delivered orders")
	}

	exists, err := u.reviews.ExistsByUserAndProduct(ctx, userID, in.ProductID)
	if err != nil {
		return model.Review{}, dbError()
	}
	if exists {
		return model.Review{}, conflictError("you have already reviewed this product")
	}

	rv, err := u.reviews.Create(ctx, model.Review{
		UserID:    userID,
		ProductID: in.ProductID,
		Rating:    in.Rating,
		Comment:   comment,
	})
	if errors.Is(err, repo.ErrConflict) {
		return model.Review{}, conflictError("you have already reviewed this product")
	}
	if err != nil {
		u.log.Error("create review failed", zap.Error(err))
		return model.Review{}, dbError()
	}
	return rv, nil
}

// 本人のみ
func (u *ReviewUsecase) Update(ctx context.Context, userID int64, reviewID int64, in ReviewInput) (model.Review, error) {
	if userID <= 0 {
		return model.Review{}, unauthorizedError()
	}
	if reviewID <= 0 {
		return model.Review{}, validationError("invalid review id")
	}
	comment := strings.TrimSpace(in.Comment)
	if err := validateReview(in.Rating, comment); err != nil {
		return model.Review{}, err
	}

	rv, err := u.reviews.FindByID(ctx, reviewID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Review{}, notFoundError("review not found")
	}
	if err != nil {
		return model.Review{}, dbError()
	}
	if rv.UserID != userID {
		return model.Review{}, forbiddenError("forbidden")
	}

	rv.Rating = in.Rating
	rv.Comment = comment
	if err := u.reviews.Update(ctx, rv); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Review{}, notFoundError("review not found")
		}
		return model.Review{}, dbError()
	}
	return rv, nil
}

// 本人か管理者
func (u *ReviewUsecase) Delete(ctx context.Context, actor Actor, reviewID int64) error {
	if actor.UserID <= 0 {
		return unauthorizedError()
	}
	if reviewID <= 0 {
		return validationError("invalid review id")
	}

	rv, err := u.reviews.FindByID(ctx, reviewID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundError("review not found")
	}
	if err != nil {
		return dbError()
	}
	if rv.UserID != actor.UserID && !actor.IsAdmin() {
		return forbiddenError("forbidden")
	}

	if err := u.reviews.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("review not found")
		}
		return dbError()
	}
	return nil
}
