package repository

import (
	"context"

	"fooddelivery/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page            int
	Limit           int
	Q               string
	CategoryID      *int64
	MinPrice        *int64
	MaxPrice        *int64
	Sort            string
	IncludeInactive bool
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	Delete(ctx context.Context, id int64) error
	//注文明細・コンボから参照されているか
	IsReferenced(ctx context.Context, id int64) (bool, error)
}
