package repository

import (
	"context"

	"fooddelivery/internal/domain/model"
)

type ComboListQuery struct {
	Page            int
	Limit           int
	CategoryID      *int64
	IncludeInactive bool
}

// Itemsは常に一緒に読み書きする
type ComboRepository interface {
	List(ctx context.Context, q ComboListQuery) ([]model.Combo, int64, error)
	FindByID(ctx context.Context, id int64) (model.Combo, error)
	Create(ctx context.Context, c model.Combo) (model.Combo, error)
	//明細は丸ごと置き換える
	Update(ctx context.Context, c model.Combo) error
	Delete(ctx context.Context, id int64) error
	IsReferenced(ctx context.Context, id int64) (bool, error)
}
