package repository

import (
	"context"

	"fooddelivery/internal/domain/model"
)

type UserListFilter struct {
	Q     string
	Role  string
	Page  int
	Limit int
}

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（phone/emailの重複はErrConflict）
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error
	SetActive(ctx context.Context, userID int64, active bool) error
	//管理者用の一覧
	List(ctx context.Context, f UserListFilter) ([]model.User, int64, error)
}
