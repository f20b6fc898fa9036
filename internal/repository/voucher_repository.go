package repository

import (
	"context"

	"fooddelivery/internal/domain/model"
)

// 割引コードと利用権の保存・取得の約束。
// ForUpdate系と Increment系は注文Txの中で使う。
type VoucherRepository interface {
	FindByCode(ctx context.Context, code string) (model.Voucher, error)
	FindByCodeForUpdate(ctx context.Context, code string) (model.Voucher, error)
	FindByID(ctx context.Context, id int64) (model.Voucher, error)
	List(ctx context.Context, page int, limit int) ([]model.Voucher, int64, error)
	Create(ctx context.Context, v model.Voucher) (model.Voucher, error)
	Update(ctx context.Context, v model.Voucher) error
	Deactivate(ctx context.Context, id int64) error

	//used_count < usage_limit のときだけ+1。falseなら上限到達
	IncrementUsage(ctx context.Context, voucherID int64) (bool, error)

	FindGrant(ctx context.Context, userID int64, voucherID int64) (model.UserVoucher, error)
	FindGrantForUpdate(ctx context.Context, userID int64, voucherID int64) (model.UserVoucher, error)
	//perUserLimitがnilなら無条件で+1
	IncrementGrantUsage(ctx context.Context, grantID int64, perUserLimit *int64) (bool, error)
	CreateGrant(ctx context.Context, g model.UserVoucher) (model.UserVoucher, error)
	ListGrantsByVoucher(ctx context.Context, voucherID int64) ([]model.UserVoucher, error)
	//Voucherをpreloadして返す
	ListGrantsByUser(ctx context.Context, userID int64) ([]model.UserVoucher, error)
}
