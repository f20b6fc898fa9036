package repository

import (
	"context"

	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VoucherGormRepository struct {
	db *gorm.DB
}

func NewVoucherGormRepository(db *gorm.DB) *VoucherGormRepository {
	return &VoucherGormRepository{db: db}
}

func (r *VoucherGormRepository) FindByCode(ctx context.Context, code string) (model.Voucher, error) {
	var v model.Voucher
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&v).Error; err != nil {
		return model.Voucher{}, mapFindError(err)
	}
	return v, nil
}

// 注文Tx内で使う。同じコードの同時利用はここで直列になる
func (r *VoucherGormRepository) FindByCodeForUpdate(ctx context.Context, code string) (model.Voucher, error) {
	var v model.Voucher
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&v).Error
	if err != nil {
		return model.Voucher{}, mapFindError(err)
	}
	return v, nil
}

func (r *VoucherGormRepository) FindByID(ctx context.Context, id int64) (model.Voucher, error) {
	var v model.Voucher
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return model.Voucher{}, mapFindError(err)
	}
	return v, nil
}

func (r *VoucherGormRepository) List(ctx context.Context, page int, limit int) ([]model.Voucher, int64, error) {
	page, limit = normalizePage(page, limit, 20, 100)

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Voucher{}).Count(&total).Error; err != nil {
		return []model.Voucher{}, 0, err
	}

	var items []model.Voucher
	err := r.db.WithContext(ctx).
		Order("id desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&items).Error
	if err != nil {
		return []model.Voucher{}, 0, err
	}
	return items, total, nil
}

func (r *VoucherGormRepository) Create(ctx context.Context, v model.Voucher) (model.Voucher, error) {
	if err := r.db.WithContext(ctx).Create(&v).Error; err != nil {
		return model.Voucher{}, mapWriteError(err)
	}
	return v, nil
}

// used_countは更新しない
func (r *VoucherGormRepository) Update(ctx context.Context, v model.Voucher) error {
	res := r.db.WithContext(ctx).Model(&model.Voucher{}).Where("id = ?", v.ID).Updates(map[string]interface{}{
		"code":                v.Code,
		"name":                v.Name,
		"description":         v.Description,
		"discount_type":       v.DiscountType,
		"discount_value":      v.DiscountValue,
		"min_order_amount":    v.MinOrderAmount,
		"max_discount_amount": v.MaxDiscountAmount,
		"usage_limit":         v.UsageLimit,
		"per_user_limit":      v.PerUserLimit,
		"valid_from":          v.ValidFrom,
		"valid_to":            v.ValidTo,
		"is_active":           v.IsActive,
	})
	if res.Error != nil {
		return mapWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 利用履歴が残るので論理削除のみ
func (r *VoucherGormRepository) Deactivate(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&model.Voucher{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *VoucherGormRepository) IncrementUsage(ctx context.Context, voucherID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Voucher{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", voucherID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *VoucherGormRepository) FindGrant(ctx context.Context, userID int64, voucherID int64) (model.UserVoucher, error) {
	var g model.UserVoucher
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND voucher_id = ?", userID, voucherID).
		First(&g).Error
	if err != nil {
		return model.UserVoucher{}, mapFindError(err)
	}
	return g, nil
}

func (r *VoucherGormRepository) FindGrantForUpdate(ctx context.Context, userID int64, voucherID int64) (model.UserVoucher, error) {
	var g model.UserVoucher
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND voucher_id = ?", userID, voucherID).
		First(&g).Error
	if err != nil {
		return model.UserVoucher{}, mapFindError(err)
	}
	return g, nil
}

func (r *VoucherGormRepository) IncrementGrantUsage(ctx context.Context, grantID int64, perUserLimit *int64) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.UserVoucher{}).Where("id = ?", grantID)
	if perUserLimit != nil {
		q = q.Where("used_count < ?", *perUserLimit)
	}
	res := q.UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// 同じユーザーに二重付与はErrConflict
func (r *VoucherGormRepository) CreateGrant(ctx context.Context, g model.UserVoucher) (model.UserVoucher, error) {
	g.Voucher = nil
	if err := r.db.WithContext(ctx).Create(&g).Error; err != nil {
		return model.UserVoucher{}, mapWriteError(err)
	}
	return g, nil
}

func (r *VoucherGormRepository) ListGrantsByVoucher(ctx context.Context, voucherID int64) ([]model.UserVoucher, error) {
	var items []model.UserVoucher
	if err := r.db.WithContext(ctx).Where("voucher_id = ?", voucherID).Order("id asc").Find(&items).Error; err != nil {
		return []model.UserVoucher{}, err
	}
	return items, nil
}

func (r *VoucherGormRepository) ListGrantsByUser(ctx context.Context, userID int64) ([]model.UserVoucher, error) {
	var items []model.UserVoucher
	err := r.db.WithContext(ctx).
		Preload("Voucher").
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.UserVoucher{}, err
	}
	return items, nil
}
