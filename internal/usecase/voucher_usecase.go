package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"fooddelivery/internal/domain/model"
	"fooddelivery/internal/domain/policy"
	repo "fooddelivery/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// evaluateVoucher はプレビューと注文確定で同じ判定を通す。
// commit=true は注文Tx内から呼ぶこと（行ロック + 条件付き +1）。
func evaluateVoucher(
	ctx context.Context,
	vouchers repo.VoucherRepository,
	log *zap.Logger,
	userID *int64,
	code string,
	subtotal int64,
	now time.Time,
	commit bool,
) (policy.Quote, error) {
	code = policy.NormalizeCode(code)
	if code == "" {
		return policy.Quote{}, validationError("voucher code required")
	}

	check := policy.VoucherCheck{CustomerID: userID, Subtotal: subtotal, Now: now}

	// ゲストはDBを見るまでもなく不可
	if userID != nil {
		var v model.Voucher
		var err error
		if commit {
			v, err = vouchers.FindByCodeForUpdate(ctx, code)
		} else {
			v, err = vouchers.FindByCode(ctx, code)
		}
		switch {
		case err == nil:
			check.Voucher = &v
		case errors.Is(err, repo.ErrNotFound):
		default:
			log.Error("voucher lookup failed", zap.String("code", code), zap.Error(err))
			return policy.Quote{}, dbError()
		}

		if check.Voucher != nil {
			var g model.UserVoucher
			if commit {
				g, err = vouchers.FindGrantForUpdate(ctx, *userID, v.ID)
			} else {
				g, err = vouchers.FindGrant(ctx, *userID, v.ID)
			}
			switch {
			case err == nil:
				check.Grant = &g
			case errors.Is(err, repo.ErrNotFound):
			default:
				log.Error("voucher grant lookup failed", zap.Int64("voucher_id", v.ID), zap.Error(err))
				return policy.Quote{}, dbError()
			}
		}
	}

	quote, err := policy.EvaluateVoucher(check)
	if err != nil {
		if ee, ok := policy.AsEligibilityError(err); ok {
			return policy.Quote{}, eligibilityError(ee)
		}
		return policy.Quote{}, validationError(err.Error())
	}
	if !commit {
		return quote, nil
	}

	//読んでから書くまでの間に埋まった分はここで弾く
	ok, err := vouchers.IncrementUsage(ctx, quote.VoucherID)
	if err != nil {
		log.Error("voucher usage increment failed", zap.Int64("voucher_id", quote.VoucherID), zap.Error(err))
		return policy.Quote{}, dbError()
	}
	if !ok {
		return policy.Quote{}, eligibilityError(policy.Reject(policy.ReasonUsageExhausted))
	}

	ok, err = vouchers.IncrementGrantUsage(ctx, check.Grant.ID, check.Voucher.PerUserLimit)
	if err != nil {
		log.Error("voucher grant increment failed", zap.Int64("grant_id", check.Grant.ID), zap.Error(err))
		return policy.Quote{}, dbError()
	}
	if !ok {
		return policy.Quote{}, eligibilityError(policy.Reject(policy.ReasonPersonalLimitExhausted))
	}

	return quote, nil
}

// 管理系の書き込みは監査ログと同じTxで行う
type VoucherUsecase struct {
	tx       repo.TransactionManager
	vouchers repo.VoucherRepository
	users    repo.UserRepository
	log      *zap.Logger
	now      func() time.Time
}

func NewVoucherUsecase(
	tx repo.TransactionManager,
	vouchers repo.VoucherRepository,
	users repo.UserRepository,
	log *zap.Logger,
) *VoucherUsecase {
	return &VoucherUsecase{
		tx:       tx,
		vouchers: vouchers,
		users:    users,
		log:      log,
		now:      time.Now,
	}
}

type ValidateVoucherInput struct {
	Code     string
	Subtotal int64
}

// POST /vouchers/validate。カウンタは進めない
func (u *VoucherUsecase) Preview(ctx context.Context, userID *int64, in ValidateVoucherInput) (policy.Quote, error) {
	if in.Subtotal < 0 {
		return policy.Quote{}, validationError("subtotal must be >= 0")
	}
	return evaluateVoucher(ctx, u.vouchers, u.log, userID, in.Code, in.Subtotal, u.now(), false)
}

type AvailableVoucher struct {
	Voucher      model.Voucher `json:"voucher"`
	UsedCount    int64         `json:"used_count"`
	EstimatedOff *int64        `json:"estimated_discount,omitempty"`
}

// 付与済みで今使えるもの。subtotalがあれば下限と割引見込みも見る
func (u *VoucherUsecase) ListAvailable(ctx context.Context, userID int64, subtotal *int64) ([]AvailableVoucher, error) {
	if userID <= 0 {
		return []AvailableVoucher{}, unauthorizedError()
	}
	if subtotal != nil && *subtotal < 0 {
		return []AvailableVoucher{}, validationError("subtotal must be >= 0")
	}

	grants, err := u.vouchers.ListGrantsByUser(ctx, userID)
	if err != nil {
		u.log.Error("list voucher grants failed", zap.Int64("user_id", userID), zap.Error(err))
		return []AvailableVoucher{}, dbError()
	}

	now := u.now()
	out := make([]AvailableVoucher, 0, len(grants))
	for _, g := range grants {
		if g.Voucher == nil {
			continue
		}
		//小計未指定なら下限は問わない
		amount := int64(0)
		switch {
		case subtotal != nil:
			amount = *subtotal
		case g.Voucher.MinOrderAmount != nil:
			amount = *g.Voucher.MinOrderAmount
		}
		grant := g
		if _, err := policy.EvaluateVoucher(policy.VoucherCheck{
			CustomerID: &userID,
			Voucher:    g.Voucher,
			Grant:      &grant,
			Subtotal:   amount,
			Now:        now,
		}); err != nil {
			continue
		}

		av := AvailableVoucher{Voucher: *g.Voucher, UsedCount: g.UsedCount}
		if subtotal != nil {
			d := policy.ComputeDiscount(*g.Voucher, *subtotal)
			av.EstimatedOff = &d
		}
		out = append(out, av)
	}
	return out, nil
}

type VoucherListOutput struct {
	Items []model.Voucher `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *VoucherUsecase) AdminList(ctx context.Context, page, limit int) (VoucherListOutput, error) {
	if page < 1 {
		return VoucherListOutput{}, validationError("invalid page")
	}
	if limit < 1 || limit > 100 {
		return VoucherListOutput{}, validationError("invalid limit")
	}
	items, total, err := u.vouchers.List(ctx, page, limit)
	if err != nil {
		u.log.Error("list vouchers failed", zap.Error(err))
		return VoucherListOutput{}, dbError()
	}
	return VoucherListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

type VoucherInput struct {
	Code              string
	Name              string
	Description       string
	DiscountType      string
	DiscountValue     decimal.Decimal
	MinOrderAmount    *int64
	MaxDiscountAmount *int64
	UsageLimit        *int64
	PerUserLimit      *int64
	ValidFrom         *time.Time
	ValidTo           *time.Time
	IsActive          *bool
}

var hundred = decimal.NewFromInt(100)

func (u *VoucherUsecase) buildVoucher(in VoucherInput) (model.Voucher, error) {
	code := policy.NormalizeCode(in.Code)
	if code == "" || len(code) > 50 {
		return model.Voucher{}, validationError("invalid code")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Voucher{}, validationError("name required")
	}

	typ := model.VoucherType(strings.ToUpper(strings.TrimSpace(in.DiscountType)))
	switch typ {
	case model.VoucherTypePercentage, model.VoucherTypeFixed:
	default:
		return model.Voucher{}, validationError("invalid discount_type")
	}
	if !in.DiscountValue.IsPositive() {
		return model.Voucher{}, validationError("discount_value must be > 0")
	}
	if typ == model.VoucherTypePercentage && in.DiscountValue.GreaterThan(hundred) {
		return model.Voucher{}, validationError("percentage discount_value must be <= 100")
	}
	if typ == model.VoucherTypeFixed && in.MaxDiscountAmount != nil {
		return model.Voucher{}, validationError("max_discount_amount is only for percentage vouchers")
	}
	if in.MinOrderAmount != nil && *in.MinOrderAmount < 0 {
		return model.Voucher{}, validationError("min_order_amount must be >= 0")
	}
	if in.MaxDiscountAmount != nil && *in.MaxDiscountAmount <= 0 {
		return model.Voucher{}, validationError("max_discount_amount must be > 0")
	}
	if in.UsageLimit != nil && *in.UsageLimit < 1 {
		return model.Voucher{}, validationError("usage_limit must be >= 1")
	}
	if in.PerUserLimit != nil && *in.PerUserLimit < 1 {
		return model.Voucher{}, validationError("per_user_limit must be >= 1")
	}

	validFrom := u.now()
	if in.ValidFrom != nil {
		validFrom = *in.ValidFrom
	}
	if in.ValidTo != nil && in.ValidTo.Before(validFrom) {
		return model.Voucher{}, validationError("valid_to must be >= valid_from")
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return model.Voucher{
		Code:              code,
		Name:              name,
		Description:       strings.TrimSpace(in.Description),
		DiscountType:      typ,
		DiscountValue:     in.DiscountValue,
		MinOrderAmount:    in.MinOrderAmount,
		MaxDiscountAmount: in.MaxDiscountAmount,
		UsageLimit:        in.UsageLimit,
		PerUserLimit:      in.PerUserLimit,
		ValidFrom:         validFrom,
		ValidTo:           in.ValidTo,
		IsActive:          active,
	}, nil
}

func (u *VoucherUsecase) AdminCreate(ctx context.Context, adminUserID int64, in VoucherInput) (model.Voucher, error) {
	if adminUserID <= 0 {
		return model.Voucher{}, unauthorizedError()
	}
	v, err := u.buildVoucher(in)
	if err != nil {
		return model.Voucher{}, err
	}

	var created model.Voucher
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Vouchers().Create(ctx, v)
		if errors.Is(err, repo.ErrConflict) {
			return conflictError("voucher code already exists")
		}
		if err != nil {
			u.log.Error("create voucher failed", zap.String("code", v.Code), zap.Error(err))
			return dbError()
		}

		if err := writeAudit(ctx, r.AuditLogs(), adminUserID, model.AuditActionCreate,
			model.AuditResourceVoucher, c.ID, nil, c); err != nil {
			return dbError()
		}
		created = c
		return nil
	})
	if err != nil {
		return model.Voucher{}, err
	}
	return created, nil
}

func (u *VoucherUsecase) AdminUpdate(ctx context.Context, adminUserID int64, voucherID int64, in VoucherInput) (model.Voucher, error) {
	if adminUserID <= 0 {
		return model.Voucher{}, unauthorizedError()
	}
	if voucherID <= 0 {
		return model.Voucher{}, validationError("invalid voucher id")
	}

	var out model.Voucher
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Vouchers().FindByID(ctx, voucherID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("voucher not found")
		}
		if err != nil {
			return dbError()
		}

		//期間と有効フラグは未指定なら既存を引き継ぐ
		if in.ValidFrom == nil {
			in.ValidFrom = &before.ValidFrom
		}
		if in.IsActive == nil {
			in.IsActive = &before.IsActive
		}
		v, err := u.buildVoucher(in)
		if err != nil {
			return err
		}
		v.ID = voucherID
		v.UsedCount = before.UsedCount
		v.CreatedAt = before.CreatedAt

		err = r.Vouchers().Update(ctx, v)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("voucher not found")
		}
		if errors.Is(err, repo.ErrConflict) {
			return conflictError("voucher code already exists")
		}
		if err != nil {
			u.log.Error("update voucher failed", zap.Int64("voucher_id", voucherID), zap.Error(err))
			return dbError()
		}

		if err := writeAudit(ctx, r.AuditLogs(), adminUserID, model.AuditActionUpdate,
			model.AuditResourceVoucher, voucherID, before, v); err != nil {
			return dbError()
		}
		out = v
		return nil
	})
	if err != nil {
		return model.Voucher{}, err
	}
	return out, nil
}

// 注文履歴が参照するので物理削除はしない
func (u *VoucherUsecase) AdminDeactivate(ctx context.Context, adminUserID int64, voucherID int64) error {
	if adminUserID <= 0 {
		return unauthorizedError()
	}
	if voucherID <= 0 {
		return validationError("invalid voucher id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		err := r.Vouchers().Deactivate(ctx, voucherID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("voucher not found")
		}
		if err != nil {
			return dbError()
		}

		if err := writeAudit(ctx, r.AuditLogs(), adminUserID, model.AuditActionDelete,
			model.AuditResourceVoucher, voucherID, map[string]bool{"is_active": true}, map[string]bool{"is_active": false}); err != nil {
			return dbError()
		}
		return nil
	})
}

func (u *VoucherUsecase) AdminGrant(ctx context.Context, adminUserID int64, voucherID int64, userID int64) (model.UserVoucher, error) {
	if adminUserID <= 0 {
		return model.UserVoucher{}, unauthorizedError()
	}
	if voucherID <= 0 || userID <= 0 {
		return model.UserVoucher{}, validationError("invalid id")
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		if err == nil || errors.Is(err, repo.ErrNotFound) {
			return model.UserVoucher{}, notFoundError("user not found")
		}
		return model.UserVoucher{}, dbError()
	}

	var out model.UserVoucher
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Vouchers().FindByID(ctx, voucherID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFoundError("voucher not found")
			}
			return dbError()
		}

		g, err := r.Vouchers().CreateGrant(ctx, model.UserVoucher{UserID: userID, VoucherID: voucherID})
		if errors.Is(err, repo.ErrConflict) {
			return conflictError("voucher already granted to this user")
		}
		if err != nil {
			u.log.Error("grant voucher failed", zap.Int64("voucher_id", voucherID), zap.Int64("user_id", userID), zap.Error(err))
			return dbError()
		}

		if err := writeAudit(ctx, r.AuditLogs(), adminUserID, model.AuditActionGrantVoucher,
			model.AuditResourceVoucher, voucherID, nil, map[string]int64{"user_id": userID}); err != nil {
			return dbError()
		}
		out = g
		return nil
	})
	if err != nil {
		return model.UserVoucher{}, err
	}
	return out, nil
}

func (u *VoucherUsecase) AdminListGrants(ctx context.Context, voucherID int64) ([]model.UserVoucher, error) {
	if voucherID <= 0 {
		return []model.UserVoucher{}, validationError("invalid voucher id")
	}
	if _, err := u.vouchers.FindByID(ctx, voucherID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return []model.UserVoucher{}, notFoundError("voucher not found")
		}
		return []model.UserVoucher{}, dbError()
	}
	grants, err := u.vouchers.ListGrantsByVoucher(ctx, voucherID)
	if err != nil {
		return []model.UserVoucher{}, dbError()
	}
	return grants, nil
}
