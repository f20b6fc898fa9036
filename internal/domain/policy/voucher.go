// Package policy はストアに依存しない業務ルール（割引計算・注文合計・ステータス遷移）をまとめる。
package policy

import (
	"errors"
	"strings"
	"time"

	"fooddelivery/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 割引を適用できない理由
type EligibilityReason string

const (
	ReasonGuestNotAllowed        EligibilityReason = "GUEST_NOT_ALLOWED"
	ReasonNotFound               EligibilityReason = "NOT_FOUND"
	ReasonNotEntitled            EligibilityReason = "NOT_ENTITLED"
	ReasonDisabled               EligibilityReason = "DISABLED"
	ReasonNotYetValid            EligibilityReason = "NOT_YET_VALID"
	ReasonExpired                EligibilityReason = "EXPIRED"
	ReasonBelowMinimum           EligibilityReason = "BELOW_MINIMUM"
	ReasonUsageExhausted         EligibilityReason = "USAGE_EXHAUSTED"
	ReasonPersonalLimitExhausted EligibilityReason = "PERSONAL_LIMIT_EXHAUSTED"
)

var reasonMessages = map[EligibilityReason]string{
	ReasonGuestNotAllowed:        "login required to use vouchers",
	ReasonNotFound:               "voucher does not exist",
	ReasonNotEntitled:            "not entitled to this voucher",
	ReasonDisabled:               "voucher disabled",
	ReasonNotYetValid:            "voucher not yet valid",
	ReasonExpired:                "voucher expired",
	ReasonBelowMinimum:           "order below minimum",
	ReasonUsageExhausted:         "usage limit exhausted",
	ReasonPersonalLimitExhausted: "personal usage limit exhausted",
}

var ErrNegativeSubtotal = errors.New("subtotal must be >= 0")

// BELOW_MINIMUMのときはMinOrderAmountに下限を入れて返す
type EligibilityError struct {
	Reason         EligibilityReason
	MinOrderAmount int64
}

func (e *EligibilityError) Error() string {
	if msg, ok := reasonMessages[e.Reason]; ok {
		return msg
	}
	return string(e.Reason)
}

func Reject(reason EligibilityReason) *EligibilityError {
	return &EligibilityError{Reason: reason}
}

// AsEligibilityError は err が EligibilityError ならそれを返す
func AsEligibilityError(err error) (*EligibilityError, bool) {
	var ee *EligibilityError
	ok := errors.As(err, &ee)
	return ee, ok
}

// 評価に必要な材料。Voucher/Grantがnilなら「存在しない」扱い。
type VoucherCheck struct {
	CustomerID *int64
	Voucher    *model.Voucher
	Grant      *model.UserVoucher
	Subtotal   int64
	Now        time.Time
}

type Quote struct {
	VoucherID int64  `json:"voucher_id"`
	Code      string `json:"code"`
	Discount  int64  `json:"discount"`
	NewTotal  int64  `json:"new_total"`
}

// EvaluateVoucher は適用可否を順番に確認し、通れば割引額を計算する。
// 副作用は持たない（カウンタ更新は呼び出し側のTx内で行う）。
func EvaluateVoucher(in VoucherCheck) (Quote, error) {
	if in.Subtotal < 0 {
		return Quote{}, ErrNegativeSubtotal
	}
	if in.CustomerID == nil {
		return Quote{}, Reject(ReasonGuestNotAllowed)
	}
	if in.Voucher == nil {
		return Quote{}, Reject(ReasonNotFound)
	}
	if in.Grant == nil || in.Grant.UserID != *in.CustomerID || in.Grant.VoucherID != in.Voucher.ID {
		return Quote{}, Reject(ReasonNotEntitled)
	}

	v := in.Voucher
	if !v.IsActive {
		return Quote{}, Reject(ReasonDisabled)
	}

	//期間は両端を含む
	if in.Now.Before(v.ValidFrom) {
		return Quote{}, Reject(ReasonNotYetValid)
	}
	if v.ValidTo != nil && in.Now.After(*v.ValidTo) {
		return Quote{}, Reject(ReasonExpired)
	}

	if v.MinOrderAmount != nil && in.Subtotal < *v.MinOrderAmount {
		return Quote{}, &EligibilityError{Reason: ReasonBelowMinimum, MinOrderAmount: *v.MinOrderAmount}
	}
	if v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit {
		return Quote{}, Reject(ReasonUsageExhausted)
	}
	if v.PerUserLimit != nil && in.Grant.UsedCount >= *v.PerUserLimit {
		return Quote{}, Reject(ReasonPersonalLimitExhausted)
	}

	discount := ComputeDiscount(*v, in.Subtotal)
	return Quote{
		VoucherID: v.ID,
		Code:      v.Code,
		Discount:  discount,
		NewTotal:  max(0, in.Subtotal-discount),
	}, nil
}

// ComputeDiscount は小計に対する割引額（VND、切り捨て）を返す。小計を超えない。
func ComputeDiscount(v model.Voucher, subtotal int64) int64 {
	if subtotal <= 0 || !v.DiscountValue.IsPositive() {
		return 0
	}

	var discount int64
	switch v.DiscountType {
	case model.VoucherTypePercentage:
		discount = decimal.NewFromInt(subtotal).
			Mul(v.DiscountValue).
			Div(decimal.NewFromInt(100)).
			Floor().
			IntPart()
		if v.MaxDiscountAmount != nil {
			discount = min(discount, *v.MaxDiscountAmount)
		}
	case model.VoucherTypeFixed:
		discount = v.DiscountValue.Floor().IntPart()
	default:
		return 0
	}

	return max(0, min(discount, subtotal))
}

// 比較用にcodeを正規化
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
