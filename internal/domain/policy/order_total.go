package policy

import (
	"errors"
	"math"
)

// 1明細あたりの数量上限
const MaxQuantity int64 = 999

var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrAmountOverflow  = errors.New("amount out of range")
)

type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	ShippingFee int64 `json:"shipping_fee"`
	Discount    int64 `json:"discount"`
	Total       int64 `json:"total"`
}

func ValidateQuantity(qty int64) error {
	if qty < 1 || qty > MaxQuantity {
		return ErrInvalidQuantity
	}
	return nil
}

func LineTotal(unitPrice int64, qty int64) int64 {
	return unitPrice * qty
}

// AddLineTotal は subtotal に unitPrice*qty を足す。int64を超えるならErrAmountOverflow
func AddLineTotal(subtotal int64, unitPrice int64, qty int64) (int64, error) {
	if unitPrice < 0 || qty < 0 || subtotal < 0 {
		return 0, ErrAmountOverflow
	}
	if unitPrice > 0 && qty > math.MaxInt64/unitPrice {
		return 0, ErrAmountOverflow
	}
	line := unitPrice * qty
	if subtotal > math.MaxInt64-line {
		return 0, ErrAmountOverflow
	}
	return subtotal + line, nil
}

// CheckMinimumOrder は小計が下限に届かなければBELOW_MINIMUMを返す
func CheckMinimumOrder(subtotal int64, minimum int64) error {
	if minimum > 0 && subtotal < minimum {
		return &EligibilityError{Reason: ReasonBelowMinimum, MinOrderAmount: minimum}
	}
	return nil
}

// ComposeTotals は total = subtotal + shipping - discount を0で下止めして返す。
// discountは subtotal + shipping を超えない。
func ComposeTotals(subtotal int64, shippingFee int64, discount int64) Totals {
	discount = max(0, min(discount, subtotal+shippingFee))
	return Totals{
		Subtotal:    subtotal,
		ShippingFee: shippingFee,
		Discount:    discount,
		Total:       max(0, subtotal+shippingFee-discount),
	}
}
