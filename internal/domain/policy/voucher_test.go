package policy_test

import (
	"testing"
	"time"

	"fooddelivery/internal/domain/model"
	"fooddelivery/internal/domain/policy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// helper
// =====================

func i64(v int64) *int64 { return &v }

var baseNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func percentVoucher(value int64, maxDiscount *int64) model.Voucher {
	return model.Voucher{
		ID:                1,
		Code:              "PCT",
		DiscountType:      model.VoucherTypePercentage,
		DiscountValue:     decimal.NewFromInt(value),
		MaxDiscountAmount: maxDiscount,
		ValidFrom:         baseNow.Add(-24 * time.Hour),
		IsActive:          true,
	}
}

func fixedVoucher(value int64, minOrder *int64) model.Voucher {
	return model.Voucher{
		ID:             2,
		Code:           "FIX",
		DiscountType:   model.VoucherTypeFixed,
		DiscountValue:  decimal.NewFromInt(value),
		MinOrderAmount: minOrder,
		ValidFrom:      baseNow.Add(-24 * time.Hour),
		IsActive:       true,
	}
}

func check(v *model.Voucher, subtotal int64) policy.VoucherCheck {
	in := policy.VoucherCheck{
		CustomerID: i64(7),
		Voucher:    v,
		Subtotal:   subtotal,
		Now:        baseNow,
	}
	if v != nil {
		in.Grant = &model.UserVoucher{ID: 100, UserID: 7, VoucherID: v.ID}
	}
	return in
}

func assertReason(t *testing.T, err error, want policy.EligibilityReason) {
	t.Helper()
	ee, ok := policy.AsEligibilityError(err)
	if assert.True(t, ok, "err=%v", err) {
		assert.Equal(t, want, ee.Reason)
	}
}

// =====================
// discount scenarios
// =====================

func TestEvaluateVoucher_Save20K_Fixed(t *testing.T) {
	v := fixedVoucher(20000, i64(200000))
	v.Code = "SAVE20K"

	q, err := policy.EvaluateVoucher(check(&v, 250000))
	require.NoError(t, err)
	assert.Equal(t, int64(20000), q.Discount)
	assert.Equal(t, int64(230000), q.NewTotal)
	assert.Equal(t, "SAVE20K", q.Code)

	totals := policy.ComposeTotals(250000, 30000, q.Discount)
	assert.Equal(t, int64(260000), totals.Total)
}

func TestEvaluateVoucher_Welcome10_BelowCap(t *testing.T) {
	v := percentVoucher(10, i64(50000))

	q, err := policy.EvaluateVoucher(check(&v, 100000))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), q.Discount)
	assert.Equal(t, int64(90000), q.NewTotal)
}

func TestEvaluateVoucher_VIP15_Capped(t *testing.T) {
	v := percentVoucher(15, i64(100000))

	q, err := policy.EvaluateVoucher(check(&v, 1000000))
	require.NoError(t, err)
	assert.Equal(t, int64(100000), q.Discount)
	assert.Equal(t, int64(900000), q.NewTotal)
}

func TestComputeDiscount_Table(t *testing.T) {
	half := decimal.RequireFromString("12.5")

	cases := []struct {
		name     string
		voucher  model.Voucher
		subtotal int64
		want     int64
	}{
		{"percent no cap", percentVoucher(10, nil), 123456, 12345},
		{"percent fractional value floors", model.Voucher{DiscountType: model.VoucherTypePercentage, DiscountValue: half}, 99999, 12499},
		{"percent 100 equals subtotal", percentVoucher(100, nil), 80000, 80000},
		{"fixed larger than subtotal", fixedVoucher(500000, nil), 60000, 60000},
		{"fixed smaller than subtotal", fixedVoucher(15000, nil), 60000, 15000},
		{"zero subtotal", fixedVoucher(15000, nil), 0, 0},
		{"unknown type", model.Voucher{DiscountType: "BOGUS", DiscountValue: decimal.NewFromInt(5)}, 1000, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := policy.ComputeDiscount(tc.voucher, tc.subtotal)
			assert.Equal(t, tc.want, got)
			assert.LessOrEqual(t, got, tc.subtotal)
		})
	}
}

// =====================
// eligibility order
// =====================

func TestEvaluateVoucher_GuestRejectedEvenIfValid(t *testing.T) {
	v := percentVoucher(10, nil)
	in := check(&v, 100000)
	in.CustomerID = nil

	_, err := policy.EvaluateVoucher(in)
	assertReason(t, err, policy.ReasonGuestNotAllowed)
	assert.Equal(t, "login required to use vouchers", err.Error())
}

func TestEvaluateVoucher_NotFound(t *testing.T) {
	_, err := policy.EvaluateVoucher(check(nil, 100000))
	assertReason(t, err, policy.ReasonNotFound)
}

func TestEvaluateVoucher_NoGrant(t *testing.T) {
	v := percentVoucher(10, nil)
	in := check(&v, 100000)
	in.Grant = nil

	_, err := policy.EvaluateVoucher(in)
	assertReason(t, err, policy.ReasonNotEntitled)
}

func TestEvaluateVoucher_GrantOfAnotherUser(t *testing.T) {
	v := percentVoucher(10, nil)
	in := check(&v, 100000)
	in.Grant.UserID = 8

	_, err := policy.EvaluateVoucher(in)
	assertReason(t, err, policy.ReasonNotEntitled)
}

func TestEvaluateVoucher_Disabled(t *testing.T) {
	v := percentVoucher(10, nil)
	v.IsActive = false

	_, err := policy.EvaluateVoucher(check(&v, 100000))
	assertReason(t, err, policy.ReasonDisabled)
}

func TestEvaluateVoucher_NotYetValid(t *testing.T) {
	v := percentVoucher(10, nil)
	v.ValidFrom = baseNow.Add(time.Millisecond)

	_, err := policy.EvaluateVoucher(check(&v, 100000))
	assertReason(t, err, policy.ReasonNotYetValid)
}

func TestEvaluateVoucher_ValidToBoundary(t *testing.T) {
	v := percentVoucher(10, nil)
	end := baseNow
	v.ValidTo = &end

	//now == validTo は有効
	_, err := policy.EvaluateVoucher(check(&v, 100000))
	assert.NoError(t, err)

	//1ms過ぎたら期限切れ
	in := check(&v, 100000)
	in.Now = baseNow.Add(time.Millisecond)
	_, err = policy.EvaluateVoucher(in)
	assertReason(t, err, policy.ReasonExpired)
}

func TestEvaluateVoucher_ExpiredWinsOverLaterChecks(t *testing.T) {
	v := fixedVoucher(20000, i64(1000000))
	past := baseNow.Add(-time.Hour)
	v.ValidTo = &past
	v.UsageLimit = i64(1)
	v.UsedCount = 1

	_, err := policy.EvaluateVoucher(check(&v, 1000))
	assertReason(t, err, policy.ReasonExpired)
}

func TestEvaluateVoucher_BelowMinimumReturnsMinimum(t *testing.T) {
	v := fixedVoucher(20000, i64(200000))

	_, err := policy.EvaluateVoucher(check(&v, 199999))
	ee, ok := policy.AsEligibilityError(err)
	require.True(t, ok)
	assert.Equal(t, policy.ReasonBelowMinimum, ee.Reason)
	assert.Equal(t, int64(200000), ee.MinOrderAmount)
}

func TestEvaluateVoucher_UsageExhausted(t *testing.T) {
	v := percentVoucher(10, nil)
	v.UsageLimit = i64(5)
	v.UsedCount = 5

	_, err := policy.EvaluateVoucher(check(&v, 100000))
	assertReason(t, err, policy.ReasonUsageExhausted)
}

func TestEvaluateVoucher_PersonalLimitExhausted(t *testing.T) {
	v := percentVoucher(10, nil)
	v.UsageLimit = i64(5)
	v.UsedCount = 4
	v.PerUserLimit = i64(1)
	in := check(&v, 100000)
	in.Grant.UsedCount = 1

	_, err := policy.EvaluateVoucher(in)
	assertReason(t, err, policy.ReasonPersonalLimitExhausted)
}

func TestEvaluateVoucher_NegativeSubtotal(t *testing.T) {
	v := percentVoucher(10, nil)

	_, err := policy.EvaluateVoucher(check(&v, -1))
	assert.ErrorIs(t, err, policy.ErrNegativeSubtotal)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "WELCOME10", policy.NormalizeCode("  welcome10 "))
}
