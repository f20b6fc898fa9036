package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type VoucherType string

const (
	VoucherTypePercentage VoucherType = "PERCENTAGE"
	VoucherTypeFixed      VoucherType = "FIXED"
)

// codeは大文字で保存する
type Voucher struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Code              string          `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Name              string          `gorm:"type:varchar(255);not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	DiscountType      VoucherType     `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_value"`
	MinOrderAmount    *int64          `json:"min_order_amount"`
	MaxDiscountAmount *int64          `json:"max_discount_amount"`
	UsageLimit        *int64          `json:"usage_limit"`
	UsedCount         int64           `gorm:"not null;default:0" json:"used_count"`
	PerUserLimit      *int64          `json:"per_user_limit"`
	ValidFrom         time.Time       `gorm:"not null" json:"valid_from"`
	ValidTo           *time.Time      `json:"valid_to"`
	IsActive          bool            `gorm:"not null" json:"is_active"`
	CreatedAt         time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// ユーザーごとの利用権と利用回数
type UserVoucher struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:ux_user_vouchers_user_voucher" json:"user_id"`
	VoucherID int64     `gorm:"not null;uniqueIndex:ux_user_vouchers_user_voucher;index" json:"voucher_id"`
	UsedCount int64     `gorm:"not null;default:0" json:"used_count"`
	Voucher   *Voucher  `gorm:"foreignKey:VoucherID" json:"voucher,omitempty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
