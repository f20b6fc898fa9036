package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ゲスト注文はUserIDがnil
type Order struct {
	ID              int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber     string      `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_number"`
	UserID          *int64      `gorm:"index" json:"user_id"`
	CustomerName    string      `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone   string      `gorm:"type:varchar(20);not null" json:"customer_phone"`
	CustomerEmail   *string     `gorm:"type:varchar(255)" json:"customer_email"`
	CustomerAddress string      `gorm:"type:text;not null" json:"customer_address"`
	Notes           string      `gorm:"type:text" json:"notes"`
	Subtotal        int64       `gorm:"not null" json:"subtotal"`
	ShippingFee     int64       `gorm:"not null" json:"shipping_fee"`
	Discount        int64       `gorm:"not null;default:0" json:"discount"`
	Total           int64       `gorm:"not null" json:"total"`
	VoucherID       *int64      `gorm:"index" json:"voucher_id"`
	VoucherCode     *string     `gorm:"type:varchar(50)" json:"voucher_code"`
	Status          OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	IdempotencyKey  *string     `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	CreatedAt       time.Time   `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (o Order) IsGuest() bool {
	return o.UserID == nil
}
