package model

import "time"

// 作成後は変更しない
type OrderItem struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID           int64     `gorm:"not null;index" json:"order_id"`
	Kind              ItemKind  `gorm:"type:varchar(20);not null" json:"kind"`
	ProductID         *int64    `gorm:"index" json:"product_id"`
	ComboID           *int64    `gorm:"index" json:"combo_id"`
	NameSnapshot      string    `gorm:"type:varchar(255);not null" json:"name_snapshot"`
	UnitPriceSnapshot int64     `gorm:"not null" json:"unit_price_snapshot"`
	Quantity          int64     `gorm:"not null" json:"quantity"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
