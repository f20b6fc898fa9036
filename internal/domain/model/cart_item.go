package model

import "time"

// カートの明細
// 商品かコンボのどちらか一方を指す。追加時点の価格を保存。
type CartItem struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID            int64     `gorm:"not null;index" json:"cart_id"`
	Kind              ItemKind  `gorm:"type:varchar(20);not null" json:"kind"`
	ProductID         *int64    `gorm:"index" json:"product_id"`
	ComboID           *int64    `gorm:"index" json:"combo_id"`
	Quantity          int64     `gorm:"not null" json:"quantity"`
	UnitPriceSnapshot int64     `gorm:"not null;column:unit_price_snapshot" json:"unit_price_snapshot"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (i CartItem) ReferenceID() int64 {
	if i.Kind == ItemKindCombo && i.ComboID != nil {
		return *i.ComboID
	}
	if i.ProductID != nil {
		return *i.ProductID
	}
	return 0
}
