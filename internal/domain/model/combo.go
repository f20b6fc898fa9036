package model

import "time"

// 複数商品のセット販売
type Combo struct {
	ID            int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID    *int64      `gorm:"index" json:"category_id"`
	Name          string      `gorm:"type:varchar(255);not null" json:"name"`
	Description   string      `gorm:"type:text" json:"description"`
	Price         int64       `gorm:"not null" json:"price"`
	OriginalPrice int64       `gorm:"not null;default:0" json:"original_price"`
	ImageURL      string      `gorm:"type:text" json:"image_url"`
	IsActive      bool        `gorm:"not null" json:"is_active"`
	Items         []ComboItem `gorm:"foreignKey:ComboID" json:"items"`
	CreatedAt     time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type ComboItem struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ComboID   int64 `gorm:"not null;index" json:"combo_id"`
	ProductID int64 `gorm:"not null;index" json:"product_id"`
	Quantity  int64 `gorm:"not null" json:"quantity"`
}

// 元値より安い場合だけ割引率（%）を返す
func (c Combo) DiscountPercent() int64 {
	if c.OriginalPrice <= 0 || c.OriginalPrice <= c.Price {
		return 0
	}
	diff := c.OriginalPrice - c.Price
	return (diff*100 + c.OriginalPrice/2) / c.OriginalPrice
}
