package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"uniqueIndex;size:191;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
}

// Product is a sellable item. Stock only moves under a row lock
// (stock additions, sale reservations and releases).
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
	CategoryID    *uint           `gorm:"index" json:"category_id"`
	Category      *Category       `gorm:"constraint:OnDelete:SET NULL;" json:"category,omitempty"`
	Name          string          `gorm:"size:191;not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description,omitempty"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"cost_price"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"selling_price"`
	ProductImages []string        `gorm:"type:text;serializer:json" json:"product_images"`
	Stock         int             `gorm:"not null;check:chk_products_stock,stock >= 0" json:"stock"`
	Barcode       *string         `gorm:"uniqueIndex;size:191" json:"barcode"`
}

// StockAddition records goods received into the warehouse.
type StockAddition struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ProductID uint      `gorm:"index;not null" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      *User     `json:"user,omitempty"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	AddedAt   time.Time `gorm:"index;not null" json:"added_at"`
}
