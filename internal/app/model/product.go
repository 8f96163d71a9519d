package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID                uint            `gorm:"primarykey" json:"id"`
	CategoryID        uint            `gorm:"not null;index" json:"category_id"`
	Name              string          `gorm:"not null" json:"name"`
	Slug              string          `gorm:"uniqueIndex:idx_products_slug;not null" json:"slug"`
	Description       string          `gorm:"type:text" json:"description"`
	Price             decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"price"`
	StockQuantity     int             `gorm:"default:0" json:"stock_quantity"`
	LowStockThreshold int             `gorm:"default:5" json:"low_stock_threshold"`
	ImageURL          string          `json:"image_url"`
	ViewCount         int             `gorm:"default:0" json:"view_count"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Category   Category    `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	OrderItems []OrderItem `gorm:"foreignKey:ProductID" json:"-"`
	CartItems  []CartItem  `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// IsLowStock reports whether the product's stock is at or below its threshold
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}
