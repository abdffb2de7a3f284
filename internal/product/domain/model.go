package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Prices are nullable per market.
type Product struct {
	ID          snowflake.ID     `json:"id" gorm:"primaryKey"`
	Name        string           `json:"name" gorm:"type:text;not null"`
	Description *string          `json:"description,omitempty" gorm:"type:text"`
	Category    string           `json:"category" gorm:"type:varchar(64);not null;index"`
	Material    string           `json:"material" gorm:"type:varchar(32);not null"`
	Purity      string           `json:"purity" gorm:"type:varchar(16)"`
	PriceINR    *decimal.Decimal `json:"price_inr,omitempty" gorm:"type:decimal(20,2)"`
	PriceBHD    *decimal.Decimal `json:"price_bhd,omitempty" gorm:"type:decimal(20,3)"`
	GrossWeight decimal.Decimal  `json:"gross_weight" gorm:"type:decimal(12,3);not null"`
	NetWeight   decimal.Decimal  `json:"net_weight" gorm:"type:decimal(12,3);not null"`
	Stock       int              `json:"stock" gorm:"not null;default:0"`
	IsActive    bool             `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time        `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }
