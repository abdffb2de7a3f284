// Package seed fills an empty database with the rows the shop needs on
// first start.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	metalratedomain "github.com/smallbiznis/jewelbill/internal/metalrate/domain"
	productdomain "github.com/smallbiznis/jewelbill/internal/product/domain"
	"gorm.io/gorm"
)

// EnsureMetalRates stores the fallback rate table when no rate exists yet, so
// readers have prices before the first refresh completes.
func EnsureMetalRates(ctx context.Context, db *gorm.DB, node *snowflake.Node, now time.Time) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	var count int64
	if err := db.WithContext(ctx).Model(&metalratedomain.MetalRate{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	rates, err := metalratedomain.BuildRates(metalratedomain.FallbackQuote(), now.UTC())
	if err != nil {
		return err
	}
	for i := range rates {
		rates[i].ID = node.Generate()
	}
	return db.WithContext(ctx).Create(&rates).Error
}

type demoProduct struct {
	name     string
	category string
	material string
	purity   string
	inr      string
	bhd      string
	gross    string
	net      string
	stock    int
}

var demoCatalog = []demoProduct{
	{"Temple Necklace", "necklace", "GOLD", "22K", "245000", "1102.500", "26.400", "25.100", 2},
	{"Lakshmi Kasu Mala", "necklace", "GOLD", "22K", "512000", "", "55.000", "53.800", 1},
	{"Plain Gold Bangle", "bangle", "GOLD", "22K", "92350", "415.600", "10.000", "10.000", 6},
	{"Diamond Stud Earrings", "earrings", "GOLD", "18K", "68500", "308.250", "3.200", "2.900", 4},
	{"Solitaire Ring", "ring", "GOLD", "18K", "45000", "205.125", "4.200", "3.900", 3},
	{"Gold Coin 8g", "coin", "GOLD", "24K", "80600", "362.700", "8.000", "8.000", 10},
	{"Silver Anklet Pair", "anklet", "SILVER", "PURE", "1499.50", "6.750", "12.000", "11.500", 12},
	{"Silver Pooja Plate", "utensil", "SILVER", "PURE", "18560", "", "160.000", "160.000", 2},
}

// EnsureDemoProducts loads a small catalog into an empty products table.
func EnsureDemoProducts(ctx context.Context, db *gorm.DB, node *snowflake.Node, now time.Time) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	var count int64
	if err := db.WithContext(ctx).Model(&productdomain.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	items := make([]productdomain.Product, 0, len(demoCatalog))
	for _, d := range demoCatalog {
		items = append(items, productdomain.Product{
			ID:          node.Generate(),
			Name:        d.name,
			Category:    d.category,
			Material:    d.material,
			Purity:      d.purity,
			PriceINR:    optionalPrice(d.inr),
			PriceBHD:    optionalPrice(d.bhd),
			GrossWeight: decimal.RequireFromString(d.gross),
			NetWeight:   decimal.RequireFromString(d.net),
			Stock:       d.stock,
			IsActive:    true,
			CreatedAt:   now.UTC(),
			UpdatedAt:   now.UTC(),
		})
	}
	return db.WithContext(ctx).Create(&items).Error
}

func optionalPrice(raw string) *decimal.Decimal {
	if raw == "" {
		return nil
	}
	v := decimal.RequireFromString(raw)
	return &v
}
