// Package domain holds metal rate types and the conversions between markets.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Metal string

const (
	MetalGold   Metal = "GOLD"
	MetalSilver Metal = "SILVER"
)

type Purity string

const (
	Purity24K  Purity = "24K"
	Purity22K  Purity = "22K"
	Purity18K  Purity = "18K"
	PurityPure Purity = "PURE"
)

type Market string

const (
	MarketIndia   Market = "INDIA"
	MarketBahrain Market = "BAHRAIN"
)

// Markets lists the markets in display order.
var Markets = []Market{MarketIndia, MarketBahrain}

// ParseMarket accepts INDIA/BAHRAIN case-insensitively. Empty input is
// returned as "" meaning every market.
func ParseMarket(raw string) (Market, error) {
	switch m := Market(strings.ToUpper(strings.TrimSpace(raw))); m {
	case "", MarketIndia, MarketBahrain:
		return m, nil
	default:
		return "", ErrInvalidMarket
	}
}

// Grade is a quoted metal/purity pair.
type Grade struct {
	Metal  Metal
	Purity Purity
}

// Grades lists the quoted grades in display order.
var Grades = []Grade{
	{MetalGold, Purity24K},
	{MetalGold, Purity22K},
	{MetalGold, Purity18K},
	{MetalSilver, PurityPure},
}

// MetalRate is the current per-gram price of one grade in one market.
type MetalRate struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	Metal           Metal           `json:"metal" gorm:"type:varchar(8);not null;uniqueIndex:ux_metal_rates_key,priority:1"`
	Purity          Purity          `json:"purity" gorm:"type:varchar(8);not null;uniqueIndex:ux_metal_rates_key,priority:2"`
	Market          Market          `json:"market" gorm:"type:varchar(8);not null;uniqueIndex:ux_metal_rates_key,priority:3"`
	PricePerGramINR decimal.Decimal `json:"price_per_gram_inr" gorm:"column:price_per_gram_inr;type:decimal(12,2);not null"`
	PricePerGramBHD decimal.Decimal `json:"price_per_gram_bhd" gorm:"column:price_per_gram_bhd;type:decimal(12,3);not null"`
	PricePerGramUSD decimal.Decimal `json:"price_per_gram_usd" gorm:"column:price_per_gram_usd;type:decimal(12,2);not null"`
	Source          string          `json:"source" gorm:"type:varchar(32);not null"`
	LastUpdated     time.Time       `json:"last_updated" gorm:"not null"`
}

func (MetalRate) TableName() string { return "metal_rates" }

func (r MetalRate) Grade() Grade { return Grade{Metal: r.Metal, Purity: r.Purity} }
