package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the settlement currency of a bill.
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyBHD Currency = "BHD"
)

// ParseCurrency normalizes user input; unknown codes are rejected.
func ParseCurrency(raw string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(raw))) {
	case CurrencyINR:
		return CurrencyINR, nil
	case CurrencyBHD:
		return CurrencyBHD, nil
	default:
		return "", ErrInvalidCurrency
	}
}

// Places is the number of minor-unit digits carried by the currency.
func (c Currency) Places() int32 {
	if c == CurrencyBHD {
		return 3
	}
	return 2
}

// Round rounds half away from zero to the currency precision.
func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.Places())
}

// Fits reports whether amount carries no more digits than the currency allows.
func (c Currency) Fits(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(c.Places()))
}

// String renders amount at exactly the currency precision.
func (c Currency) String(amount decimal.Decimal) string {
	return amount.StringFixed(c.Places())
}

// TaxKind returns the tax regime that applies to the currency's market.
func (c Currency) TaxKind() TaxKind {
	if c == CurrencyBHD {
		return TaxKindVAT
	}
	return TaxKindGST
}

var hundred = decimal.NewFromInt(100)

// Percent returns base * pct / 100 without rounding.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}
