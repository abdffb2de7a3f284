package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// TroyOunceGrams converts spot prices quoted per troy ounce.
var TroyOunceGrams = decimal.RequireFromString("31.1035")

// Quote is one fetch from the rate source: local per-gram prices for each
// market and the USD exchange rates used to cross-convert them.
type Quote struct {
	India     map[Grade]decimal.Decimal
	Bahrain   map[Grade]decimal.Decimal
	INRPerUSD decimal.Decimal
	BHDPerUSD decimal.Decimal
	Source    string
}

// FallbackQuote is the fixed table used when the upstream feeds fail.
func FallbackQuote() Quote {
	d := decimal.RequireFromString
	return Quote{
		India: map[Grade]decimal.Decimal{
			{MetalGold, Purity24K}:    d("10075"),
			{MetalGold, Purity22K}:    d("9235"),
			{MetalGold, Purity18K}:    d("7556"),
			{MetalSilver, PurityPure}: d("116"),
		},
		Bahrain: map[Grade]decimal.Decimal{
			{MetalGold, Purity24K}:    d("40.80"),
			{MetalGold, Purity22K}:    d("38.20"),
			{MetalGold, Purity18K}:    d("31.30"),
			{MetalSilver, PurityPure}: d("0.46"),
		},
		INRPerUSD: d("83.5"),
		BHDPerUSD: d("0.376"),
		Source:    SourceFallback,
	}
}

// QuoteFromSpot derives local prices from USD-per-ounce spot prices. Karat
// grades are priced by fineness relative to 24K.
func QuoteFromSpot(goldPerOunceUSD, silverPerOunceUSD, inrPerUSD, bhdPerUSD decimal.Decimal) (Quote, error) {
	if !goldPerOunceUSD.IsPositive() || !silverPerOunceUSD.IsPositive() {
		return Quote{}, fmt.Errorf("%w: spot price must be positive", ErrIncompleteQuote)
	}
	if !inrPerUSD.IsPositive() || !bhdPerUSD.IsPositive() {
		return Quote{}, fmt.Errorf("%w: exchange rate must be positive", ErrIncompleteQuote)
	}

	gold := goldPerOunceUSD.Div(TroyOunceGrams)
	silver := silverPerOunceUSD.Div(TroyOunceGrams)
	usd := map[Grade]decimal.Decimal{
		{MetalGold, Purity24K}:    gold,
		{MetalGold, Purity22K}:    gold.Mul(decimal.NewFromInt(22)).Div(decimal.NewFromInt(24)),
		{MetalGold, Purity18K}:    gold.Mul(decimal.NewFromInt(18)).Div(decimal.NewFromInt(24)),
		{MetalSilver, PurityPure}: silver,
	}

	q := Quote{
		India:     make(map[Grade]decimal.Decimal, len(usd)),
		Bahrain:   make(map[Grade]decimal.Decimal, len(usd)),
		INRPerUSD: inrPerUSD,
		BHDPerUSD: bhdPerUSD,
		Source:    SourceLive,
	}
	for g, price := range usd {
		q.India[g] = price.Mul(inrPerUSD).Round(2)
		q.Bahrain[g] = price.Mul(bhdPerUSD).Round(3)
	}
	return q, nil
}

// BuildRates expands a quote into one rate per grade and market. Each
// market's own price is kept; the other currencies are derived through USD.
func BuildRates(q Quote, at time.Time) ([]MetalRate, error) {
	if !q.INRPerUSD.IsPositive() || !q.BHDPerUSD.IsPositive() {
		return nil, fmt.Errorf("%w: exchange rate must be positive", ErrIncompleteQuote)
	}
	inrPerBHD := q.INRPerUSD.Div(q.BHDPerUSD)

	rates := make([]MetalRate, 0, len(Grades)*len(Markets))
	for _, g := range Grades {
		inr, ok := q.India[g]
		if !ok {
			return nil, fmt.Errorf("%w: %s %s india", ErrIncompleteQuote, g.Metal, g.Purity)
		}
		rates = append(rates, MetalRate{
			Metal:           g.Metal,
			Purity:          g.Purity,
			Market:          MarketIndia,
			PricePerGramINR: inr.Round(2),
			PricePerGramBHD: inr.Div(inrPerBHD).Round(3),
			PricePerGramUSD: inr.Div(q.INRPerUSD).Round(2),
			Source:          q.Source,
			LastUpdated:     at,
		})
	}
	for _, g := range Grades {
		bhd, ok := q.Bahrain[g]
		if !ok {
			return nil, fmt.Errorf("%w: %s %s bahrain", ErrIncompleteQuote, g.Metal, g.Purity)
		}
		rates = append(rates, MetalRate{
			Metal:           g.Metal,
			Purity:          g.Purity,
			Market:          MarketBahrain,
			PricePerGramINR: bhd.Mul(inrPerBHD).Round(0),
			PricePerGramBHD: bhd.Round(3),
			PricePerGramUSD: bhd.Div(q.BHDPerUSD).Round(2),
			Source:          q.Source,
			LastUpdated:     at,
		})
	}
	return rates, nil
}
