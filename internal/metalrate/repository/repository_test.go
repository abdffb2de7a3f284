package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/jewelbill/internal/metalrate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.MetalRate{}))
	return db
}

func withIDs(t *testing.T, rates []domain.MetalRate) []domain.MetalRate {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	for i := range rates {
		rates[i].ID = node.Generate()
	}
	return rates
}

func TestUpsertIsIdempotentPerKey(t *testing.T) {
	db := openDB(t)
	r := Provide()
	ctx := context.Background()

	first, err := domain.BuildRates(domain.FallbackQuote(), time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, r.Upsert(ctx, db, withIDs(t, first)))

	quote := domain.FallbackQuote()
	quote.India[domain.Grade{Metal: domain.MetalGold, Purity: domain.Purity24K}] = decimal.NewFromInt(10100)
	quote.Source = domain.SourceLive
	second, err := domain.BuildRates(quote, time.Date(2025, 8, 19, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, r.Upsert(ctx, db, withIDs(t, second)))
	require.NoError(t, r.Upsert(ctx, db, withIDs(t, second)))

	var count int64
	require.NoError(t, db.Model(&domain.MetalRate{}).Count(&count).Error)
	assert.Equal(t, int64(8), count)

	india, err := r.List(ctx, db, domain.MarketIndia)
	require.NoError(t, err)
	require.Len(t, india, 4)
	for _, rate := range india {
		assert.Equal(t, domain.SourceLive, rate.Source)
		if rate.Metal == domain.MetalGold && rate.Purity == domain.Purity24K {
			assert.True(t, rate.PricePerGramINR.Equal(decimal.NewFromInt(10100)))
			assert.Equal(t, first[0].ID, rate.ID, "existing row keeps its id")
		}
	}

	all, err := r.List(ctx, db, "")
	require.NoError(t, err)
	assert.Len(t, all, 8)
}
