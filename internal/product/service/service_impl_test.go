package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/jewelbill/internal/product/domain"
	"github.com/smallbiznis/jewelbill/internal/product/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func price(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func newService(t *testing.T) domain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}))

	items := []domain.Product{
		{ID: 11, Name: "Temple Necklace", Category: "necklace", Material: "GOLD", Purity: "22K", PriceINR: price("10000"), PriceBHD: price("100.000"), IsActive: true},
		{ID: 12, Name: "Silver Anklet", Category: "anklet", Material: "SILVER", PriceINR: price("1499.50"), IsActive: true},
		{ID: 13, Name: "Antique Necklace", Category: "necklace", Material: "GOLD", Purity: "22K", PriceINR: price("85000"), IsActive: true},
	}
	require.NoError(t, db.Create(&items).Error)
	// is_active defaults to true on insert
	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", 13).Update("is_active", false).Error)

	return New(Params{DB: db, Log: zap.NewNop(), Repo: repository.Provide()})
}

func names(items []domain.Product) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func TestListFiltersAndSorts(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	all, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Antique Necklace", "Silver Anklet", "Temple Necklace"}, names(all))

	active, err := svc.List(ctx, domain.ListRequest{ActiveOnly: true, Category: "necklace"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Temple Necklace"}, names(active))

	search, err := svc.List(ctx, domain.ListRequest{Search: "NECK", SortBy: "price_inr", OrderBy: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Antique Necklace", "Temple Necklace"}, names(search))

	none, err := svc.List(ctx, domain.ListRequest{Search: "ring"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGet(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	item, err := svc.Get(ctx, "11")
	require.NoError(t, err)
	assert.Equal(t, "Temple Necklace", item.Name)
	assert.True(t, item.PriceBHD.Equal(decimal.RequireFromString("100")))

	_, err = svc.Get(ctx, "x1")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.Get(ctx, "99")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLookupIncludesInactive(t *testing.T) {
	svc := newService(t)

	found, err := svc.Lookup(context.Background(), []snowflake.ID{11, 13, 11, 404})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.True(t, found[11].IsActive)
	assert.False(t, found[13].IsActive)
	_, ok := found[404]
	assert.False(t, ok)
}
