package repository

import (
	"context"

	"github.com/smallbiznis/jewelbill/internal/metalrate/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Upsert writes rates keyed by (metal, purity, market). Existing rows keep
// their id and take the new prices.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, rates []domain.MetalRate) error {
	if len(rates) == 0 {
		return nil
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "metal"}, {Name: "purity"}, {Name: "market"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price_per_gram_inr",
			"price_per_gram_bhd",
			"price_per_gram_usd",
			"source",
			"last_updated",
		}),
	}).Create(&rates).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, market domain.Market) ([]domain.MetalRate, error) {
	var items []domain.MetalRate
	stmt := db.WithContext(ctx).Model(&domain.MetalRate{})
	if market != "" {
		stmt = stmt.Where("market = ?", market)
	}
	if err := stmt.Order("market").Order("metal").Order("purity DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
