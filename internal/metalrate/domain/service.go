package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

//go:generate mockgen -destination=mock_source.go -package=domain . Source

// Source fetches current prices from upstream feeds.
type Source interface {
	Fetch(ctx context.Context) (Quote, error)
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, rates []MetalRate) error
	List(ctx context.Context, db *gorm.DB, market Market) ([]MetalRate, error)
}

type Service interface {
	Refresh(ctx context.Context) (RefreshResult, error)
	List(ctx context.Context, market string) (Snapshot, error)
}

type RefreshResult struct {
	Source      string    `json:"source"`
	Updated     int       `json:"updated"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Snapshot is the cached rate table returned to readers.
type Snapshot struct {
	Rates       []MetalRate `json:"rates"`
	RefreshedAt time.Time   `json:"refreshed_at"`
	Stale       bool        `json:"stale"`
}

var (
	ErrInvalidMarket   = errors.New("invalid_market")
	ErrIncompleteQuote = errors.New("incomplete_quote")
	ErrSourceDisabled  = errors.New("rate_source_disabled")
)
