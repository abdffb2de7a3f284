package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service is the read-only catalog. Catalog management lives elsewhere.
type Service interface {
	List(ctx context.Context, req ListRequest) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	Lookup(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]Product, error)
}

type ListRequest struct {
	Search     string
	Category   string
	ActiveOnly bool
	SortBy     string
	OrderBy    string
}

var (
	ErrNotFound  = errors.New("product_not_found")
	ErrInvalidID = errors.New("invalid_product_id")
)
