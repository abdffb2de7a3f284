package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/jewelbill/pkg/db/pagination"
	"gorm.io/gorm"
)

// Repository persists bills. Rows are insert-only.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bill *Bill) error
	NextSequence(ctx context.Context, db *gorm.DB, billDate string, now time.Time) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Bill, error)
	FindByNumber(ctx context.Context, db *gorm.DB, number string) (*Bill, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Bill, error)
}

// ListFilter narrows bill listings. Zero values mean no filter.
type ListFilter struct {
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	// AfterID and AfterCreatedAt resume a listing after the given row.
	AfterID        *snowflake.ID
	AfterCreatedAt *time.Time
	Limit          int
}

type CreateBillRequest struct {
	CustomerName        string           `json:"customer_name"`
	CustomerEmail       string           `json:"customer_email"`
	CustomerPhone       string           `json:"customer_phone"`
	CustomerAddress     string           `json:"customer_address"`
	Currency            string           `json:"currency"`
	MakingChargePercent *decimal.Decimal `json:"making_charge_percent"`
	TaxPercent          *decimal.Decimal `json:"tax_percent"`
	Discount            *decimal.Decimal `json:"discount"`
	PaidAmount          *decimal.Decimal `json:"paid_amount"`
	PaymentMethod       string           `json:"payment_method"`
	Items               []CreateBillItem `json:"items"`
	Expected            *ExpectedTotals  `json:"expected,omitempty"`
	Metadata            map[string]any   `json:"metadata,omitempty"`
}

type CreateBillItem struct {
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Discount  *decimal.Decimal `json:"discount"`
}

// ExpectedTotals are the totals a client displayed before submitting. When
// present they must match the server computation exactly.
type ExpectedTotals struct {
	Subtotal      *decimal.Decimal `json:"subtotal"`
	MakingCharges *decimal.Decimal `json:"making_charges"`
	Tax           *decimal.Decimal `json:"tax"`
	Total         *decimal.Decimal `json:"total"`
}

type ListBillRequest struct {
	pagination.Pagination
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListBillResponse struct {
	pagination.PageInfo
	Bills []Bill `json:"bills"`
}

// Document is a rendered bill ready to stream.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

type Service interface {
	Create(ctx context.Context, req CreateBillRequest) (*Bill, error)
	Preview(ctx context.Context, req CreateBillRequest) (*Bill, error)
	GetByID(ctx context.Context, id string) (*Bill, error)
	GetByNumber(ctx context.Context, number string) (*Bill, error)
	List(ctx context.Context, req ListBillRequest) (ListBillResponse, error)
	RenderHTML(ctx context.Context, id string) (string, error)
	RenderPDF(ctx context.Context, id string) (Document, error)
}
