// Package domain contains the bill model and the contracts around it.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentMethod records how the customer settled the bill.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodUPI          PaymentMethod = "UPI"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodStripe       PaymentMethod = "STRIPE"
)

// ParsePaymentMethod defaults to CASH on empty input.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	value := PaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
	switch value {
	case "":
		return PaymentMethodCash, nil
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodUPI, PaymentMethodBankTransfer, PaymentMethodStripe:
		return value, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// Bill is a frozen tax invoice. Rows are inserted once and never updated.
type Bill struct {
	ID                  snowflake.ID    `gorm:"primaryKey" json:"id"`
	BillNumber          string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"bill_number"`
	BillDate            string          `gorm:"type:varchar(8);not null;index" json:"bill_date"`
	CustomerName        string          `gorm:"type:text;not null" json:"customer_name"`
	CustomerEmail       string          `gorm:"type:text" json:"customer_email,omitempty"`
	CustomerPhone       string          `gorm:"type:text" json:"customer_phone,omitempty"`
	CustomerAddress     string          `gorm:"type:text" json:"customer_address,omitempty"`
	Currency            Currency        `gorm:"type:varchar(3);not null" json:"currency"`
	MakingChargePercent decimal.Decimal `gorm:"type:decimal(7,3);not null" json:"making_charge_percent"`
	TaxPercent          decimal.Decimal `gorm:"type:decimal(7,3);not null" json:"tax_percent"`
	Subtotal            decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"subtotal"`
	MakingCharges       decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"making_charges"`
	TaxColumns          `gorm:"embedded"`
	Discount            decimal.Decimal   `gorm:"type:decimal(20,3);not null" json:"discount"`
	Total               decimal.Decimal   `gorm:"type:decimal(20,3);not null" json:"total"`
	PaidAmount          decimal.Decimal   `gorm:"type:decimal(20,3);not null" json:"paid_amount"`
	PaymentMethod       PaymentMethod     `gorm:"type:varchar(16);not null" json:"payment_method"`
	Metadata            datatypes.JSONMap `json:"metadata,omitempty"`
	Items               []BillItem        `gorm:"foreignKey:BillID;constraint:OnDelete:RESTRICT" json:"items"`
	CreatedAt           time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (Bill) TableName() string { return "bills" }

// LineDiscounts sums the discounts carried on the individual lines.
func (b Bill) LineDiscounts() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range b.Items {
		sum = sum.Add(item.Discount)
	}
	return sum
}

// BillItem is one frozen line of a bill. Product fields are snapshots taken
// at billing time.
type BillItem struct {
	ID            snowflake.ID     `gorm:"primaryKey" json:"id"`
	BillID        snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_bill_items_position" json:"-"`
	Position      int              `gorm:"not null;uniqueIndex:ux_bill_items_position" json:"position"`
	ProductID     snowflake.ID     `gorm:"not null;index" json:"product_id"`
	ProductName   string           `gorm:"type:text;not null" json:"product_name"`
	Purity        string           `gorm:"type:varchar(16)" json:"purity,omitempty"`
	Quantity      int              `gorm:"not null" json:"quantity"`
	PriceINR      *decimal.Decimal `gorm:"type:decimal(20,2)" json:"price_inr,omitempty"`
	PriceBHD      *decimal.Decimal `gorm:"type:decimal(20,3)" json:"price_bhd,omitempty"`
	GrossWeight   decimal.Decimal  `gorm:"type:decimal(12,3);not null" json:"gross_weight"`
	NetWeight     decimal.Decimal  `gorm:"type:decimal(12,3);not null" json:"net_weight"`
	UnitPrice     decimal.Decimal  `gorm:"type:decimal(20,3);not null" json:"unit_price"`
	ItemSubtotal  decimal.Decimal  `gorm:"type:decimal(20,3);not null" json:"item_subtotal"`
	MakingCharges decimal.Decimal  `gorm:"type:decimal(20,3);not null" json:"making_charges"`
	TaxColumns    `gorm:"embedded"`
	Discount      decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"discount"`
	Total         decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"total"`
}

// TableName sets the database table name.
func (BillItem) TableName() string { return "bill_items" }

// BillSequence is the per-day bill counter.
type BillSequence struct {
	BillDate  string    `gorm:"type:varchar(8);primaryKey"`
	LastSeq   int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (BillSequence) TableName() string { return "bill_sequences" }

// ProductSnapshot is the product data a line is priced from.
type ProductSnapshot struct {
	ID          snowflake.ID
	Name        string
	Purity      string
	PriceINR    *decimal.Decimal
	PriceBHD    *decimal.Decimal
	GrossWeight decimal.Decimal
	NetWeight   decimal.Decimal
}

// PriceIn returns the snapshot price for the currency, if the product has one.
func (p ProductSnapshot) PriceIn(c Currency) (decimal.Decimal, bool) {
	var price *decimal.Decimal
	switch c {
	case CurrencyINR:
		price = p.PriceINR
	case CurrencyBHD:
		price = p.PriceBHD
	}
	if price == nil {
		return decimal.Zero, false
	}
	return *price, true
}
