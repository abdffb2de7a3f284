package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// weightPlaces is the gram precision printed for gross and net weight.
const weightPlaces = 3

type taxJSON struct {
	TaxKind TaxKind `json:"tax_kind"`
	GST     string  `json:"gst"`
	SGST    string  `json:"sgst"`
	CGST    string  `json:"cgst"`
	VAT     string  `json:"vat"`
}

type billItemJSON struct {
	ID            snowflake.ID `json:"id"`
	Position      int          `json:"position"`
	ProductID     snowflake.ID `json:"product_id"`
	ProductName   string       `json:"product_name"`
	Purity        string       `json:"purity,omitempty"`
	Quantity      int          `json:"quantity"`
	PriceINR      *string      `json:"price_inr,omitempty"`
	PriceBHD      *string      `json:"price_bhd,omitempty"`
	GrossWeight   string       `json:"gross_weight"`
	NetWeight     string       `json:"net_weight"`
	UnitPrice     string       `json:"unit_price"`
	ItemSubtotal  string       `json:"item_subtotal"`
	MakingCharges string       `json:"making_charges"`
	taxJSON
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

type billJSON struct {
	ID                  snowflake.ID    `json:"id"`
	BillNumber          string          `json:"bill_number"`
	BillDate            string          `json:"bill_date"`
	CustomerName        string          `json:"customer_name"`
	CustomerEmail       string          `json:"customer_email,omitempty"`
	CustomerPhone       string          `json:"customer_phone,omitempty"`
	CustomerAddress     string          `json:"customer_address,omitempty"`
	Currency            Currency        `json:"currency"`
	MakingChargePercent decimal.Decimal `json:"making_charge_percent"`
	TaxPercent          decimal.Decimal `json:"tax_percent"`
	Subtotal            string          `json:"subtotal"`
	MakingCharges       string          `json:"making_charges"`
	taxJSON
	Discount      string            `json:"discount"`
	Total         string            `json:"total"`
	PaidAmount    string            `json:"paid_amount"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty"`
	Items         []billItemJSON    `json:"items"`
	CreatedAt     time.Time         `json:"created_at"`
}

// MarshalJSON writes every money field as a fixed-point string at the bill
// currency's precision, e.g. "23072.00" or "121.000".
func (b Bill) MarshalJSON() ([]byte, error) {
	c := b.Currency
	items := make([]billItemJSON, 0, len(b.Items))
	for _, item := range b.Items {
		items = append(items, item.toJSON(c))
	}
	return json.Marshal(billJSON{
		ID:                  b.ID,
		BillNumber:          b.BillNumber,
		BillDate:            b.BillDate,
		CustomerName:        b.CustomerName,
		CustomerEmail:       b.CustomerEmail,
		CustomerPhone:       b.CustomerPhone,
		CustomerAddress:     b.CustomerAddress,
		Currency:            c,
		MakingChargePercent: b.MakingChargePercent,
		TaxPercent:          b.TaxPercent,
		Subtotal:            c.String(b.Subtotal),
		MakingCharges:       c.String(b.MakingCharges),
		taxJSON:             b.TaxColumns.toJSON(c),
		Discount:            c.String(b.Discount),
		Total:               c.String(b.Total),
		PaidAmount:          c.String(b.PaidAmount),
		PaymentMethod:       b.PaymentMethod,
		Metadata:            b.Metadata,
		Items:               items,
		CreatedAt:           b.CreatedAt,
	})
}

func (item BillItem) toJSON(c Currency) billItemJSON {
	return billItemJSON{
		ID:            item.ID,
		Position:      item.Position,
		ProductID:     item.ProductID,
		ProductName:   item.ProductName,
		Purity:        item.Purity,
		Quantity:      item.Quantity,
		PriceINR:      fixedOrNil(item.PriceINR, CurrencyINR.Places()),
		PriceBHD:      fixedOrNil(item.PriceBHD, CurrencyBHD.Places()),
		GrossWeight:   item.GrossWeight.StringFixed(weightPlaces),
		NetWeight:     item.NetWeight.StringFixed(weightPlaces),
		UnitPrice:     c.String(item.UnitPrice),
		ItemSubtotal:  c.String(item.ItemSubtotal),
		MakingCharges: c.String(item.MakingCharges),
		taxJSON:       item.TaxColumns.toJSON(c),
		Discount:      c.String(item.Discount),
		Total:         c.String(item.Total),
	}
}

func (t TaxColumns) toJSON(c Currency) taxJSON {
	return taxJSON{
		TaxKind: t.TaxKind,
		GST:     c.String(t.GSTAmount),
		SGST:    c.String(t.SGSTAmount),
		CGST:    c.String(t.CGSTAmount),
		VAT:     c.String(t.VATAmount),
	}
}

func fixedOrNil(amount *decimal.Decimal, places int32) *string {
	if amount == nil {
		return nil
	}
	s := amount.StringFixed(places)
	return &s
}
