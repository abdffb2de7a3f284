package domain

import "github.com/shopspring/decimal"

type TaxKind string

const (
	TaxKindGST TaxKind = "GST"
	TaxKindVAT TaxKind = "VAT"
)

// Tax is either GST (split into state and central halves) or VAT.
type Tax interface {
	Kind() TaxKind
	Total() decimal.Decimal
	sealed()
}

// GST is the Indian goods and services tax.
type GST struct {
	SGST decimal.Decimal `json:"sgst"`
	CGST decimal.Decimal `json:"cgst"`
}

func (GST) Kind() TaxKind            { return TaxKindGST }
func (g GST) Total() decimal.Decimal { return g.SGST.Add(g.CGST) }
func (GST) sealed()                  {}

// VAT is the Bahraini value added tax.
type VAT struct {
	Amount decimal.Decimal `json:"amount"`
}

func (VAT) Kind() TaxKind            { return TaxKindVAT }
func (v VAT) Total() decimal.Decimal { return v.Amount }
func (VAT) sealed()                  {}

// TaxColumns is the flattened storage form of a Tax. GST and VAT never share
// a column.
type TaxColumns struct {
	TaxKind    TaxKind         `gorm:"type:varchar(8);not null" json:"tax_kind"`
	GSTAmount  decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"gst"`
	SGSTAmount decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"sgst"`
	CGSTAmount decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"cgst"`
	VATAmount  decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"vat"`
}

// ColumnsOf flattens t; a nil tax yields zero GST columns.
func ColumnsOf(t Tax) TaxColumns {
	switch v := t.(type) {
	case GST:
		return TaxColumns{
			TaxKind:    TaxKindGST,
			GSTAmount:  v.Total(),
			SGSTAmount: v.SGST,
			CGSTAmount: v.CGST,
			VATAmount:  decimal.Zero,
		}
	case VAT:
		return TaxColumns{
			TaxKind:    TaxKindVAT,
			GSTAmount:  decimal.Zero,
			SGSTAmount: decimal.Zero,
			CGSTAmount: decimal.Zero,
			VATAmount:  v.Amount,
		}
	default:
		return TaxColumns{TaxKind: TaxKindGST}
	}
}

// Tax rebuilds the variant from the stored columns.
func (c TaxColumns) Tax() Tax {
	if c.TaxKind == TaxKindVAT {
		return VAT{Amount: c.VATAmount}
	}
	return GST{SGST: c.SGSTAmount, CGST: c.CGSTAmount}
}

// TaxTotal is the tax amount regardless of kind.
func (c TaxColumns) TaxTotal() decimal.Decimal {
	if c.TaxKind == TaxKindVAT {
		return c.VATAmount
	}
	return c.GSTAmount
}
