package calc

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/jewelbill/internal/bill/domain"
)

// Totals are the bill-level sums.
type Totals struct {
	Subtotal      decimal.Decimal
	MakingCharges decimal.Decimal
	Tax           domain.Tax
	LineDiscounts decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
}

// Gross is subtotal plus making plus tax, before any discount.
func (t Totals) Gross() decimal.Decimal {
	return t.Subtotal.Add(t.MakingCharges).Add(t.Tax.Total())
}

// Aggregate sums priced lines and applies the bill-level discount once:
// total = sum(line totals) - discount.
func Aggregate(currency domain.Currency, items []domain.BillItem, discount decimal.Decimal) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, domain.ErrEmptyItems
	}
	if discount.IsNegative() || !currency.Fits(discount) {
		return Totals{}, domain.ErrInvalidDiscount
	}

	subtotal := decimal.Zero
	making := decimal.Zero
	lineDiscounts := decimal.Zero
	lineTotals := decimal.Zero
	sgst, cgst, vat := decimal.Zero, decimal.Zero, decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.ItemSubtotal)
		making = making.Add(item.MakingCharges)
		lineDiscounts = lineDiscounts.Add(item.Discount)
		lineTotals = lineTotals.Add(item.Total)
		sgst = sgst.Add(item.SGSTAmount)
		cgst = cgst.Add(item.CGSTAmount)
		vat = vat.Add(item.VATAmount)
	}

	var tax domain.Tax = domain.GST{SGST: sgst, CGST: cgst}
	if currency.TaxKind() == domain.TaxKindVAT {
		tax = domain.VAT{Amount: vat}
	}

	if discount.GreaterThan(lineTotals) {
		return Totals{}, domain.ErrInvalidDiscount
	}

	return Totals{
		Subtotal:      subtotal,
		MakingCharges: making,
		Tax:           tax,
		LineDiscounts: lineDiscounts,
		Discount:      discount,
		Total:         lineTotals.Sub(discount),
	}, nil
}

// ResolvePaidAmount defaults to the total; an explicit partial payment must
// lie in [0, total].
func ResolvePaidAmount(currency domain.Currency, total decimal.Decimal, paid *decimal.Decimal) (decimal.Decimal, error) {
	if paid == nil {
		return total, nil
	}
	if paid.IsNegative() || paid.GreaterThan(total) || !currency.Fits(*paid) {
		return decimal.Zero, domain.ErrInvalidPaidAmount
	}
	return *paid, nil
}

// Apply copies totals onto the bill header.
func (t Totals) Apply(bill *domain.Bill) {
	bill.Subtotal = t.Subtotal
	bill.MakingCharges = t.MakingCharges
	bill.TaxColumns = domain.ColumnsOf(t.Tax)
	bill.Discount = t.Discount
	bill.Total = t.Total
}
