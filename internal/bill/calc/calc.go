// Package calc prices bill lines and reconciles bill totals. All arithmetic is
// decimal and every stored amount is rounded to the bill currency.
package calc

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/jewelbill/internal/bill/domain"
)

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// Rates are the bill-level percentages applied to every line.
type Rates struct {
	MakingPercent decimal.Decimal
	TaxPercent    decimal.Decimal
}

// Validate requires both percentages to lie in [0, 100].
func (r Rates) Validate() error {
	for _, pct := range []decimal.Decimal{r.MakingPercent, r.TaxPercent} {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return domain.ErrInvalidRate
		}
	}
	return nil
}

// CalculateItem prices one line for the currency:
//
//	subtotal = unit price * quantity
//	making   = subtotal * making% / 100
//	tax      = (subtotal + making) * tax% / 100
//	total    = subtotal + making + tax - discount
func CalculateItem(product domain.ProductSnapshot, quantity int, discount decimal.Decimal, currency domain.Currency, rates Rates) (domain.BillItem, error) {
	if quantity < 1 {
		return domain.BillItem{}, domain.ErrInvalidQuantity
	}
	if _, err := domain.ParseCurrency(string(currency)); err != nil {
		return domain.BillItem{}, err
	}
	if err := rates.Validate(); err != nil {
		return domain.BillItem{}, err
	}
	unitPrice, ok := product.PriceIn(currency)
	if !ok {
		return domain.BillItem{}, domain.ErrMissingPrice
	}
	if unitPrice.IsNegative() {
		return domain.BillItem{}, domain.ErrInvalidAmount
	}
	if discount.IsNegative() || !currency.Fits(discount) {
		return domain.BillItem{}, domain.ErrInvalidDiscount
	}

	unitPrice = currency.Round(unitPrice)
	subtotal := currency.Round(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
	making := currency.Round(domain.Percent(subtotal, rates.MakingPercent))
	tax := computeTax(currency, subtotal.Add(making), rates.TaxPercent)

	gross := subtotal.Add(making).Add(tax.Total())
	if discount.GreaterThan(gross) {
		return domain.BillItem{}, domain.ErrInvalidDiscount
	}

	return domain.BillItem{
		ProductID:     product.ID,
		ProductName:   product.Name,
		Purity:        product.Purity,
		Quantity:      quantity,
		PriceINR:      product.PriceINR,
		PriceBHD:      product.PriceBHD,
		GrossWeight:   product.GrossWeight,
		NetWeight:     product.NetWeight,
		UnitPrice:     unitPrice,
		ItemSubtotal:  subtotal,
		MakingCharges: making,
		TaxColumns:    domain.ColumnsOf(tax),
		Discount:      discount,
		Total:         gross.Sub(discount),
	}, nil
}

// computeTax applies GST for INR and VAT for BHD.
func computeTax(currency domain.Currency, base, pct decimal.Decimal) domain.Tax {
	amount := currency.Round(domain.Percent(base, pct))
	if currency.TaxKind() == domain.TaxKindVAT {
		return domain.VAT{Amount: amount}
	}
	sgst, cgst := SplitGST(currency, amount)
	return domain.GST{SGST: sgst, CGST: cgst}
}

// SplitGST halves gst into state and central parts. CGST is the half rounded
// down to the currency precision; the odd minor unit stays with SGST, so the
// two always sum to gst exactly.
func SplitGST(currency domain.Currency, gst decimal.Decimal) (sgst, cgst decimal.Decimal) {
	gst = currency.Round(gst)
	cgst = gst.Div(two).Truncate(currency.Places())
	return gst.Sub(cgst), cgst
}
