package calc

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/jewelbill/internal/bill/domain"
)

// Verify recomputes every derived amount of a fully built bill from its lines,
// rates and snapshot prices. Any difference is reported as an IntegrityError.
func Verify(bill *domain.Bill) error {
	if bill == nil {
		return mismatch("bill", "present", "nil")
	}
	currency, err := domain.ParseCurrency(string(bill.Currency))
	if err != nil {
		return mismatch("currency", "INR|BHD", string(bill.Currency))
	}
	if len(bill.Items) == 0 {
		return mismatch("items", "at least one", "0")
	}
	rates := Rates{MakingPercent: bill.MakingChargePercent, TaxPercent: bill.TaxPercent}
	if err := rates.Validate(); err != nil {
		return mismatch("rates", "0..100", fmt.Sprintf("%s/%s", bill.MakingChargePercent, bill.TaxPercent))
	}

	for i, item := range bill.Items {
		if err := verifyItem(currency, rates, i, item); err != nil {
			return err
		}
	}

	totals, err := Aggregate(currency, bill.Items, bill.Discount)
	if err != nil {
		return mismatch("discount", "within bill total", bill.Discount.String())
	}
	expected := domain.ColumnsOf(totals.Tax)
	checks := []struct {
		field    string
		expected decimal.Decimal
		actual   decimal.Decimal
	}{
		{"subtotal", totals.Subtotal, bill.Subtotal},
		{"making_charges", totals.MakingCharges, bill.MakingCharges},
		{"gst", expected.GSTAmount, bill.GSTAmount},
		{"sgst", expected.SGSTAmount, bill.SGSTAmount},
		{"cgst", expected.CGSTAmount, bill.CGSTAmount},
		{"vat", expected.VATAmount, bill.VATAmount},
		{"total", totals.Total, bill.Total},
		{"total", totals.Gross().Sub(totals.LineDiscounts).Sub(bill.Discount), bill.Total},
	}
	for _, c := range checks {
		if !c.expected.Equal(c.actual) {
			return mismatch(c.field, currency.String(c.expected), currency.String(c.actual))
		}
	}
	if bill.TaxKind != currency.TaxKind() {
		return mismatch("tax_kind", string(currency.TaxKind()), string(bill.TaxKind))
	}
	if err := fitsCurrency(currency, "", []amountField{
		{"subtotal", bill.Subtotal},
		{"making_charges", bill.MakingCharges},
		{"discount", bill.Discount},
		{"total", bill.Total},
		{"paid_amount", bill.PaidAmount},
	}); err != nil {
		return err
	}
	if bill.PaidAmount.IsNegative() || bill.PaidAmount.GreaterThan(bill.Total) {
		return mismatch("paid_amount", "0.."+currency.String(bill.Total), currency.String(bill.PaidAmount))
	}
	return nil
}

func verifyItem(currency domain.Currency, rates Rates, index int, item domain.BillItem) error {
	field := func(name string) string { return fmt.Sprintf("items[%d].%s", index, name) }

	if item.Quantity < 1 {
		return mismatch(field("quantity"), ">= 1", fmt.Sprint(item.Quantity))
	}
	snapshot := domain.ProductSnapshot{PriceINR: item.PriceINR, PriceBHD: item.PriceBHD}
	price, ok := snapshot.PriceIn(currency)
	if !ok {
		return mismatch(field("unit_price"), "snapshot price", "missing")
	}
	if !currency.Round(price).Equal(item.UnitPrice) {
		return mismatch(field("unit_price"), currency.String(price), currency.String(item.UnitPrice))
	}

	recomputed, err := CalculateItem(domain.ProductSnapshot{
		ID:          item.ProductID,
		Name:        item.ProductName,
		PriceINR:    item.PriceINR,
		PriceBHD:    item.PriceBHD,
		GrossWeight: item.GrossWeight,
		NetWeight:   item.NetWeight,
	}, item.Quantity, item.Discount, currency, rates)
	if err != nil {
		return mismatch(field("discount"), "within line total", item.Discount.String())
	}

	checks := []struct {
		name     string
		expected decimal.Decimal
		actual   decimal.Decimal
	}{
		{"item_subtotal", recomputed.ItemSubtotal, item.ItemSubtotal},
		{"making_charges", recomputed.MakingCharges, item.MakingCharges},
		{"gst", recomputed.GSTAmount, item.GSTAmount},
		{"sgst", recomputed.SGSTAmount, item.SGSTAmount},
		{"cgst", recomputed.CGSTAmount, item.CGSTAmount},
		{"vat", recomputed.VATAmount, item.VATAmount},
		{"total", recomputed.Total, item.Total},
	}
	for _, c := range checks {
		if !c.expected.Equal(c.actual) {
			return mismatch(field(c.name), currency.String(c.expected), currency.String(c.actual))
		}
	}
	if item.TaxKind != currency.TaxKind() {
		return mismatch(field("tax_kind"), string(currency.TaxKind()), string(item.TaxKind))
	}
	if item.TaxKind == domain.TaxKindGST && !item.SGSTAmount.Add(item.CGSTAmount).Equal(item.GSTAmount) {
		return mismatch(field("gst"), currency.String(item.SGSTAmount.Add(item.CGSTAmount)), currency.String(item.GSTAmount))
	}
	return fitsCurrency(currency, fmt.Sprintf("items[%d].", index), []amountField{
		{"unit_price", item.UnitPrice},
		{"item_subtotal", item.ItemSubtotal},
		{"making_charges", item.MakingCharges},
		{"discount", item.Discount},
		{"total", item.Total},
	})
}

type amountField struct {
	name   string
	amount decimal.Decimal
}

// fitsCurrency reports the first amount, in order, carrying more places than
// the currency allows.
func fitsCurrency(currency domain.Currency, prefix string, amounts []amountField) error {
	for _, a := range amounts {
		if !currency.Fits(a.amount) {
			return mismatch(prefix+a.name, fmt.Sprintf("%d decimal places", currency.Places()), a.amount.String())
		}
	}
	return nil
}

func mismatch(field, expected, actual string) error {
	return &domain.IntegrityError{Field: field, Expected: expected, Actual: actual, Kind: domain.ErrIntegrity}
}
