package calc

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/jewelbill/internal/bill/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildBill(t *testing.T, currency domain.Currency, rates Rates, discount string, lines ...domain.BillItem) *domain.Bill {
	t.Helper()
	totals, err := Aggregate(currency, lines, dec(discount))
	require.NoError(t, err)

	bill := &domain.Bill{
		BillNumber:          "PJ/20250819-001",
		CustomerName:        "Meena",
		Currency:            currency,
		MakingChargePercent: rates.MakingPercent,
		TaxPercent:          rates.TaxPercent,
		PaymentMethod:       domain.PaymentMethodCash,
		Items:               lines,
	}
	totals.Apply(bill)
	bill.PaidAmount, err = ResolvePaidAmount(currency, bill.Total, nil)
	require.NoError(t, err)
	return bill
}

func inrLines(t *testing.T, rates Rates) []domain.BillItem {
	t.Helper()
	first, err := CalculateItem(necklace(), 2, decimal.Zero, domain.CurrencyINR, rates)
	require.NoError(t, err)
	bangle := domain.ProductSnapshot{ID: 9, Name: "Bangle", PriceINR: decPtr("4999.99")}
	second, err := CalculateItem(bangle, 1, decimal.Zero, domain.CurrencyINR, rates)
	require.NoError(t, err)
	return []domain.BillItem{first, second}
}

func TestAggregateSumsLines(t *testing.T) {
	rates := Rates{MakingPercent: dec("12"), TaxPercent: dec("3")}
	lines := inrLines(t, rates)

	totals, err := Aggregate(domain.CurrencyINR, lines, dec("100"))
	require.NoError(t, err)

	assertDec(t, lines[0].ItemSubtotal.Add(lines[1].ItemSubtotal).String(), totals.Subtotal, "subtotal")
	assertDec(t, lines[0].MakingCharges.Add(lines[1].MakingCharges).String(), totals.MakingCharges, "making")
	gst := totals.Tax.(domain.GST)
	assertDec(t, lines[0].SGSTAmount.Add(lines[1].SGSTAmount).String(), gst.SGST, "sgst")
	assertDec(t, lines[0].CGSTAmount.Add(lines[1].CGSTAmount).String(), gst.CGST, "cgst")

	lineTotals := lines[0].Total.Add(lines[1].Total)
	assertDec(t, lineTotals.Sub(dec("100")).String(), totals.Total, "total")
	assertDec(t, totals.Gross().Sub(dec("100")).String(), totals.Total, "gross - discount")
}

func TestAggregateRejectsBadInput(t *testing.T) {
	_, err := Aggregate(domain.CurrencyINR, nil, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrEmptyItems)

	lines := inrLines(t, Rates{})
	_, err = Aggregate(domain.CurrencyINR, lines, dec("-1"))
	assert.ErrorIs(t, err, domain.ErrInvalidDiscount)

	_, err = Aggregate(domain.CurrencyINR, lines, dec("1000000"))
	assert.ErrorIs(t, err, domain.ErrInvalidDiscount)
}

func TestResolvePaidAmount(t *testing.T) {
	total := dec("121.000")
	paid, err := ResolvePaidAmount(domain.CurrencyBHD, total, nil)
	require.NoError(t, err)
	assertDec(t, "121", paid, "default")

	paid, err = ResolvePaidAmount(domain.CurrencyBHD, total, decPtr("50.5"))
	require.NoError(t, err)
	assertDec(t, "50.5", paid, "partial")

	_, err = ResolvePaidAmount(domain.CurrencyBHD, total, decPtr("121.001"))
	assert.ErrorIs(t, err, domain.ErrInvalidPaidAmount)
}

func TestVerifyAcceptsComputedBill(t *testing.T) {
	rates := Rates{MakingPercent: dec("12"), TaxPercent: dec("3")}
	bill := buildBill(t, domain.CurrencyINR, rates, "0", inrLines(t, rates)...)
	assert.NoError(t, Verify(bill))

	bhdRates := Rates{MakingPercent: dec("10"), TaxPercent: dec("10")}
	line, err := CalculateItem(necklace(), 1, decimal.Zero, domain.CurrencyBHD, bhdRates)
	require.NoError(t, err)
	bhd := buildBill(t, domain.CurrencyBHD, bhdRates, "1.500", line)
	require.NoError(t, Verify(bhd))
	assert.Equal(t, "119.500", domain.CurrencyBHD.String(bhd.Total))
}

func TestVerifyRejectsTamperedTotals(t *testing.T) {
	rates := Rates{MakingPercent: dec("12"), TaxPercent: dec("3")}

	cases := map[string]func(b *domain.Bill){
		"total":             func(b *domain.Bill) { b.Total = b.Total.Add(dec("0.01")) },
		"making_charges":    func(b *domain.Bill) { b.MakingCharges = b.MakingCharges.Sub(dec("1")) },
		"items[0].total":    func(b *domain.Bill) { b.Items[0].Total = b.Items[0].Total.Add(dec("1")) },
		"items[1].sgst":     func(b *domain.Bill) { b.Items[1].SGSTAmount = b.Items[1].SGSTAmount.Add(dec("0.01")) },
		"vat":               func(b *domain.Bill) { b.VATAmount = dec("5") },
		"paid_amount":       func(b *domain.Bill) { b.PaidAmount = b.Total.Add(dec("1")) },
		"items[0].quantity": func(b *domain.Bill) { b.Items[0].Quantity = 0 },
	}
	for field, tamper := range cases {
		t.Run(field, func(t *testing.T) {
			bill := buildBill(t, domain.CurrencyINR, rates, "0", inrLines(t, rates)...)
			tamper(bill)

			err := Verify(bill)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrIntegrity)

			var integrity *domain.IntegrityError
			require.True(t, errors.As(err, &integrity))
			assert.Equal(t, field, integrity.Field)
		})
	}
}

func TestVerifyRejectsExtraPrecision(t *testing.T) {
	rates := Rates{}
	bill := buildBill(t, domain.CurrencyINR, rates, "0", inrLines(t, rates)...)
	bill.PaidAmount = dec("0.001")

	err := Verify(bill)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
	var integrity *domain.IntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Equal(t, "paid_amount", integrity.Field)
}

func TestFitsCurrencyReportsFirstFieldInOrder(t *testing.T) {
	amounts := []amountField{
		{"unit_price", dec("10.00")},
		{"item_subtotal", dec("10.001")},
		{"making_charges", dec("1.0005")},
		{"discount", dec("0.0001")},
		{"total", dec("11.0011")},
	}
	for i := 0; i < 50; i++ {
		err := fitsCurrency(domain.CurrencyINR, "items[3].", amounts)
		require.Error(t, err)

		var integrity *domain.IntegrityError
		require.True(t, errors.As(err, &integrity))
		assert.Equal(t, "items[3].item_subtotal", integrity.Field)
		assert.Equal(t, "10.001", integrity.Actual)
	}

	err := fitsCurrency(domain.CurrencyBHD, "", amounts)
	var integrity *domain.IntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Equal(t, "making_charges", integrity.Field)
	assert.Equal(t, "3 decimal places", integrity.Expected)
}
