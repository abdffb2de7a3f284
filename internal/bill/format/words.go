package format

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/jewelbill/internal/bill/domain"
)

var (
	ones = []string{
		"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
		"Seventeen", "Eighteen", "Nineteen",
	}
	tens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

type scale struct {
	size int64
	name string
}

// Indian numbering for rupees, short scale for dinars.
var (
	indianScale = []scale{{10000000, "Crore"}, {100000, "Lakh"}, {1000, "Thousand"}, {100, "Hundred"}}
	shortScale  = []scale{{1000000000, "Billion"}, {1000000, "Million"}, {1000, "Thousand"}, {100, "Hundred"}}
)

// AmountInWords spells a bill total, e.g. "Rupees Twenty Three Thousand
// Seventy Two and Fifty Paise Only" or "Bahraini Dinars One Hundred Twenty
// One and Five Hundred Fils Only".
func AmountInWords(c domain.Currency, amount decimal.Decimal) string {
	amount = c.Round(amount.Abs())
	whole := amount.Truncate(0)
	minor := amount.Sub(whole).Shift(c.Places()).IntPart()

	major, minorName, scales := "Rupees", "Paise", indianScale
	if c == domain.CurrencyBHD {
		major, minorName, scales = "Bahraini Dinars", "Fils", shortScale
	}

	parts := []string{major, spell(whole.IntPart(), scales)}
	if minor > 0 {
		parts = append(parts, "and", spell(minor, scales), minorName)
	}
	parts = append(parts, "Only")
	return strings.Join(parts, " ")
}

func spell(n int64, scales []scale) string {
	if n == 0 {
		return "Zero"
	}
	var words []string
	for _, s := range scales {
		if n >= s.size {
			words = append(words, spell(n/s.size, scales), s.name)
			n %= s.size
		}
	}
	switch {
	case n >= 20:
		words = append(words, tens[n/10])
		if n%10 > 0 {
			words = append(words, ones[n%10])
		}
	case n > 0:
		words = append(words, ones[n])
	}
	return strings.Join(words, " ")
}
