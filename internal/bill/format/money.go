package format

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/jewelbill/internal/bill/domain"
)

// Symbol is the textual currency prefix used on bills.
func Symbol(c domain.Currency) string {
	if c == domain.CurrencyBHD {
		return "BD"
	}
	return "Rs."
}

// FormatAmount is the storefront display form: INR rounded to whole rupees
// with Indian digit grouping, BHD at exactly three places without separators.
// Rounding is half away from zero.
func FormatAmount(c domain.Currency, amount decimal.Decimal) string {
	if c == domain.CurrencyBHD {
		return Symbol(c) + " " + amount.StringFixed(3)
	}
	return Symbol(c) + " " + groupIndian(amount.StringFixed(0))
}

// FormatExact renders amount at the currency precision. Bill documents use
// it so every printed figure equals the stored one.
func FormatExact(c domain.Currency, amount decimal.Decimal) string {
	fixed := c.String(amount)
	if c == domain.CurrencyBHD {
		return Symbol(c) + " " + fixed
	}
	return Symbol(c) + " " + groupIndian(fixed)
}

// groupIndian applies the 3-2-2 grouping (12,34,567.50) to a plain decimal.
func groupIndian(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return sign + intPart + frac
	}

	head, tail := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return sign + strings.Join(groups, ",") + "," + tail + frac
}

// Weight renders grams with three decimals.
func Weight(grams decimal.Decimal) string {
	return grams.StringFixed(3)
}

// Percent trims trailing zeros: 3.000 -> "3", 7.50 -> "7.5".
func Percent(pct decimal.Decimal) string {
	return pct.String()
}
