package render

import (
	"strings"
	"time"

	"github.com/smallbiznis/jewelbill/internal/bill/domain"
	"github.com/smallbiznis/jewelbill/internal/bill/format"
)

// Company is the letterhead printed on bills.
type Company struct {
	Name         string
	ShortName    string
	AddressLines []string
	Phone        string
	GSTIN        string
	StateCode    string
	Email        string
	LogoPath     string
	FooterNote   string
}

type Customer struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

type ItemView struct {
	Position      int
	Description   string
	Purity        string
	Quantity      int
	NetWeight     string
	GrossWeight   string
	UnitPrice     string
	MakingCharges string
	Discount      string
	Tax           string
	Total         string
}

// View is the fully formatted bill. Every figure is taken from the frozen
// record, so all renderers print the same totals.
type View struct {
	Company       Company
	BillNumber    string
	IssuedAt      string
	Currency      string
	TaxLabel      string
	Customer      Customer
	Items         []ItemView
	TotalQuantity int
	Subtotal      string
	MakingCharges string
	Discount      string
	Tax           string
	SGST          string
	CGST          string
	ShowGSTSplit  bool
	Total         string
	PaidAmount    string
	MakingPercent string
	TaxPercent    string
	PaymentMethod string
	AmountInWords string
}

const notAvailable = "N/A"

// BuildView formats bill for rendering in loc.
func BuildView(bill *domain.Bill, company Company, loc *time.Location) (View, error) {
	if bill == nil || strings.TrimSpace(bill.CustomerName) == "" || strings.TrimSpace(bill.BillNumber) == "" {
		return View{}, domain.ErrMalformedBill
	}
	currency, err := domain.ParseCurrency(string(bill.Currency))
	if err != nil {
		return View{}, domain.ErrMalformedBill
	}
	if loc == nil {
		loc = time.UTC
	}

	view := View{
		Company:       company,
		BillNumber:    bill.BillNumber,
		IssuedAt:      bill.CreatedAt.In(loc).Format("02/01/2006 15:04"),
		Currency:      string(currency),
		TaxLabel:      string(currency.TaxKind()),
		Customer:      Customer{Name: bill.CustomerName, Phone: orNA(bill.CustomerPhone), Email: orNA(bill.CustomerEmail), Address: orNA(bill.CustomerAddress)},
		Subtotal:      format.FormatExact(currency, bill.Subtotal),
		MakingCharges: format.FormatExact(currency, bill.MakingCharges),
		Discount:      format.FormatExact(currency, bill.Discount.Add(bill.LineDiscounts())),
		Tax:           format.FormatExact(currency, bill.TaxTotal()),
		ShowGSTSplit:  bill.TaxKind == domain.TaxKindGST,
		Total:         format.FormatExact(currency, bill.Total),
		PaidAmount:    format.FormatExact(currency, bill.PaidAmount),
		MakingPercent: format.Percent(bill.MakingChargePercent),
		TaxPercent:    format.Percent(bill.TaxPercent),
		PaymentMethod: strings.ReplaceAll(string(bill.PaymentMethod), "_", " "),
		AmountInWords: format.AmountInWords(currency, bill.Total),
	}
	if view.ShowGSTSplit {
		view.SGST = format.FormatExact(currency, bill.SGSTAmount)
		view.CGST = format.FormatExact(currency, bill.CGSTAmount)
	}
	if view.PaymentMethod == "" {
		view.PaymentMethod = string(domain.PaymentMethodCash)
	}

	for i, item := range bill.Items {
		view.TotalQuantity += item.Quantity
		view.Items = append(view.Items, ItemView{
			Position:      i + 1,
			Description:   item.ProductName,
			Purity:        orNA(item.Purity),
			Quantity:      item.Quantity,
			NetWeight:     format.Weight(item.NetWeight),
			GrossWeight:   format.Weight(item.GrossWeight),
			UnitPrice:     format.FormatExact(currency, item.UnitPrice),
			MakingCharges: format.FormatExact(currency, item.MakingCharges),
			Discount:      format.FormatExact(currency, item.Discount),
			Tax:           format.FormatExact(currency, item.TaxTotal()),
			Total:         format.FormatExact(currency, item.Total),
		})
	}
	return view, nil
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return notAvailable
	}
	return value
}
