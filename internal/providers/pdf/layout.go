package pdf

import (
	"strconv"
	"strings"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/jewelbill/internal/bill/render"
)

// The item table widths fill the grid exactly.
const (
	gridSize   = 530
	half       = gridSize / 2
	pageMargin = 15
	lineHeight = 3.5
)

// ColumnWidths are the item table column widths.
var ColumnWidths = []int{85, 45, 55, 55, 60, 55, 50, 40, 85}

var columnHeaders = []string{
	"Product Description", "Purity", "Net Wt (g)", "Gross Wt (g)",
	"Product Price", "Making Charges", "Discount", "Tax", "Total Amount",
}

var (
	gold      = &props.Color{Red: 212, Green: 175, Blue: 55}
	black     = &props.Color{Red: 0, Green: 0, Blue: 0}
	white     = &props.Color{Red: 255, Green: 255, Blue: 255}
	lightGray = &props.Color{Red: 248, Green: 248, Blue: 248}
	midGray   = &props.Color{Red: 229, Green: 229, Blue: 229}
)

// Section is a named group of rows in page order. Top is the offset of the
// section below the top margin in millimetres, ignoring page breaks.
type Section struct {
	Name   string
	Top    float64
	Height float64
	Rows   []core.Row
}

func (s *Section) add(height float64, cols ...core.Col) core.Row {
	r := row.New(height).Add(cols...)
	s.Rows = append(s.Rows, r)
	s.Height += height
	return r
}

// Layout plans the invoice page. A nil logo selects the text letterhead.
func Layout(view render.View, logo *Logo) []Section {
	sections := []Section{
		letterhead(view, logo),
		copyStrip(view),
		title(view),
		parties(view),
		itemTable(view),
		summary(view),
		words(view),
		grandTotal(view),
		footer(view),
	}

	top := 0.0
	for i := range sections {
		sections[i].Top = top
		top += sections[i].Height
	}
	return sections
}

func letterhead(view render.View, logo *Logo) Section {
	if logo != nil {
		s := Section{Name: "letterhead_logo"}
		s.add(28,
			col.New(gridSize/4),
			image.NewFromBytesCol(half, logo.Bytes, logo.Extension, props.Rect{Center: true, Percent: 95}),
			col.New(gridSize/4),
		)
		return s
	}

	name := view.Company.ShortName
	if strings.TrimSpace(name) == "" {
		name = view.Company.Name
	}
	s := Section{Name: "letterhead_text"}
	s.add(14, text.NewCol(gridSize, name, props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Center, Color: gold, Top: 3}))
	s.add(2, line.NewCol(gridSize, props.Line{Color: gold, Thickness: 0.6}))
	return s
}

func copyStrip(view render.View) Section {
	s := Section{Name: "copy"}
	s.add(6,
		col.New(half),
		text.NewCol(half, "CUSTOMER COPY   Date: "+view.IssuedAt, props.Text{Size: 8, Align: align.Right}),
	)
	return s
}

func title(view render.View) Section {
	s := Section{Name: "title"}
	s.add(10,
		text.NewCol(half, "TAX INVOICE", props.Text{Size: 13, Style: fontstyle.Bold, Top: 2, Left: 2}),
		text.NewCol(half, "Invoice No: "+view.BillNumber, props.Text{Size: 9, Style: fontstyle.Bold, Top: 3, Align: align.Right, Right: 2}),
	).WithStyle(&props.Cell{BorderType: border.Full, BorderColor: black, BorderThickness: 0.4})
	return s
}

func parties(view render.View) Section {
	companyLines := append([]string{}, view.Company.AddressLines...)
	companyLines = append(companyLines,
		"Phone: "+view.Company.Phone,
		"GSTIN: "+view.Company.GSTIN,
		"State Code: "+view.Company.StateCode,
		"Email: "+view.Company.Email,
	)
	customerLines := []string{
		"Name: " + view.Customer.Name,
		"Phone: " + view.Customer.Phone,
		"Email: " + view.Customer.Email,
		"Address: " + view.Customer.Address,
	}

	company := block(view.Company.Name, companyLines)
	customer := block("CUSTOMER DETAILS:", customerLines)

	n := len(companyLines)
	if len(customerLines) > n {
		n = len(customerLines)
	}
	s := Section{Name: "parties"}
	s.add(float64(n+1)*lineHeight+3, company, customer)
	return s
}

func block(heading string, lines []string) core.Col {
	c := col.New(half).Add(text.New(heading, props.Text{Size: 9, Style: fontstyle.Bold}))
	for i, l := range lines {
		c.Add(text.New(l, props.Text{Size: 8, Top: float64(i+1)*lineHeight + 1}))
	}
	return c
}

func itemTable(view render.View) Section {
	s := Section{Name: "items"}

	headers := make([]core.Col, len(ColumnWidths))
	for i, w := range ColumnWidths {
		label := columnHeaders[i]
		if i == 7 {
			label = view.TaxLabel
		}
		headers[i] = text.NewCol(w, label, props.Text{Size: 7, Style: fontstyle.Bold, Color: white, Align: align.Center, Top: 2})
	}
	s.add(8, headers...).WithStyle(&props.Cell{BackgroundColor: gold})

	for i, item := range view.Items {
		desc := item.Description
		if item.Quantity > 1 {
			desc += " x " + strconv.Itoa(item.Quantity)
		}
		r := s.add(8, cells([]string{
			desc, item.Purity, item.NetWeight, item.GrossWeight,
			item.UnitPrice, item.MakingCharges, item.Discount, item.Tax, item.Total,
		}, false)...)
		if i%2 == 1 {
			r.WithStyle(&props.Cell{BackgroundColor: lightGray})
		}
	}

	totals := make([]string, len(ColumnWidths))
	totals[0] = "Total"
	totals[1] = strconv.Itoa(view.TotalQuantity)
	totals[len(totals)-1] = view.Total
	s.add(8, cells(totals, true)...).WithStyle(&props.Cell{BackgroundColor: midGray})
	return s
}

func cells(values []string, bold bool) []core.Col {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	cols := make([]core.Col, len(ColumnWidths))
	for i, w := range ColumnWidths {
		a := align.Right
		if i == 0 {
			a = align.Left
		} else if i < 4 {
			a = align.Center
		}
		cols[i] = text.NewCol(w, values[i], props.Text{Size: 7, Style: style, Align: a, Top: 2, Left: 1, Right: 1}).
			WithStyle(&props.Cell{BorderType: border.Full, BorderColor: black, BorderThickness: 0.2})
	}
	return cols
}

type summaryLine struct {
	label string
	value string
}

func summary(view render.View) Section {
	left := []summaryLine{
		{"Total Qty Purchased:", strconv.Itoa(view.TotalQuantity)},
		{"Payment Mode:", view.PaymentMethod},
		{"Total Amount Paid:", view.PaidAmount},
	}
	right := []summaryLine{
		{"Product Total Value:", view.Subtotal},
		{"Making Charges (" + view.MakingPercent + "%):", view.MakingCharges},
		{"Discount Applied:", view.Discount},
	}
	if view.ShowGSTSplit {
		right = append(right, summaryLine{"SGST:", view.SGST}, summaryLine{"CGST:", view.CGST})
	}
	right = append(right,
		summaryLine{view.TaxLabel + " (" + view.TaxPercent + "%):", view.Tax},
		summaryLine{"Net Invoice Value:", view.Total},
	)

	s := Section{Name: "summary"}
	s.add(9, text.NewCol(gridSize, "PAYMENT & BILLING SUMMARY", props.Text{Size: 10, Style: fontstyle.Bold, Top: 4}))

	n := len(right)
	if len(left) > n {
		n = len(left)
	}
	for i := 0; i < n; i++ {
		var l, r summaryLine
		if i < len(left) {
			l = left[i]
		}
		if i < len(right) {
			r = right[i]
		}
		s.add(5,
			text.NewCol(110, l.label, props.Text{Size: 8, Style: fontstyle.Bold}),
			text.NewCol(120, l.value, props.Text{Size: 8}),
			text.NewCol(170, r.label, props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right, Right: 2}),
			text.NewCol(130, r.value, props.Text{Size: 8, Align: align.Right}),
		)
	}
	return s
}

func words(view render.View) Section {
	s := Section{Name: "words"}
	s.add(10, text.NewCol(gridSize, "Amount in Words: "+view.AmountInWords, props.Text{Size: 9, Style: fontstyle.Bold, Top: 3}))
	return s
}

func grandTotal(view render.View) Section {
	s := Section{Name: "grand_total"}
	s.add(12,
		text.NewCol(half, "TOTAL AMOUNT TO BE PAID:", props.Text{Size: 11, Style: fontstyle.Bold, Color: gold, Top: 3, Left: 4}),
		text.NewCol(half, view.Total, props.Text{Size: 13, Style: fontstyle.Bold, Color: gold, Top: 2.5, Align: align.Right, Right: 4}),
	).WithStyle(&props.Cell{BackgroundColor: black, BorderType: border.Full, BorderColor: gold, BorderThickness: 0.8})
	return s
}

func footer(view render.View) Section {
	contact := "Phone: " + view.Company.Phone + " | Email: " + view.Company.Email + " | GSTIN: " + view.Company.GSTIN

	s := Section{Name: "footer"}
	s.add(4, line.NewCol(gridSize, props.Line{Color: gold, Thickness: 0.4}))
	s.add(5, text.NewCol(gridSize, view.Company.Name, props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Center, Top: 1}))
	s.add(4, text.NewCol(gridSize, contact, props.Text{Size: 7, Align: align.Center}))
	if strings.TrimSpace(view.Company.FooterNote) != "" {
		s.add(5, text.NewCol(gridSize, view.Company.FooterNote, props.Text{Size: 8, Style: fontstyle.Italic, Align: align.Center, Top: 1}))
	}
	return s
}
