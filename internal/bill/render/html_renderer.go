package render

import (
	"bytes"
	"html/template"
)

const billHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Tax Invoice {{.BillNumber}}</title>
  <style>
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 32px;
      font-family: Helvetica, Arial, sans-serif;
      color: #111;
      background: #f4f1ea;
    }
    .sheet { background: #fff; max-width: 820px; margin: 0 auto; padding: 32px; }
    .letterhead { text-align: center; margin-bottom: 16px; }
    .letterhead h1 { margin: 0; font-size: 20px; letter-spacing: 1px; }
    .copy { text-align: right; font-size: 11px; }
    .title { border: 1px solid #000; padding: 6px 8px; font-weight: 700; font-size: 15px; margin: 12px 0; }
    .parties { display: flex; gap: 24px; font-size: 12px; line-height: 1.5; }
    .parties > div { flex: 1; }
    .parties h3 { font-size: 12px; margin: 0 0 4px; }
    table { width: 100%; border-collapse: collapse; margin-top: 16px; font-size: 11px; }
    th { background: #d4af37; color: #fff; padding: 8px 4px; text-align: center; }
    td { border: 1px solid #000; padding: 6px 4px; }
    tbody tr:nth-child(even) td { background: #f8f8f8; }
    .num { text-align: right; }
    .center { text-align: center; }
    .totals-row td { background: #e5e5e5; font-weight: 700; }
    .summary { display: flex; justify-content: space-between; font-size: 12px; margin-top: 20px; }
    .summary dl { display: grid; grid-template-columns: auto auto; gap: 4px 16px; margin: 0; }
    .summary dt { font-weight: 700; }
    .words { font-size: 12px; margin-top: 16px; }
    .grand { background: #000; color: #d4af37; border: 2px solid #d4af37; display: flex; justify-content: space-between; padding: 10px 16px; font-weight: 700; margin-top: 16px; }
    .footer { text-align: center; font-size: 10px; margin-top: 32px; line-height: 1.6; }
  </style>
</head>
<body>
  <div class="sheet">
    <div class="copy">CUSTOMER COPY<br>Date: {{.IssuedAt}}</div>
    <div class="letterhead"><h1>{{.Company.ShortName}}</h1></div>

    <div class="title">TAX INVOICE &middot; {{.BillNumber}}</div>

    <div class="parties">
      <div>
        <h3>{{.Company.Name}}</h3>
        {{range .Company.AddressLines}}{{.}}<br>{{end}}
        Phone: {{.Company.Phone}}<br>
        GSTIN: {{.Company.GSTIN}}<br>
        State Code: {{.Company.StateCode}}<br>
        Email: {{.Company.Email}}
      </div>
      <div>
        <h3>CUSTOMER DETAILS:</h3>
        Name: {{.Customer.Name}}<br>
        Phone: {{.Customer.Phone}}<br>
        Email: {{.Customer.Email}}<br>
        Address: {{.Customer.Address}}
      </div>
    </div>

    <table>
      <thead>
        <tr>
          <th>Product Description</th>
          <th>Purity</th>
          <th>Net Weight (g)</th>
          <th>Gross Weight (g)</th>
          <th>Product Price</th>
          <th>Making Charges</th>
          <th>Discount</th>
          <th>{{.TaxLabel}}</th>
          <th>Total Amount</th>
        </tr>
      </thead>
      <tbody>
        {{range .Items}}
        <tr>
          <td>{{.Description}}{{if gt .Quantity 1}} &times; {{.Quantity}}{{end}}</td>
          <td class="center">{{.Purity}}</td>
          <td class="center">{{.NetWeight}}</td>
          <td class="center">{{.GrossWeight}}</td>
          <td class="num">{{.UnitPrice}}</td>
          <td class="num">{{.MakingCharges}}</td>
          <td class="num">{{.Discount}}</td>
          <td class="num">{{.Tax}}</td>
          <td class="num">{{.Total}}</td>
        </tr>
        {{end}}
        <tr class="totals-row">
          <td>Total</td>
          <td class="center" colspan="7">{{.TotalQuantity}}</td>
          <td class="num">{{.Total}}</td>
        </tr>
      </tbody>
    </table>

    <div class="summary">
      <dl>
        <dt>Total Qty Purchased:</dt><dd>{{.TotalQuantity}}</dd>
        <dt>Payment Mode:</dt><dd>{{.PaymentMethod}}</dd>
        <dt>Total Amount Paid:</dt><dd>{{.PaidAmount}}</dd>
      </dl>
      <dl>
        <dt>Product Total Value:</dt><dd class="num">{{.Subtotal}}</dd>
        <dt>Making Charges ({{.MakingPercent}}%):</dt><dd class="num">{{.MakingCharges}}</dd>
        <dt>Discount Applied:</dt><dd class="num">{{.Discount}}</dd>
        {{if .ShowGSTSplit}}
        <dt>SGST:</dt><dd class="num">{{.SGST}}</dd>
        <dt>CGST:</dt><dd class="num">{{.CGST}}</dd>
        {{end}}
        <dt>{{.TaxLabel}} ({{.TaxPercent}}%):</dt><dd class="num">{{.Tax}}</dd>
        <dt>Net Invoice Value:</dt><dd class="num">{{.Total}}</dd>
      </dl>
    </div>

    <div class="words"><strong>Amount in Words:</strong> {{.AmountInWords}}</div>

    <div class="grand"><span>TOTAL AMOUNT TO BE PAID:</span><span>{{.Total}}</span></div>

    <div class="footer">
      {{.Company.Name}}<br>
      Phone: {{.Company.Phone}} | Email: {{.Company.Email}} | GSTIN: {{.Company.GSTIN}}<br>
      {{.Company.FooterNote}}
    </div>
  </div>
</body>
</html>
`

// Renderer turns a bill view into a document body.
type Renderer interface {
	RenderHTML(view View) (string, error)
}

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	return &HTMLRenderer{
		tpl: template.Must(template.New("bill").Parse(billHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(view View) (string, error) {
	if view.Company.ShortName == "" {
		view.Company.ShortName = view.Company.Name
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
