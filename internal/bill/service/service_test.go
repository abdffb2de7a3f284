package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/jewelbill/internal/bill/domain"
	"github.com/smallbiznis/jewelbill/internal/bill/render"
	"github.com/smallbiznis/jewelbill/internal/bill/repository"
	"github.com/smallbiznis/jewelbill/internal/clock"
	"github.com/smallbiznis/jewelbill/internal/config"
	productdomain "github.com/smallbiznis/jewelbill/internal/product/domain"
	productrepository "github.com/smallbiznis/jewelbill/internal/product/repository"
	productservice "github.com/smallbiznis/jewelbill/internal/product/service"
	pdfprovider "github.com/smallbiznis/jewelbill/internal/providers/pdf"
	"github.com/smallbiznis/jewelbill/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	necklaceID = "1001"
	ankletID   = "1002"
	inactiveID = "1003"
	ringID     = "1004"
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Bill{}, &domain.BillItem{}, &domain.BillSequence{}, &productdomain.Product{}))

	products := []productdomain.Product{
		{ID: 1001, Name: "Temple Necklace", Category: "necklace", Material: "GOLD", Purity: "22K", PriceINR: decPtr("10000"), PriceBHD: decPtr("100.000"), GrossWeight: dec("12.5"), NetWeight: dec("12"), IsActive: true},
		{ID: 1002, Name: "Silver Anklet", Category: "anklet", Material: "SILVER", Purity: "PURE", PriceINR: decPtr("1499.50"), IsActive: true},
		{ID: 1003, Name: "Retired Bangle", Category: "bangle", Material: "GOLD", Purity: "18K", PriceINR: decPtr("5000"), IsActive: true},
		{ID: 1004, Name: "Diamond Ring", Category: "ring", Material: "GOLD", Purity: "18K", PriceINR: decPtr("45000"), PriceBHD: decPtr("205.125"), GrossWeight: dec("4.2"), NetWeight: dec("3.9"), IsActive: true},
	}
	require.NoError(t, conn.Create(&products).Error)
	require.NoError(t, conn.Model(&productdomain.Product{}).Where("id = ?", 1003).Update("is_active", false).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	// 06:30 UTC is 12:00 in Salem
	clk := clock.NewFakeClock(time.Date(2025, 8, 19, 6, 30, 0, 0, time.UTC))
	svc := New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clk,
		Config:  config.Config{ShopTimezone: "Asia/Kolkata"},
		Billing: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		Repo:    repository.Provide(),
		Products: productservice.New(productservice.Params{
			DB:   conn,
			Log:  zap.NewNop(),
			Repo: productrepository.Provide(),
		}),
		Renderer: render.NewRenderer(),
		PDF:      pdfprovider.New(pdfprovider.Params{Log: zap.NewNop()}),
	})
	return fixture{svc: svc, db: conn, clock: clk}
}

func inrRequest(name string) domain.CreateBillRequest {
	return domain.CreateBillRequest{
		CustomerName:  name,
		CustomerPhone: "+91 98400 12345",
		Currency:      "INR",
		PaymentMethod: "upi",
		Items:         []domain.CreateBillItem{{ProductID: necklaceID, Quantity: 2}},
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", msg, want, got)
}

func TestCreateINRBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill, err := f.svc.Create(ctx, inrRequest("Meena Sundaram"))
	require.NoError(t, err)

	assert.Equal(t, "PJ/20250819-001", bill.BillNumber)
	assert.Equal(t, "20250819", bill.BillDate)
	assert.Equal(t, domain.PaymentMethodUPI, bill.PaymentMethod)
	assertDec(t, "20000", bill.Subtotal, "subtotal")
	assertDec(t, "2400", bill.MakingCharges, "making")
	assertDec(t, "672", bill.GSTAmount, "gst")
	assertDec(t, "336", bill.SGSTAmount, "sgst")
	assertDec(t, "336", bill.CGSTAmount, "cgst")
	assert.Equal(t, "23072.00", bill.Currency.String(bill.Total))
	assertDec(t, "23072", bill.PaidAmount, "paid")

	stored, err := f.svc.GetByNumber(ctx, "PJ/20250819-001")
	require.NoError(t, err)
	assert.Equal(t, bill.ID, stored.ID)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Temple Necklace", stored.Items[0].ProductName)
	assertDec(t, "23072", stored.Total, "stored total")
}

func TestCreateNumbersAfterPriorBills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.svc.Create(ctx, inrRequest(fmt.Sprintf("Customer %d", i)))
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	bill, err := f.svc.Create(ctx, inrRequest("Fifth Customer"))
	require.NoError(t, err)
	assert.Equal(t, "PJ/20250819-005", bill.BillNumber)

	// 19:00 UTC is already the next day in IST
	f.clock.Set(time.Date(2025, 8, 19, 19, 0, 0, 0, time.UTC))
	next, err := f.svc.Create(ctx, inrRequest("Late Customer"))
	require.NoError(t, err)
	assert.Equal(t, "PJ/20250820-001", next.BillNumber)
}

func TestCreateBHDBill(t *testing.T) {
	f := newFixture(t)

	bill, err := f.svc.Create(context.Background(), domain.CreateBillRequest{
		CustomerName:        "Abdulla Al Khalifa",
		Currency:            "BHD",
		MakingChargePercent: decPtr("10"),
		TaxPercent:          decPtr("10"),
		Items:               []domain.CreateBillItem{{ProductID: necklaceID, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TaxKindVAT, bill.TaxKind)
	assert.Equal(t, "100.000", bill.Currency.String(bill.Subtotal))
	assert.Equal(t, "10.000", bill.Currency.String(bill.MakingCharges))
	assert.Equal(t, "11.000", bill.Currency.String(bill.VATAmount))
	assert.Equal(t, "121.000", bill.Currency.String(bill.Total))
	assert.True(t, bill.SGSTAmount.IsZero())
	assert.True(t, bill.CGSTAmount.IsZero())
	assert.Equal(t, domain.PaymentMethodCash, bill.PaymentMethod)
}

func TestBillJSONKeepsCurrencyPrecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	type moneyFields struct {
		Subtotal      string `json:"subtotal"`
		MakingCharges string `json:"making_charges"`
		SGST          string `json:"sgst"`
		CGST          string `json:"cgst"`
		VAT           string `json:"vat"`
		Total         string `json:"total"`
		PaidAmount    string `json:"paid_amount"`
		Items         []struct {
			UnitPrice string `json:"unit_price"`
			SGST      string `json:"sgst"`
			Total     string `json:"total"`
		} `json:"items"`
	}
	decode := func(bill *domain.Bill) moneyFields {
		raw, err := json.Marshal(bill)
		require.NoError(t, err)
		var out moneyFields
		require.NoError(t, json.Unmarshal(raw, &out))
		return out
	}

	created, err := f.svc.Create(ctx, domain.CreateBillRequest{
		CustomerName:        "Abdulla Al Khalifa",
		Currency:            "BHD",
		MakingChargePercent: decPtr("10"),
		TaxPercent:          decPtr("10"),
		Items:               []domain.CreateBillItem{{ProductID: necklaceID, Quantity: 1}},
	})
	require.NoError(t, err)
	stored, err := f.svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	for _, bill := range []*domain.Bill{created, stored} {
		got := decode(bill)
		assert.Equal(t, "100.000", got.Subtotal)
		assert.Equal(t, "10.000", got.MakingCharges)
		assert.Equal(t, "11.000", got.VAT)
		assert.Equal(t, "0.000", got.SGST)
		assert.Equal(t, "121.000", got.Total)
		assert.Equal(t, "121.000", got.PaidAmount)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "100.000", got.Items[0].UnitPrice)
		assert.Equal(t, "121.000", got.Items[0].Total)
	}

	inr, err := f.svc.Create(ctx, inrRequest("Meena Sundaram"))
	require.NoError(t, err)
	got := decode(inr)
	assert.Equal(t, "20000.00", got.Subtotal)
	assert.Equal(t, "336.00", got.SGST)
	assert.Equal(t, "336.00", got.CGST)
	assert.Equal(t, "0.00", got.VAT)
	assert.Equal(t, "23072.00", got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "10000.00", got.Items[0].UnitPrice)
	assert.Equal(t, "336.00", got.Items[0].SGST)
	assert.Equal(t, "23072.00", got.Items[0].Total)
}

func TestCreateUsesVATDefaultForBHD(t *testing.T) {
	f := newFixture(t)

	bill, err := f.svc.Preview(context.Background(), domain.CreateBillRequest{
		CustomerName: "Fatima",
		Currency:     "bhd",
		Items:        []domain.CreateBillItem{{ProductID: necklaceID, Quantity: 1}},
	})
	require.NoError(t, err)
	assertDec(t, "12", bill.MakingChargePercent, "making pct")
	assertDec(t, "10", bill.TaxPercent, "vat pct")
	assert.Equal(t, "123.200", bill.Currency.String(bill.Total))
}

func TestCreateRejectsExpectedTotalsMismatch(t *testing.T) {
	f := newFixture(t)
	req := inrRequest("Meena")
	req.Expected = &domain.ExpectedTotals{Subtotal: decPtr("20000"), Total: decPtr("23072.01")}

	_, err := f.svc.Create(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrTotalsMismatch)
	require.ErrorIs(t, err, domain.ErrIntegrity)

	var integrityErr *domain.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.Equal(t, "expected.total", integrityErr.Field)
	assert.Equal(t, "23072.00", integrityErr.Expected)

	var count int64
	require.NoError(t, f.db.Model(&domain.Bill{}).Count(&count).Error)
	assert.Zero(t, count)

	req.Expected.Total = decPtr("23072")
	_, err = f.svc.Create(context.Background(), req)
	assert.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		mod   func(*domain.CreateBillRequest)
		want  error
		index int
	}{
		{name: "blank customer", mod: func(r *domain.CreateBillRequest) { r.CustomerName = "  " }, want: domain.ErrInvalidCustomer, index: -1},
		{name: "bad email", mod: func(r *domain.CreateBillRequest) { r.CustomerEmail = "not-an-email" }, want: domain.ErrInvalidEmail, index: -1},
		{name: "bad currency", mod: func(r *domain.CreateBillRequest) { r.Currency = "USD" }, want: domain.ErrInvalidCurrency, index: -1},
		{name: "bad payment method", mod: func(r *domain.CreateBillRequest) { r.PaymentMethod = "barter" }, want: domain.ErrInvalidPaymentMethod, index: -1},
		{name: "no items", mod: func(r *domain.CreateBillRequest) { r.Items = nil }, want: domain.ErrEmptyItems, index: -1},
		{name: "rate above 100", mod: func(r *domain.CreateBillRequest) { r.TaxPercent = decPtr("101") }, want: domain.ErrInvalidRate, index: -1},
		{name: "zero quantity", mod: func(r *domain.CreateBillRequest) {
			r.Items = append(r.Items, domain.CreateBillItem{ProductID: ankletID, Quantity: 0})
		}, want: domain.ErrInvalidQuantity, index: 1},
		{name: "unknown product", mod: func(r *domain.CreateBillRequest) { r.Items[0].ProductID = "424242" }, want: domain.ErrProductNotFound, index: 0},
		{name: "malformed product id", mod: func(r *domain.CreateBillRequest) { r.Items[0].ProductID = "abc" }, want: domain.ErrProductNotFound, index: 0},
		{name: "inactive product", mod: func(r *domain.CreateBillRequest) { r.Items[0].ProductID = inactiveID }, want: domain.ErrProductInactive, index: 0},
		{name: "missing price", mod: func(r *domain.CreateBillRequest) {
			r.Currency = "BHD"
			r.Items[0].ProductID = ankletID
		}, want: domain.ErrMissingPrice, index: 0},
		{name: "discount above total", mod: func(r *domain.CreateBillRequest) { r.Discount = decPtr("50000") }, want: domain.ErrInvalidDiscount, index: -1},
		{name: "overpaid", mod: func(r *domain.CreateBillRequest) { r.PaidAmount = decPtr("23072.01") }, want: domain.ErrInvalidPaidAmount, index: -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := inrRequest("Meena")
			tc.mod(&req)
			_, err := f.svc.Create(ctx, req)
			require.ErrorIs(t, err, tc.want)
			var itemErr *domain.ItemError
			if tc.index >= 0 {
				require.ErrorAs(t, err, &itemErr)
				assert.Equal(t, tc.index, itemErr.Index)
			} else {
				assert.False(t, errorAsItem(err, &itemErr))
			}
		})
	}
}

func TestCreateWithDiscountsAndPartialPayment(t *testing.T) {
	f := newFixture(t)
	req := inrRequest("Ravi Kumar")
	req.Items = append(req.Items, domain.CreateBillItem{ProductID: ankletID, Quantity: 1, Discount: decPtr("100")})
	req.Discount = decPtr("72")
	req.PaidAmount = decPtr("20000")
	req.Metadata = map[string]any{"channel": "counter"}

	bill, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	// anklet: 1499.50 + 179.94 making + 50.38 gst - 100
	assertDec(t, "1629.82", bill.Items[1].Total, "anklet total")
	assertDec(t, "25.19", bill.Items[1].SGSTAmount, "anklet sgst")
	assertDec(t, "25.19", bill.Items[1].CGSTAmount, "anklet cgst")
	assertDec(t, "24629.82", bill.Total, "bill total")
	assertDec(t, "20000", bill.PaidAmount, "paid")
	assert.Equal(t, "counter", bill.Metadata["channel"])
}

func TestPreviewDoesNotPersist(t *testing.T) {
	f := newFixture(t)

	bill, err := f.svc.Preview(context.Background(), inrRequest("Meena"))
	require.NoError(t, err)
	assert.Empty(t, bill.BillNumber)
	assert.Zero(t, bill.ID)
	assertDec(t, "23072", bill.Total, "total")

	var bills, seqs int64
	require.NoError(t, f.db.Model(&domain.Bill{}).Count(&bills).Error)
	require.NoError(t, f.db.Model(&domain.BillSequence{}).Count(&seqs).Error)
	assert.Zero(t, bills)
	assert.Zero(t, seqs)
}

func TestGetByIDErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetByID(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidBillID)

	_, err = f.svc.GetByID(context.Background(), "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetByNumber(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"Meena", "Ravi", "Meenakshi"} {
		_, err := f.svc.Create(ctx, inrRequest(name))
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	first, err := f.svc.List(ctx, domain.ListBillRequest{Pagination: paginationOf("", 2)})
	require.NoError(t, err)
	require.Len(t, first.Bills, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "Meenakshi", first.Bills[0].CustomerName)

	second, err := f.svc.List(ctx, domain.ListBillRequest{Pagination: paginationOf(first.NextPageToken, 2)})
	require.NoError(t, err)
	require.Len(t, second.Bills, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "Meena", second.Bills[0].CustomerName)

	search, err := f.svc.List(ctx, domain.ListBillRequest{Search: "meen"})
	require.NoError(t, err)
	assert.Len(t, search.Bills, 2)

	from := f.clock.Now()
	to := from.Add(-time.Hour)
	_, err = f.svc.List(ctx, domain.ListBillRequest{CreatedFrom: &from, CreatedTo: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestRenderDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill, err := f.svc.Create(ctx, inrRequest("Meena Sundaram"))
	require.NoError(t, err)

	html, err := f.svc.RenderHTML(ctx, bill.ID.String())
	require.NoError(t, err)
	assert.Contains(t, html, "PJ/20250819-001")
	assert.Contains(t, html, "Rs. 23,072.00")
	assert.Contains(t, html, "Rupees Twenty Three Thousand Seventy Two Only")

	again, err := f.svc.RenderHTML(ctx, bill.ID.String())
	require.NoError(t, err)
	assert.Equal(t, html, again)

	doc, err := f.svc.RenderPDF(ctx, bill.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "meena-sundaram-pj-20250819-001.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, "%PDF", string(doc.Body[:4]))

	_, err = f.svc.RenderPDF(ctx, "999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentFilename(t *testing.T) {
	assert.Equal(t, "meena-sundaram-pj-20250819-005.pdf", documentFilename("Meena  Sundaram", "PJ/20250819-005"))
	assert.Equal(t, "pj-20250819-005.pdf", documentFilename("***", "PJ/20250819-005"))
	assert.Equal(t, "bill.pdf", documentFilename("", ""))
}

func errorAsItem(err error, target **domain.ItemError) bool {
	return errors.As(err, target)
}

func paginationOf(token string, size int) pagination.Pagination {
	return pagination.Pagination{PageToken: token, PageSize: size}
}
