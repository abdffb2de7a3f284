package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/jewelbill/internal/auth/domain"
	"github.com/smallbiznis/jewelbill/internal/auth/password"
	authservice "github.com/smallbiznis/jewelbill/internal/auth/service"
	"github.com/smallbiznis/jewelbill/internal/authorization"
	billdomain "github.com/smallbiznis/jewelbill/internal/bill/domain"
	"github.com/smallbiznis/jewelbill/internal/clock"
	"github.com/smallbiznis/jewelbill/internal/config"
	metalratedomain "github.com/smallbiznis/jewelbill/internal/metalrate/domain"
	"github.com/smallbiznis/jewelbill/internal/observability"
	productdomain "github.com/smallbiznis/jewelbill/internal/product/domain"
	"github.com/smallbiznis/jewelbill/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeBillService struct {
	createErr  error
	lastNumber string
	lastList   billdomain.ListBillRequest
}

func sampleBill() *billdomain.Bill {
	return &billdomain.Bill{
		ID:           snowflake.ID(42),
		BillNumber:   "PJ/20250819-005",
		BillDate:     "20250819",
		CustomerName: "Meena Sundaram",
		Currency:     billdomain.CurrencyINR,
		Subtotal:     decimal.NewFromInt(20000),
		Total:        decimal.NewFromInt(23072),
	}
}

func (f *fakeBillService) Create(_ context.Context, _ billdomain.CreateBillRequest) (*billdomain.Bill, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return sampleBill(), nil
}

func (f *fakeBillService) Preview(_ context.Context, _ billdomain.CreateBillRequest) (*billdomain.Bill, error) {
	bill := sampleBill()
	bill.ID = 0
	bill.BillNumber = ""
	return bill, nil
}

func (f *fakeBillService) GetByID(_ context.Context, id string) (*billdomain.Bill, error) {
	if id != "42" {
		return nil, billdomain.ErrNotFound
	}
	return sampleBill(), nil
}

func (f *fakeBillService) GetByNumber(_ context.Context, number string) (*billdomain.Bill, error) {
	f.lastNumber = number
	if number != "PJ/20250819-005" {
		return nil, billdomain.ErrNotFound
	}
	return sampleBill(), nil
}

func (f *fakeBillService) List(_ context.Context, req billdomain.ListBillRequest) (billdomain.ListBillResponse, error) {
	f.lastList = req
	resp := billdomain.ListBillResponse{Bills: []billdomain.Bill{*sampleBill()}}
	resp.HasMore = true
	resp.NextPageToken = "next"
	return resp, nil
}

func (f *fakeBillService) RenderHTML(_ context.Context, id string) (string, error) {
	if id != "42" {
		return "", billdomain.ErrNotFound
	}
	return "<html><body>PJ/20250819-005</body></html>", nil
}

func (f *fakeBillService) RenderPDF(_ context.Context, id string) (billdomain.Document, error) {
	if id != "42" {
		return billdomain.Document{}, billdomain.ErrNotFound
	}
	return billdomain.Document{
		Filename:    "meena-sundaram-pj-20250819-005.pdf",
		ContentType: "application/pdf",
		Body:        []byte("%PDF-1.7 test"),
	}, nil
}

type fakeProductService struct{}

func (fakeProductService) List(_ context.Context, req productdomain.ListRequest) ([]productdomain.Product, error) {
	items := []productdomain.Product{{ID: 1, Name: "Temple Necklace", IsActive: true}}
	if !req.ActiveOnly {
		items = append(items, productdomain.Product{ID: 2, Name: "Retired Bangle"})
	}
	return items, nil
}

func (fakeProductService) Get(_ context.Context, id string) (*productdomain.Product, error) {
	if id == "1" {
		return &productdomain.Product{ID: 1, Name: "Temple Necklace", IsActive: true}, nil
	}
	if id == "bad" {
		return nil, productdomain.ErrInvalidID
	}
	return nil, productdomain.ErrNotFound
}

func (fakeProductService) Lookup(_ context.Context, _ []snowflake.ID) (map[snowflake.ID]productdomain.Product, error) {
	return nil, nil
}

type fakeMetalRateService struct {
	refreshed int
}

func (f *fakeMetalRateService) Refresh(_ context.Context) (metalratedomain.RefreshResult, error) {
	f.refreshed++
	return metalratedomain.RefreshResult{Source: metalratedomain.SourceFallback, Updated: 8}, nil
}

func (f *fakeMetalRateService) List(_ context.Context, market string) (metalratedomain.Snapshot, error) {
	m, err := metalratedomain.ParseMarket(market)
	if err != nil {
		return metalratedomain.Snapshot{}, err
	}
	return metalratedomain.Snapshot{Rates: []metalratedomain.MetalRate{{Market: m}}}, nil
}

// tokenAuth maps fixed tokens to principals.
type tokenAuth struct{}

func (tokenAuth) Login(context.Context, authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	return nil, authdomain.ErrInvalidCredentials
}

func (tokenAuth) Authenticate(_ context.Context, raw string) (*authdomain.Principal, error) {
	switch raw {
	case "admin-token":
		return &authdomain.Principal{Subject: "admin:a@b.c", Role: authdomain.RoleAdmin}, nil
	case "staff-token":
		return &authdomain.Principal{Subject: "staff:s@b.c", Role: authdomain.RoleStaff}, nil
	default:
		return nil, authdomain.ErrInvalidToken
	}
}

type harness struct {
	engine *gin.Engine
	bills  *fakeBillService
	rates  *fakeMetalRateService
}

type harnessOption func(*ServerParams)

func newHarness(t *testing.T, opts ...harnessOption) harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	bills := &fakeBillService{}
	rates := &fakeMetalRateService{}
	engine := NewEngine(observability.Config{}, nil, nil)
	params := ServerParams{
		Gin:          engine,
		Cfg:          config.Config{ShopTimezone: "Asia/Kolkata"},
		Log:          zap.NewNop(),
		Authsvc:      tokenAuth{},
		AuthzSvc:     authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		BillSvc:      bills,
		ProductSvc:   fakeProductService{},
		MetalRateSvc: rates,
	}
	for _, opt := range opts {
		opt(&params)
	}
	NewServer(params)
	return harness{engine: engine, bills: bills, rates: rates}
}

func (h harness) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:51000"
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

var createBody = map[string]any{
	"customer_name": "Meena Sundaram",
	"currency":      "INR",
	"items":         []map[string]any{{"product_id": "1", "quantity": 2}},
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateBill(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/bills", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			ID         string `json:"id"`
			BillNumber string `json:"bill_number"`
			Subtotal   string `json:"subtotal"`
			Total      string `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp.Data.ID)
	assert.Equal(t, "PJ/20250819-005", resp.Data.BillNumber)
	assert.Equal(t, "20000.00", resp.Data.Subtotal)
	assert.Equal(t, "23072.00", resp.Data.Total)
}

func TestCreateBillRejectsMalformedJSON(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/bills", `{"customer_name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	assert.Equal(t, "invalid_request", payload.Errors[0].Code)
}

func TestCreateBillMapsLineErrors(t *testing.T) {
	h := newHarness(t)
	h.bills.createErr = &billdomain.ItemError{Index: 1, Err: billdomain.ErrInvalidQuantity}

	rec := h.do(http.MethodPost, "/api/bills", createBody)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "items[1].quantity", payload.Errors[0].Field)
	assert.Equal(t, "invalid_quantity", payload.Errors[0].Code)

	h.bills.createErr = &billdomain.ItemError{Index: 0, Err: billdomain.ErrProductInactive}
	payload = decodeError(t, h.do(http.MethodPost, "/api/bills", createBody))
	assert.Equal(t, "items[0].product_id", payload.Errors[0].Field)
	assert.Equal(t, "product_inactive", payload.Errors[0].Code)

	h.bills.createErr = billdomain.ErrInvalidEmail
	payload = decodeError(t, h.do(http.MethodPost, "/api/bills", createBody))
	assert.Equal(t, "customer_email", payload.Errors[0].Field)
}

func TestCreateBillMapsIntegrityErrors(t *testing.T) {
	h := newHarness(t)
	h.bills.createErr = &billdomain.IntegrityError{
		Field:    "expected.total",
		Expected: "23072.00",
		Actual:   "23072.01",
		Kind:     billdomain.ErrTotalsMismatch,
	}

	rec := h.do(http.MethodPost, "/api/bills", createBody)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "integrity_error", payload.Type)
	assert.Equal(t, "expected.total", payload.Errors[0].Field)
	assert.Equal(t, "totals_mismatch", payload.Errors[0].Code)
	assert.Equal(t, "expected 23072.00, got 23072.01", payload.Errors[0].Message)

	h.bills.createErr = fmt.Errorf("insert: %w", billdomain.ErrIntegrity)
	rec = h.do(http.MethodPost, "/api/bills", createBody)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateBillRateLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(config.Config{RateLimit: config.RateLimitConfig{
		BillCreatePerMinute: 1,
		BillCreateBurst:     1,
	}}, ratelimit.NewMemoryBucket())
	h := newHarness(t, func(p *ServerParams) { p.Limiter = limiter })

	first := h.do(http.MethodPost, "/api/bills", createBody)
	require.Equal(t, http.StatusCreated, first.Code)

	second := h.do(http.MethodPost, "/api/bills", createBody)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeError(t, second).Type)

	// preview has no budget
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/bills/preview", createBody).Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/bills", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/bills", nil, "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/bills/42", nil, "Authorization", "Basic admin-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/bills/42", nil, "Authorization", "bearer admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaffCannotRefreshMetalRates(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/metal-rates/update", nil, "Authorization", "Bearer staff-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, h.rates.refreshed)

	rec = h.do(http.MethodGet, "/api/bills/42", nil, "Authorization", "Bearer staff-token")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/api/metal-rates/update", nil, "Authorization", "Bearer admin-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.rates.refreshed)
	assert.Contains(t, rec.Body.String(), `"updated":8`)
}

func TestListBillsParsesQuery(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/bills?search=meena&start_date=2025-08-19&end_date=2025-08-19&page_size=5&page_token=abc", nil,
		"Authorization", "Bearer admin-token")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := h.bills.lastList
	assert.Equal(t, "meena", got.Search)
	assert.Equal(t, 5, got.PageSize)
	assert.Equal(t, "abc", got.PageToken)
	require.NotNil(t, got.CreatedFrom)
	require.NotNil(t, got.CreatedTo)
	// IST day boundaries
	assert.Equal(t, time.Date(2025, 8, 18, 18, 30, 0, 0, time.UTC), got.CreatedFrom.UTC())
	assert.Equal(t, time.Date(2025, 8, 19, 18, 29, 59, 999999999, time.UTC), got.CreatedTo.UTC())
	assert.Contains(t, rec.Body.String(), `"next_page_token":"next"`)

	rec = h.do(http.MethodGet, "/api/bills?start_date=19-08-2025", nil, "Authorization", "Bearer admin-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "start_date", decodeError(t, rec).Errors[0].Field)

	rec = h.do(http.MethodGet, "/api/bills?page_size=-1", nil, "Authorization", "Bearer admin-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBillByNumberAcceptsSlash(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/bills/number/PJ/20250819-005", nil, "Authorization", "Bearer admin-token")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PJ/20250819-005", h.bills.lastNumber)

	rec = h.do(http.MethodGet, "/api/bills/number/PJ/20250819-999", nil, "Authorization", "Bearer admin-token")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBillDocuments(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/bills/42/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="meena-sundaram-pj-20250819-005.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = h.do(http.MethodGet, "/api/bills/7/pdf", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/api/bills/42/html", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/bills/42/html", nil, "Authorization", "Bearer staff-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "PJ/20250819-005")
}

func TestProductsAndRates(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Retired Bangle")

	rec = h.do(http.MethodGet, "/api/products?active=false", nil)
	assert.Contains(t, rec.Body.String(), "Retired Bangle")

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/products?active=maybe", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/products/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/products/9", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/products/bad", nil).Code)

	rec = h.do(http.MethodGet, "/api/metal-rates?market=bahrain", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"market":"BAHRAIN"`)

	rec = h.do(http.MethodGet, "/api/metal-rates?market=mars", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "market", decodeError(t, rec).Errors[0].Field)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/invoices", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestLoginIssuesUsableToken(t *testing.T) {
	hash, err := password.Hash("s3cret-pass")
	require.NoError(t, err)
	auth, err := authservice.New(authservice.Params{
		Log:   zap.NewNop(),
		Clock: clock.SystemClock{},
		Config: config.Config{
			AppName:           "jewelbill",
			AuthJWTSecret:     "test-secret",
			AdminEmail:        "admin@palaniappajewellers.com",
			AdminPasswordHash: hash,
		},
	})
	require.NoError(t, err)
	h := newHarness(t, func(p *ServerParams) { p.Authsvc = auth })

	rec := h.do(http.MethodPost, "/auth/login", map[string]string{"email": "admin@palaniappajewellers.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/auth/login", map[string]string{"email": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/auth/login", map[string]string{"email": "admin@palaniappajewellers.com", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "Bearer", login.TokenType)

	rec = h.do(http.MethodGet, "/auth/me", nil, "Authorization", "Bearer "+login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)

	rec = h.do(http.MethodPost, "/api/metal-rates/update", nil, "Authorization", "Bearer "+login.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
}
