package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/jewelbill/internal/bill/calc"
	"github.com/smallbiznis/jewelbill/internal/bill/domain"
	"github.com/smallbiznis/jewelbill/internal/config"
	productdomain "github.com/smallbiznis/jewelbill/internal/product/domain"
	"gorm.io/datatypes"
)

// build validates req and prices every line. The result is a complete bill
// without id or number.
func (s *Service) build(ctx context.Context, req domain.CreateBillRequest, now time.Time) (*domain.Bill, error) {
	customer, err := validateCustomer(req)
	if err != nil {
		return nil, err
	}
	currency, err := domain.ParseCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, domain.ErrEmptyItems
	}

	rates := resolveRates(s.billing.Get(), currency, req)
	if err := rates.Validate(); err != nil {
		return nil, err
	}

	products, err := s.resolveProducts(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	items := make([]domain.BillItem, 0, len(req.Items))
	for i, line := range req.Items {
		discount := decimal.Zero
		if line.Discount != nil {
			discount = *line.Discount
		}
		item, err := calc.CalculateItem(products[i], line.Quantity, discount, currency, rates)
		if err != nil {
			return nil, &domain.ItemError{Index: i, Err: err}
		}
		items = append(items, item)
	}

	discount := decimal.Zero
	if req.Discount != nil {
		discount = *req.Discount
	}
	totals, err := calc.Aggregate(currency, items, discount)
	if err != nil {
		return nil, err
	}
	paid, err := calc.ResolvePaidAmount(currency, totals.Total, req.PaidAmount)
	if err != nil {
		return nil, err
	}
	if err := compareExpected(currency, totals, req.Expected); err != nil {
		return nil, err
	}

	bill := &domain.Bill{
		CustomerName:        customer.name,
		CustomerEmail:       customer.email,
		CustomerPhone:       customer.phone,
		CustomerAddress:     customer.address,
		Currency:            currency,
		MakingChargePercent: rates.MakingPercent,
		TaxPercent:          rates.TaxPercent,
		PaidAmount:          paid,
		PaymentMethod:       method,
		Items:               items,
		CreatedAt:           now,
	}
	if len(req.Metadata) > 0 {
		bill.Metadata = datatypes.JSONMap(req.Metadata)
	}
	totals.Apply(bill)
	return bill, nil
}

var validate = validator.New()

type customerFields struct {
	name    string
	email   string
	phone   string
	address string
}

func validateCustomer(req domain.CreateBillRequest) (customerFields, error) {
	c := customerFields{
		name:    strings.TrimSpace(req.CustomerName),
		email:   strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		phone:   strings.TrimSpace(req.CustomerPhone),
		address: strings.TrimSpace(req.CustomerAddress),
	}
	if c.name == "" {
		return c, domain.ErrInvalidCustomer
	}
	if c.email != "" {
		if err := validate.Var(c.email, "email"); err != nil {
			return c, domain.ErrInvalidEmail
		}
	}
	return c, nil
}

// resolveRates takes request overrides, falling back to the shop defaults for
// the currency's tax regime.
func resolveRates(cfg config.BillingConfig, currency domain.Currency, req domain.CreateBillRequest) calc.Rates {
	rates := calc.Rates{MakingPercent: cfg.MakingPercent(), TaxPercent: cfg.GSTRate()}
	if currency.TaxKind() == domain.TaxKindVAT {
		rates.TaxPercent = cfg.VATRate()
	}
	if req.MakingChargePercent != nil {
		rates.MakingPercent = *req.MakingChargePercent
	}
	if req.TaxPercent != nil {
		rates.TaxPercent = *req.TaxPercent
	}
	return rates
}

// resolveProducts returns one snapshot per request line, in line order.
func (s *Service) resolveProducts(ctx context.Context, lines []domain.CreateBillItem) ([]domain.ProductSnapshot, error) {
	ids := make([]snowflake.ID, len(lines))
	for i, line := range lines {
		id, err := snowflake.ParseString(strings.TrimSpace(line.ProductID))
		if err != nil || id == 0 {
			return nil, &domain.ItemError{Index: i, Err: domain.ErrProductNotFound}
		}
		ids[i] = id
	}

	found, err := s.products.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	snapshots := make([]domain.ProductSnapshot, len(lines))
	for i, id := range ids {
		p, ok := found[id]
		if !ok {
			return nil, &domain.ItemError{Index: i, Err: domain.ErrProductNotFound}
		}
		if !p.IsActive {
			return nil, &domain.ItemError{Index: i, Err: domain.ErrProductInactive}
		}
		snapshots[i] = snapshotOf(p)
	}
	return snapshots, nil
}

func snapshotOf(p productdomain.Product) domain.ProductSnapshot {
	return domain.ProductSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		Purity:      p.Purity,
		PriceINR:    p.PriceINR,
		PriceBHD:    p.PriceBHD,
		GrossWeight: p.GrossWeight,
		NetWeight:   p.NetWeight,
	}
}

// compareExpected requires client-displayed totals to equal the server
// computation exactly.
func compareExpected(currency domain.Currency, totals calc.Totals, expected *domain.ExpectedTotals) error {
	if expected == nil {
		return nil
	}
	checks := []struct {
		field  string
		client *decimal.Decimal
		server decimal.Decimal
	}{
		{"subtotal", expected.Subtotal, totals.Subtotal},
		{"making_charges", expected.MakingCharges, totals.MakingCharges},
		{"tax", expected.Tax, totals.Tax.Total()},
		{"total", expected.Total, totals.Total},
	}
	for _, c := range checks {
		if c.client == nil || c.client.Equal(c.server) {
			continue
		}
		return &domain.IntegrityError{
			Field:    "expected." + c.field,
			Expected: currency.String(c.server),
			Actual:   c.client.String(),
			Kind:     domain.ErrTotalsMismatch,
		}
	}
	return nil
}
