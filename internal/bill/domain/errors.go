package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidPaymentMethod = errors.New("invalid_payment_method")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrMissingPrice         = errors.New("missing_price")
	ErrInvalidRate          = errors.New("invalid_rate")
	ErrInvalidDiscount      = errors.New("invalid_discount")
	ErrInvalidPaidAmount    = errors.New("invalid_paid_amount")
	ErrInvalidCustomer      = errors.New("invalid_customer")
	ErrInvalidEmail         = errors.New("invalid_email")
	ErrEmptyItems           = errors.New("empty_items")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrProductNotFound      = errors.New("product_not_found")
	ErrProductInactive      = errors.New("product_inactive")
	ErrInvalidDateRange     = errors.New("invalid_date_range")

	ErrNotFound        = errors.New("bill_not_found")
	ErrDuplicateNumber = errors.New("duplicate_bill_number")
	ErrInvalidBillID   = errors.New("invalid_bill_id")
	ErrMalformedBill   = errors.New("malformed_bill")

	// ErrIntegrity marks a bill whose totals do not reconcile with its lines.
	ErrIntegrity = errors.New("integrity_error")
	// ErrTotalsMismatch marks client-expected totals that differ from the
	// server computation.
	ErrTotalsMismatch = fmt.Errorf("totals_mismatch: %w", ErrIntegrity)
)

// IntegrityError names the field that failed reconciliation.
type IntegrityError struct {
	Field    string
	Expected string
	Actual   string
	Kind     error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s expected %s, got %s", e.Kind, e.Field, e.Expected, e.Actual)
}

func (e *IntegrityError) Unwrap() error {
	if e.Kind == nil {
		return ErrIntegrity
	}
	return e.Kind
}

// ItemError ties a validation failure to a line position.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("items[%d]: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
