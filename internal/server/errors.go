package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/jewelbill/internal/auth/domain"
	"github.com/smallbiznis/jewelbill/internal/authorization"
	billdomain "github.com/smallbiznis/jewelbill/internal/bill/domain"
	metalratedomain "github.com/smallbiznis/jewelbill/internal/metalrate/domain"
	productdomain "github.com/smallbiznis/jewelbill/internal/product/domain"
	"github.com/smallbiznis/jewelbill/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var integrityErr *billdomain.IntegrityError
	if errors.As(err, &integrityErr) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "integrity_error",
			Message: "bill totals failed verification",
			Errors: []ValidationError{
				{
					Field:   integrityErr.Field,
					Code:    integrityCode(integrityErr),
					Message: fmt.Sprintf("expected %s, got %s", integrityErr.Expected, integrityErr.Actual),
				},
			},
		}
	}
	if errors.Is(err, billdomain.ErrIntegrity) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "integrity_error",
			Message: "bill totals failed verification",
		}
	}

	if isValidationError(err) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  []ValidationError{validationDetail(err)},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrMissingToken),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrTokenExpired):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, billdomain.ErrDuplicateNumber):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, authdomain.ErrAuthNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the response type and a stable code for the
// request log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 && payload.Errors[0].Code != "" {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func integrityCode(e *billdomain.IntegrityError) string {
	if errors.Is(e, billdomain.ErrTotalsMismatch) {
		return "totals_mismatch"
	}
	return "integrity_error"
}

var validationErrs = []error{
	ErrInvalidRequest,
	billdomain.ErrInvalidCurrency,
	billdomain.ErrInvalidPaymentMethod,
	billdomain.ErrInvalidQuantity,
	billdomain.ErrMissingPrice,
	billdomain.ErrInvalidRate,
	billdomain.ErrInvalidDiscount,
	billdomain.ErrInvalidPaidAmount,
	billdomain.ErrInvalidCustomer,
	billdomain.ErrInvalidEmail,
	billdomain.ErrEmptyItems,
	billdomain.ErrInvalidAmount,
	billdomain.ErrProductNotFound,
	billdomain.ErrProductInactive,
	billdomain.ErrInvalidDateRange,
	billdomain.ErrInvalidBillID,
	productdomain.ErrInvalidID,
	metalratedomain.ErrInvalidMarket,
	pagination.ErrInvalidPageToken,
}

func isValidationError(err error) bool {
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// validationDetail names the offending field. Line errors are reported
// against items[i].
func validationDetail(err error) ValidationError {
	code := validationErrorCode(err)
	field := validationErrorField(code)

	var itemErr *billdomain.ItemError
	if errors.As(err, &itemErr) {
		field = fmt.Sprintf("items[%d]", itemErr.Index)
		if sub := validationErrorField(code); sub != "" {
			field += "." + sub
		}
	}
	return ValidationError{
		Field:   field,
		Code:    code,
		Message: validationErrorMessage(code),
	}
}

func validationErrorCode(err error) string {
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

var validationFields = map[string]string{
	"invalid_request":        "request",
	"invalid_customer":       "customer_name",
	"invalid_email":          "customer_email",
	"invalid_rate":           "tax_percent",
	"missing_price":          "product_id",
	"product_not_found":      "product_id",
	"product_inactive":       "product_id",
	"empty_items":            "items",
	"invalid_date_range":     "start_date",
	"invalid_bill_id":        "id",
	"invalid_product_id":     "id",
	"invalid_paid_amount":    "paid_amount",
	"invalid_payment_method": "payment_method",
}

func validationErrorField(code string) string {
	if field, ok := validationFields[code]; ok {
		return field
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

var validationMessages = map[string]string{
	"invalid_request":    "invalid request",
	"invalid_customer":   "customer name is required",
	"invalid_email":      "customer email is not a valid address",
	"invalid_currency":   "currency must be INR or BHD",
	"invalid_quantity":   "quantity must be at least 1",
	"missing_price":      "product has no price in the bill currency",
	"invalid_rate":       "percentages must lie between 0 and 100",
	"invalid_discount":   "discount must be non-negative and within the amount due",
	"product_not_found":  "product does not exist",
	"product_inactive":   "product is not available for sale",
	"empty_items":        "at least one item is required",
	"invalid_date_range": "start date must not be after end date",
	"invalid_page_token": "page token is malformed",
	"invalid_market":     "market must be INDIA or BAHRAIN",
}

func validationErrorMessage(code string) string {
	if msg, ok := validationMessages[code]; ok {
		return msg
	}
	return "invalid value"
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, billdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
