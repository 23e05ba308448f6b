package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/meditrade/pricing/internal/catalog/domain"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	pricingdomain "github.com/meditrade/pricing/internal/pricing/domain"
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
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
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
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, discountdomain.ErrDuplicateCode),
		errors.Is(err, pricingdomain.ErrCommitRepriceExceeded):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, discountdomain.ErrInvalidID),
		errors.Is(err, discountdomain.ErrInvalidName),
		errors.Is(err, discountdomain.ErrInvalidType),
		errors.Is(err, discountdomain.ErrInvalidValue),
		errors.Is(err, discountdomain.ErrPercentageOutOfRange),
		errors.Is(err, discountdomain.ErrInvalidDateRange),
		errors.Is(err, discountdomain.ErrConflictingScope),
		errors.Is(err, discountdomain.ErrInvalidPriority),
		errors.Is(err, discountdomain.ErrInvalidMinimumOrder),
		errors.Is(err, discountdomain.ErrInvalidMaximumDiscount),
		errors.Is(err, discountdomain.ErrInvalidUsageLimit),
		errors.Is(err, discountdomain.ErrInvalidScopeID),
		errors.Is(err, pricingdomain.ErrInvalidDealer),
		errors.Is(err, pricingdomain.ErrNoLineItems),
		errors.Is(err, pricingdomain.ErrInvalidQuantity),
		errors.Is(err, pricingdomain.ErrInvalidUnitPrice),
		errors.Is(err, pricingdomain.ErrInvalidOrderID),
		errors.Is(err, catalogdomain.ErrDealerInactive),
		errors.Is(err, catalogdomain.ErrVariantInactive),
		errors.Is(err, catalogdomain.ErrInvalidReference):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, discountdomain.ErrNotFound),
		errors.Is(err, pricingdomain.ErrDiscountCodeNotFound),
		errors.Is(err, catalogdomain.ErrDealerNotFound),
		errors.Is(err, catalogdomain.ErrVariantNotFound),
		errors.Is(err, catalogdomain.ErrPriceNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

// classifyErrorForLog keeps request logs free of raw error text while still
// naming the failure class.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal_error", payload.Type
	case status == http.StatusNotFound:
		return "not_found", payload.Type
	case status == http.StatusBadRequest:
		return "validation_error", payload.Type
	default:
		return payload.Type, payload.Type
	}
}
