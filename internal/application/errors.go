// Package application holds the orchestration layer: service errors, ports
// to external providers, and the data shapes exchanged with them.
package application

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError is the orchestration-level error taxonomy. Code doubles as
// the error_type tag in API responses.
type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation          = "validation_error"
	ErrCodeAuth                = "auth_error"
	ErrCodeCardNotFound        = "card_not_found"
	ErrCodeOrderNotFound       = "order_not_found"
	ErrCodePaymentNotFound     = "payment_not_found"
	ErrCodeRateLimit           = "rate_limit_exceeded"
	ErrCodeInsufficientBalance = "insufficient_balance"
	ErrCodeInvalidRate         = "invalid_rate"
	ErrCodeBatchConversion     = "batch_conversion_error"
	ErrCodeGateway             = "gateway_error"
	ErrCodePayment             = "payment_error"
	ErrCodeAPIVersion          = "api_version_error"
	ErrCodeCard                = "card_error"
	ErrCodeWebhookSignature    = "invalid_signature"
	ErrCodeWebhookPayload      = "invalid_payload"
	ErrCodeServer              = "server_error"
)

func NewValidationError(msg string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewAuthError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeAuth,
		Message:    "Authentication required",
		HTTPStatus: http.StatusUnauthorized,
	}
}

func NewCardNotFoundError(cardID string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeCardNotFound,
		Message:    fmt.Sprintf("Card not found: %s", cardID),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewOrderNotFoundError(orderID string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeOrderNotFound,
		Message:    fmt.Sprintf("Order not found: %s", orderID),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewPaymentNotFoundError(paymentID string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodePaymentNotFound,
		Message:    fmt.Sprintf("Payment not found: %s", paymentID),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewRateLimitError(limit int, period string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeRateLimit,
		Message:    fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %s.", limit, period),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

func NewInsufficientBalanceError(required, available string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInsufficientBalance,
		Message:    fmt.Sprintf("Insufficient balance. Required: %s, Available: %s", required, available),
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewInvalidRateError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidRate,
		Message:    "Invalid exchange rate received",
		HTTPStatus: http.StatusBadGateway,
	}
}

func NewBatchConversionError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeBatchConversion,
		Message:    "Failed to process batch conversion",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewGatewayError wraps an upstream provider failure after retries are
// exhausted.
func NewGatewayError(provider string, err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeGateway,
		Message:    fmt.Sprintf("%s request failed", provider),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewPaymentError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodePayment,
		Message:    "Payment processing failed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewAPIVersionError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeAPIVersion,
		Message:    "Payment service API version error",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewCardError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeCard,
		Message:    "Card operation failed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewSignatureError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeWebhookSignature,
		Message:    "Invalid signature",
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewPayloadError(msg string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeWebhookPayload,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewUnexpectedError never leaks internal detail to the client; err is kept
// for logging only.
func NewUnexpectedError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeServer,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// HasCode reports whether err is a ServiceError with the given code.
func HasCode(err error, code string) bool {
	svcErr, ok := IsServiceError(err)
	return ok && svcErr.Code == code
}
