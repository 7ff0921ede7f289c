package domain

import "fmt"

// DomainError represents a business rule violation.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeInvalidAmount     = "INVALID_AMOUNT"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeCurrencyMismatch  = "CURRENCY_MISMATCH"
	ErrCodeCardExpired       = "CARD_EXPIRED"
)

func NewInvalidTransitionError(from, to string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewInvalidAmountError(amount string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount: %s", amount),
	}
}

func NewInvalidQuantityError(qty int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidQuantity,
		Message: fmt.Sprintf("quantity must be at least 1, got %d", qty),
	}
}

func NewCurrencyMismatchError(a, b string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCurrencyMismatch,
		Message: fmt.Sprintf("currency mismatch: %s vs %s", a, b),
	}
}

func NewCardExpiredError(cardID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCardExpired,
		Message: fmt.Sprintf("card %s has expired", cardID),
	}
}

// IsErrorCode reports whether err is a DomainError carrying the given code.
func IsErrorCode(err error, code string) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == code
}
