package payoneer

import (
	"errors"
	"fmt"
)

// ProviderError is an error response from the Payoneer API.
type ProviderError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payoneer error [%d/%s]: %s", e.StatusCode, e.Code, e.Message)
}

type providerErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

func IsProviderError(err error) (*ProviderError, bool) {
	var provErr *ProviderError
	ok := errors.As(err, &provErr)
	return provErr, ok
}
