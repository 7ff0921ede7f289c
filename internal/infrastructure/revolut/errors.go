package revolut

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrCardNotFound is returned when the provider does not know the card id.
	ErrCardNotFound = errors.New("card not found")
	// ErrInvalidAPIVersion is returned when the Revolut-Api-Version header is
	// rejected. It signals a deployment problem, not a caller problem.
	ErrInvalidAPIVersion = errors.New("invalid api version")
)

// ProviderError is an error response from the Revolut API.
type ProviderError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("revolut error [%d/%s]: %s", e.StatusCode, e.Code, e.Message)
}

type providerErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify folds known provider responses into typed sentinels so callers
// can branch without parsing message strings themselves.
func classify(statusCode int, errResp providerErrorResponse) error {
	provErr := &ProviderError{
		Code:       errResp.Code,
		Message:    errResp.Message,
		StatusCode: statusCode,
	}

	switch {
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrCardNotFound, errResp.Message)
	case statusCode == http.StatusBadRequest && strings.Contains(errResp.Message, "Invalid API version"):
		return fmt.Errorf("%w: %s", ErrInvalidAPIVersion, errResp.Message)
	default:
		return provErr
	}
}

func IsProviderError(err error) (*ProviderError, bool) {
	var provErr *ProviderError
	ok := errors.As(err, &provErr)
	return provErr, ok
}
