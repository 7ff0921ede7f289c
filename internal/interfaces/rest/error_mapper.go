package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/domain"
)

// ErrorResponse is the envelope for failed API responses. ErrorType carries
// the machine-readable tag clients branch on.
type ErrorResponse struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// WriteError maps service and domain errors to HTTP responses. Unknown
// errors become an opaque 500; their detail goes to the log, never the
// client.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var resp ErrorResponse
	var statusCode int

	if svcErr, ok := application.IsServiceError(err); ok {
		statusCode = svcErr.HTTPStatus
		resp = ErrorResponse{
			Status:    "failed",
			Error:     svcErr.Message,
			ErrorType: svcErr.Code,
		}
		if svcErr.HTTPStatus >= 500 && svcErr.Err != nil {
			logger.Error("request failed", "error_type", svcErr.Code, "error", svcErr.Err)
		}
	} else if domErr, ok := err.(*domain.DomainError); ok {
		statusCode = http.StatusBadRequest
		resp = ErrorResponse{
			Status:    "failed",
			Error:     domErr.Message,
			ErrorType: application.ErrCodeValidation,
		}
	} else {
		statusCode = http.StatusInternalServerError
		resp = ErrorResponse{
			Status:    "failed",
			Error:     "Internal server error",
			ErrorType: application.ErrCodeServer,
		}
		logger.Error("unhandled error", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
