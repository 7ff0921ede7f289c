package handlers

import (
	"net/http"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/application/services"
	"github.com/ALI7-sys/CopIt/internal/domain"
	"github.com/ALI7-sys/CopIt/internal/interfaces/rest"
)

type summaryRequest struct {
	Items           []services.CheckoutItem `json:"items"`
	ShippingAddress *domain.Address         `json:"shipping_address,omitempty"`
}

// OrderSummary prices a cart without committing anything.
func (h *Handlers) OrderSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, application.NewValidationError(err.Error()), h.logger)
		return
	}

	totals, err := h.checkout.OrderSummary(req.Items, req.ShippingAddress)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, totals)
}

// ProcessCheckout charges the card and persists the order. A declined
// payment returns the failure envelope with the attempted totals attached.
func (h *Handlers) ProcessCheckout(w http.ResponseWriter, r *http.Request) {
	var req services.CheckoutRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, application.NewValidationError(err.Error()), h.logger)
		return
	}

	result, err := h.checkout.ProcessCheckout(r.Context(), req)
	if err != nil {
		if result != nil {
			h.writePaymentFailure(w, result, err)
			return
		}
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, result)
}

type paymentFailureResponse struct {
	Status    string                   `json:"status"`
	Error     string                   `json:"error"`
	ErrorType string                   `json:"error_type"`
	Data      *services.CheckoutResult `json:"data"`
}

func (h *Handlers) writePaymentFailure(w http.ResponseWriter, result *services.CheckoutResult, err error) {
	svcErr, ok := application.IsServiceError(err)
	if !ok {
		svcErr = application.NewPaymentError(err)
	}

	rest.WriteJSONRaw(w, svcErr.HTTPStatus, paymentFailureResponse{
		Status:    "failed",
		Error:     svcErr.Message,
		ErrorType: svcErr.Code,
		Data:      result,
	})
}
