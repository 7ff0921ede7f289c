package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/interfaces/rest"
)

func (h *Handlers) GetBalance(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		currency = "USD"
	}

	balance, err := h.fx.GetBalance(r.Context(), currency)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, map[string]string{
		"balance":  balance.Amount.StringFixed(2),
		"currency": balance.Currency,
	})
}

type rateResponse struct {
	SourceCurrency string `json:"source_currency"`
	TargetCurrency string `json:"target_currency"`
	Rate           string `json:"rate"`
	Fee            string `json:"fee"`
}

// GetRate quotes a currency pair. Conversions executed while the quote is
// cached price against the same rate.
func (h *Handlers) GetRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source, target := q.Get("source_currency"), q.Get("target_currency")
	if source == "" || target == "" {
		rest.WriteError(w, application.NewValidationError("source_currency and target_currency are required"), h.logger)
		return
	}

	amount := decimal.New(1, 0)
	if raw := q.Get("amount"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			rest.WriteError(w, application.NewValidationError("Invalid amount"), h.logger)
			return
		}
		amount = parsed
	}

	rate, fee, err := h.fx.GetRate(r.Context(), source, target, amount)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rateResponse{
		SourceCurrency: source,
		TargetCurrency: target,
		Rate:           rate.String(),
		Fee:            fee.String(),
	})
}

type convertRequest struct {
	SourceCurrency string `json:"source_currency"`
	TargetCurrency string `json:"target_currency"`
	Amount         string `json:"amount"`
}

func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, application.NewValidationError(err.Error()), h.logger)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		rest.WriteError(w, application.NewValidationError("Invalid amount"), h.logger)
		return
	}

	result, err := h.fx.Convert(r.Context(), req.SourceCurrency, req.TargetCurrency, amount)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, result)
}

type batchConvertRequest struct {
	SourceCurrency string   `json:"source_currency"`
	TargetCurrency string   `json:"target_currency"`
	Amounts        []string `json:"amounts"`
}

func (h *Handlers) BatchConvert(w http.ResponseWriter, r *http.Request) {
	var req batchConvertRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, application.NewValidationError(err.Error()), h.logger)
		return
	}

	amounts := make([]decimal.Decimal, 0, len(req.Amounts))
	for _, raw := range req.Amounts {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			rest.WriteError(w, application.NewValidationError("Invalid amount: "+raw), h.logger)
			return
		}
		amounts = append(amounts, amount)
	}

	results, err := h.fx.BatchConvert(r.Context(), req.SourceCurrency, req.TargetCurrency, amounts)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, results)
}
