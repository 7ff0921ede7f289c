package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/domain"
	"github.com/ALI7-sys/CopIt/internal/interfaces/rest"
)

type createCardRequest struct {
	Store       string `json:"store"`
	Limit       string `json:"limit"`
	Description string `json:"description"`
}

type cardResponse struct {
	ID        string    `json:"id"`
	Last4     string    `json:"last4"`
	Expiry    time.Time `json:"expiry"`
	Limit     string    `json:"limit"`
	Currency  string    `json:"currency"`
	Merchant  string    `json:"merchant"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

func toCardResponse(card *domain.VirtualCard) cardResponse {
	return cardResponse{
		ID:        card.ID,
		Last4:     card.Last4,
		Expiry:    card.Expiry,
		Limit:     card.Limit.Amount.StringFixed(2),
		Currency:  card.Limit.Currency,
		Merchant:  card.Merchant,
		State:     string(card.EffectiveState(time.Now())),
		CreatedAt: card.CreatedAt,
	}
}

func (h *Handlers) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, application.NewValidationError(err.Error()), h.logger)
		return
	}

	limit, err := decimal.NewFromString(req.Limit)
	if err != nil {
		rest.WriteError(w, application.NewValidationError("Invalid card limit"), h.logger)
		return
	}

	card, err := h.cards.CreateCard(r.Context(), req.Store, limit, req.Description)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, toCardResponse(card))
}

func (h *Handlers) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.GetCard(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, toCardResponse(card))
}

func (h *Handlers) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.ListActiveCards(r.Context())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	out := make([]cardResponse, 0, len(cards))
	for i := range cards {
		out = append(out, toCardResponse(&cards[i]))
	}

	rest.WriteJSON(w, http.StatusOK, out)
}

func (h *Handlers) CancelCard(w http.ResponseWriter, r *http.Request) {
	if err := h.cards.CancelCard(r.Context(), chi.URLParam(r, "cardID")); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, map[string]string{"state": "cancelled"})
}

type cardTransactionResponse struct {
	ID          string    `json:"id"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Merchant    string    `json:"merchant"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetCardTransactions lists a card's transactions, optionally bounded by
// RFC 3339 start and end query parameters.
func (h *Handlers) GetCardTransactions(w http.ResponseWriter, r *http.Request) {
	start, err := parseTimeParam(r, "start")
	if err != nil {
		rest.WriteError(w, application.NewValidationError("Invalid start time"), h.logger)
		return
	}
	end, err := parseTimeParam(r, "end")
	if err != nil {
		rest.WriteError(w, application.NewValidationError("Invalid end time"), h.logger)
		return
	}

	txs, err := h.cards.GetTransactions(r.Context(), chi.URLParam(r, "cardID"), start, end)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	out := make([]cardTransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, cardTransactionResponse{
			ID:          tx.ID,
			Amount:      tx.Amount.Amount.StringFixed(2),
			Currency:    tx.Amount.Currency,
			Status:      tx.Status,
			Merchant:    tx.Merchant,
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt,
		})
	}

	rest.WriteJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetCardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cards.GetUsageStats(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, stats)
}

func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
