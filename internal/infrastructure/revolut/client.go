// Package revolut implements the virtual card provider client.
package revolut

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/config"
	"github.com/ALI7-sys/CopIt/internal/domain"
)

type Client struct {
	baseURL    string
	apiKey     string
	apiVersion string
	httpClient *http.Client
}

func NewClient(cfg config.RevolutConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

type cardResponse struct {
	ID         string          `json:"id"`
	Last4      string          `json:"last_digits"`
	ExpiryTime time.Time       `json:"expiry_time"`
	SpendLimit decimal.Decimal `json:"spend_limit"`
	Currency   string          `json:"currency"`
	MerchantID string          `json:"merchant_id"`
	State      string          `json:"state"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (r cardResponse) toDomain() *domain.VirtualCard {
	return &domain.VirtualCard{
		ID:        r.ID,
		Last4:     r.Last4,
		Expiry:    r.ExpiryTime,
		Limit:     domain.NewMoney(r.SpendLimit, r.Currency),
		Merchant:  r.MerchantID,
		State:     domain.CardState(r.State),
		CreatedAt: r.CreatedAt,
	}
}

type createCardRequest struct {
	Type           string    `json:"type"`
	SpendLimit     string    `json:"spend_limit"`
	Currency       string    `json:"currency"`
	ExpiryTime     time.Time `json:"expiry_time"`
	MerchantID     string    `json:"merchant_id"`
	MerchantLocked bool      `json:"merchant_locked"`
	Label          string    `json:"label"`
}

func (c *Client) CreateCard(ctx context.Context, req application.CreateCardRequest) (*domain.VirtualCard, error) {
	body := createCardRequest{
		Type:           "VIRTUAL",
		SpendLimit:     req.Limit.Amount.StringFixed(2),
		Currency:       req.Limit.Currency,
		ExpiryTime:     req.Expiry,
		MerchantID:     req.MerchantID,
		MerchantLocked: true,
		Label:          req.Description,
	}

	u := fmt.Sprintf("%s/api/cards", c.baseURL)
	resp, err := sendRequest[createCardRequest, cardResponse](c, ctx, http.MethodPost, u, &body)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (c *Client) GetCard(ctx context.Context, cardID string) (*domain.VirtualCard, error) {
	u := fmt.Sprintf("%s/api/cards/%s", c.baseURL, url.PathEscape(cardID))
	resp, err := sendRequest[any, cardResponse](c, ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

type listCardsResponse struct {
	Cards []cardResponse `json:"cards"`
}

func (c *Client) ListCards(ctx context.Context, state domain.CardState) ([]domain.VirtualCard, error) {
	u := fmt.Sprintf("%s/api/cards", c.baseURL)
	if state != "" {
		u += "?state=" + url.QueryEscape(string(state))
	}

	resp, err := sendRequest[any, listCardsResponse](c, ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	cards := make([]domain.VirtualCard, 0, len(resp.Cards))
	for _, card := range resp.Cards {
		cards = append(cards, *card.toDomain())
	}
	return cards, nil
}

type cancelCardResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

func (c *Client) CancelCard(ctx context.Context, cardID string) error {
	u := fmt.Sprintf("%s/api/cards/%s/cancel", c.baseURL, url.PathEscape(cardID))
	_, err := sendRequest[any, cancelCardResponse](c, ctx, http.MethodPost, u, nil)
	return err
}

type transactionResponse struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Merchant    string          `json:"merchant"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

type listTransactionsResponse struct {
	Transactions []transactionResponse `json:"transactions"`
}

func (c *Client) Transactions(ctx context.Context, cardID string, start, end *time.Time) ([]domain.CardTransaction, error) {
	q := url.Values{}
	if start != nil {
		q.Set("start", start.Format(time.RFC3339))
	}
	if end != nil {
		q.Set("end", end.Format(time.RFC3339))
	}

	u := fmt.Sprintf("%s/api/cards/%s/transactions", c.baseURL, url.PathEscape(cardID))
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	resp, err := sendRequest[any, listTransactionsResponse](c, ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	txs := make([]domain.CardTransaction, 0, len(resp.Transactions))
	for _, t := range resp.Transactions {
		txs = append(txs, domain.CardTransaction{
			ID:          t.ID,
			Amount:      domain.NewMoney(t.Amount, t.Currency),
			Status:      t.Status,
			Merchant:    t.Merchant,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		})
	}
	return txs, nil
}

type processTransactionRequest struct {
	CardID      string `json:"card_id"`
	AmountCents int64  `json:"amount_cents"`
	Merchant    string `json:"merchant"`
	Description string `json:"description"`
}

type processTransactionResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// ProcessTransaction charges the card. The card's expiry is checked before
// the charge is attempted; declined charges come back as a result with a
// non-approved status, not as an error.
func (c *Client) ProcessTransaction(ctx context.Context, cardID string, amountCents int64, merchant, description string) (*application.TransactionResult, error) {
	card, err := c.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.IsExpired(time.Now()) {
		return nil, domain.NewCardExpiredError(cardID)
	}

	body := processTransactionRequest{
		CardID:      cardID,
		AmountCents: amountCents,
		Merchant:    merchant,
		Description: description,
	}

	u := fmt.Sprintf("%s/api/transactions", c.baseURL)
	resp, err := sendRequest[processTransactionRequest, processTransactionResponse](c, ctx, http.MethodPost, u, &body)
	if err != nil {
		return nil, err
	}

	return &application.TransactionResult{
		TransactionID: resp.TransactionID,
		Status:        resp.Status,
	}, nil
}

func sendRequest[Req any, Resp any](c *Client, ctx context.Context, method, url string, reqBody *Req) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Revolut-Api-Version", c.apiVersion)
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		var errResp providerErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			errResp = providerErrorResponse{Code: "unknown", Message: string(body)}
		}
		return nil, classify(resp.StatusCode, errResp)
	}

	var provResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&provResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &provResp, nil
}
