// Package payoneer implements the currency provider client.
package payoneer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/config"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.PayoneerConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

type balanceResponse struct {
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Currency         string          `json:"currency"`
}

func (c *Client) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/v1/balances?currency=%s", c.baseURL, url.QueryEscape(currency))
	resp, err := sendRequest[any, balanceResponse](c, ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return resp.AvailableBalance, nil
}

type rateResponse struct {
	Rate decimal.Decimal `json:"rate"`
	Fee  decimal.Decimal `json:"fee"`
}

func (c *Client) Rate(ctx context.Context, source, target string, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	u := fmt.Sprintf("%s/v1/fx/rates?source_currency=%s&target_currency=%s&amount=%s",
		c.baseURL, url.QueryEscape(source), url.QueryEscape(target), amount.String())
	resp, err := sendRequest[any, rateResponse](c, ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return resp.Rate, resp.Fee, nil
}

type convertRequest struct {
	SourceCurrency string `json:"source_currency"`
	TargetCurrency string `json:"target_currency"`
	Amount         string `json:"amount"`
	Rate           string `json:"rate"`
}

type convertResponse struct {
	TransactionID string `json:"transaction_id"`
}

func (c *Client) Convert(ctx context.Context, req application.ConversionRequest) (string, error) {
	body := convertRequest{
		SourceCurrency: req.SourceCurrency,
		TargetCurrency: req.TargetCurrency,
		Amount:         req.Amount.String(),
		Rate:           req.Rate.String(),
	}

	u := fmt.Sprintf("%s/v1/fx/convert", c.baseURL)
	resp, err := sendRequest[convertRequest, convertResponse](c, ctx, http.MethodPost, u, &body)
	if err != nil {
		return "", err
	}
	return resp.TransactionID, nil
}

type batchConvertRequest struct {
	Conversions []convertRequest `json:"conversions"`
}

type batchConvertResponse struct {
	TransactionIDs []string `json:"transaction_ids"`
}

// BatchConvert executes all conversions in one remote call. The provider
// returns one transaction id per conversion, in request order.
func (c *Client) BatchConvert(ctx context.Context, reqs []application.ConversionRequest) ([]string, error) {
	body := batchConvertRequest{Conversions: make([]convertRequest, 0, len(reqs))}
	for _, req := range reqs {
		body.Conversions = append(body.Conversions, convertRequest{
			SourceCurrency: req.SourceCurrency,
			TargetCurrency: req.TargetCurrency,
			Amount:         req.Amount.String(),
			Rate:           req.Rate.String(),
		})
	}

	u := fmt.Sprintf("%s/v1/fx/batch-convert", c.baseURL)
	resp, err := sendRequest[batchConvertRequest, batchConvertResponse](c, ctx, http.MethodPost, u, &body)
	if err != nil {
		return nil, err
	}

	if len(resp.TransactionIDs) != len(reqs) {
		return nil, fmt.Errorf("batch convert returned %d transaction ids for %d conversions",
			len(resp.TransactionIDs), len(reqs))
	}

	return resp.TransactionIDs, nil
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
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp providerErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, &ProviderError{
				Code:       "unknown",
				Message:    string(body),
				StatusCode: resp.StatusCode,
			}
		}
		return nil, &ProviderError{
			Code:       errResp.Err,
			Message:    errResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var provResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&provResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &provResp, nil
}
