package stores

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/config"
	"github.com/ALI7-sys/CopIt/internal/domain"
)

// BackMarket submits orders to the Back Market API.
type BackMarket struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewBackMarket(cfg config.StoresConfig) *BackMarket {
	return &BackMarket{
		baseURL: cfg.BackMarketBaseURL,
		apiKey:  cfg.BackMarketAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

func (b *BackMarket) Name() string {
	return "backmarket"
}

type backMarketOrderLine struct {
	Listing  string `json:"listing"`
	Quantity int64  `json:"quantity"`
	Price    string `json:"price"`
}

type backMarketOrderRequest struct {
	Orderlines []backMarketOrderLine `json:"orderlines"`
	Shipping   backMarketAddress     `json:"shipping_address"`
	Card       backMarketCardRef     `json:"payment_card"`
}

type backMarketAddress struct {
	FullName   string `json:"full_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type backMarketCardRef struct {
	Last4  string `json:"last4"`
	Expiry string `json:"expiry"`
}

type backMarketOrderResponse struct {
	OrderID string `json:"order_id"`
}

func (b *BackMarket) CreateOrder(ctx context.Context, req application.StoreOrderRequest) (*application.StoreOrderResponse, error) {
	body := backMarketOrderRequest{
		Orderlines: make([]backMarketOrderLine, 0, len(req.Items)),
		Shipping:   toBackMarketAddress(req.ShippingAddress),
		Card:       backMarketCardRef{Last4: req.CardLast4, Expiry: req.CardExpiry.Format(time.RFC3339)},
	}
	for _, item := range req.Items {
		body.Orderlines = append(body.Orderlines, backMarketOrderLine{
			Listing:  item.ProductID,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}

	u := fmt.Sprintf("%s/ws/orders", b.baseURL)
	resp, err := sendRequest[backMarketOrderRequest, backMarketOrderResponse](b.httpClient, ctx, b.Name(), b.apiKey, http.MethodPost, u, &body)
	if err != nil {
		return nil, err
	}

	return &application.StoreOrderResponse{OrderID: resp.OrderID}, nil
}

func toBackMarketAddress(a domain.Address) backMarketAddress {
	return backMarketAddress{
		FullName:   a.FullName,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.Zip,
		Country:    a.Country,
	}
}
