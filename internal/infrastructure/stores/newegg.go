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

// Newegg submits orders to the Newegg marketplace API.
type Newegg struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewNewegg(cfg config.StoresConfig) *Newegg {
	return &Newegg{
		baseURL: cfg.NeweggBaseURL,
		apiKey:  cfg.NeweggAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

func (n *Newegg) Name() string {
	return "newegg"
}

type neweggOrderItem struct {
	ItemNumber string `json:"item_number"`
	Quantity   int64  `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
}

type neweggOrderRequest struct {
	Items    []neweggOrderItem `json:"items"`
	ShipTo   neweggAddress     `json:"ship_to"`
	CardRef  neweggCardRef     `json:"payment_card"`
	Currency string            `json:"currency"`
}

type neweggAddress struct {
	Name    string `json:"name"`
	Street  string `json:"address1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip_code"`
	Country string `json:"country"`
}

type neweggCardRef struct {
	Last4  string `json:"last4"`
	Expiry string `json:"expiry"`
}

type neweggOrderResponse struct {
	OrderNumber string `json:"order_number"`
}

func (n *Newegg) CreateOrder(ctx context.Context, req application.StoreOrderRequest) (*application.StoreOrderResponse, error) {
	body := neweggOrderRequest{
		Items:    make([]neweggOrderItem, 0, len(req.Items)),
		ShipTo:   toNeweggAddress(req.ShippingAddress),
		CardRef:  neweggCardRef{Last4: req.CardLast4, Expiry: req.CardExpiry.Format(time.RFC3339)},
		Currency: "USD",
	}
	for _, item := range req.Items {
		body.Items = append(body.Items, neweggOrderItem{
			ItemNumber: item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
		})
	}

	u := fmt.Sprintf("%s/marketplace/ordermgmt/orders", n.baseURL)
	resp, err := sendRequest[neweggOrderRequest, neweggOrderResponse](n.httpClient, ctx, n.Name(), n.apiKey, http.MethodPost, u, &body)
	if err != nil {
		return nil, err
	}

	return &application.StoreOrderResponse{OrderID: resp.OrderNumber}, nil
}

func toNeweggAddress(a domain.Address) neweggAddress {
	return neweggAddress{
		Name:    a.FullName,
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.Country,
	}
}
