package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/domain"
)

// CheckoutItem is one cart position as submitted by the client.
type CheckoutItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int64  `json:"quantity"`
}

// CheckoutRequest is a full checkout submission.
type CheckoutRequest struct {
	Items           []CheckoutItem `json:"items"`
	ShippingAddress domain.Address `json:"shipping_address"`
	Store           string         `json:"store"`
	CustomerEmail   string         `json:"customer_email"`
	CardID          string         `json:"card_id"`
}

// CheckoutResult reports the outcome of a checkout. On payment failure the
// totals are still populated so the client can show what was attempted.
type CheckoutResult struct {
	OrderID       uuid.UUID          `json:"order_id"`
	PaymentID     uuid.UUID          `json:"payment_id"`
	Status        string             `json:"status"`
	Totals        domain.OrderTotals `json:"totals"`
	TransactionID *string            `json:"transaction_id,omitempty"`
}

// CheckoutService computes order totals and orchestrates payment capture.
type CheckoutService struct {
	cards    application.CardClient
	txRunner application.TxRunner
	orders   application.OrderRepository
	payments application.PaymentRepository
	logger   *slog.Logger
}

func NewCheckoutService(cards application.CardClient, txRunner application.TxRunner, orders application.OrderRepository, payments application.PaymentRepository, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		cards:    cards,
		txRunner: txRunner,
		orders:   orders,
		payments: payments,
		logger:   logger,
	}
}

// OrderSummary computes totals for a cart without committing anything. An
// empty cart is rejected; the pure calculator itself would price it at the
// base shipping fee.
func (s *CheckoutService) OrderSummary(items []CheckoutItem, addr *domain.Address) (domain.OrderTotals, error) {
	lines, err := buildLines(items)
	if err != nil {
		return domain.OrderTotals{}, err
	}
	return domain.CalculateTotals(lines, addr, "USD"), nil
}

// ProcessCheckout charges the card and persists the order with its payment
// atomically. The charge amount is the total in integer cents. A declined
// charge still persists the order as PAYMENT_FAILED and returns the result
// alongside a payment error, so callers get both the record and the reason.
func (s *CheckoutService) ProcessCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	lines, err := buildLines(req.Items)
	if err != nil {
		return nil, err
	}
	if req.CardID == "" {
		return nil, application.NewValidationError("card_id is required")
	}
	if req.CustomerEmail == "" {
		return nil, application.NewValidationError("customer_email is required")
	}

	totals := domain.CalculateTotals(lines, &req.ShippingAddress, "USD")

	now := time.Now().UTC()
	order := &domain.Order{
		ID:              uuid.New(),
		Status:          domain.OrderPending,
		Lines:           lines,
		Totals:          totals,
		ShippingAddress: req.ShippingAddress,
		Store:           req.Store,
		CustomerEmail:   req.CustomerEmail,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	description := fmt.Sprintf("Order %s", order.ID)
	txResult, chargeErr := s.cards.ProcessTransaction(ctx, req.CardID, totals.Total.Cents(), "CopIt Store", description)

	payment := &domain.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    domain.PaymentPending,
		Amount:    totals.Total,
		CardID:    req.CardID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	approved := chargeErr == nil && txResult.Status == application.TransactionApproved
	if approved {
		order.Status = domain.OrderPaid
		payment.Status = domain.PaymentCompleted
		payment.TransactionID = &txResult.TransactionID
		completedAt := time.Now().UTC()
		payment.CompletedAt = &completedAt
	} else {
		order.Status = domain.OrderPaymentFailed
		payment.Status = domain.PaymentFailed
		if txResult != nil {
			payment.TransactionID = &txResult.TransactionID
		}
	}

	err = s.txRunner.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.orders.Create(ctx, tx, order); err != nil {
			return err
		}
		return s.payments.Create(ctx, tx, payment)
	})
	if err != nil {
		s.logger.Error("checkout persistence failed", "order_id", order.ID, "error", err)
		return nil, application.NewUnexpectedError(err)
	}

	result := &CheckoutResult{
		OrderID:       order.ID,
		PaymentID:     payment.ID,
		Totals:        totals,
		TransactionID: payment.TransactionID,
	}

	if !approved {
		result.Status = "failed"
		if chargeErr != nil {
			return result, mapChargeError(chargeErr)
		}
		return result, application.NewPaymentError(fmt.Errorf("transaction %s: %s", txResult.TransactionID, txResult.Status))
	}

	result.Status = "success"
	return result, nil
}

func buildLines(items []CheckoutItem) ([]domain.OrderLine, error) {
	if len(items) == 0 {
		return nil, application.NewValidationError("Order must contain at least one item")
	}

	lines := make([]domain.OrderLine, 0, len(items))
	for _, item := range items {
		price, err := domain.NewMoneyFromString(item.Price, "USD")
		if err != nil {
			return nil, application.NewValidationError(fmt.Sprintf("Invalid price for product %s", item.ProductID))
		}

		line, err := domain.NewOrderLine(item.ProductID, item.Name, price, item.Quantity)
		if err != nil {
			return nil, application.NewValidationError(err.Error())
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// mapChargeError reuses the card error taxonomy but folds expired cards into
// payment errors, since at checkout an expired card is a payment problem.
func mapChargeError(err error) error {
	if domain.IsErrorCode(err, domain.ErrCodeCardExpired) {
		return application.NewPaymentError(err)
	}
	return mapCardError(err)
}
