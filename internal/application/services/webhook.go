package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/domain"
)

// WebhookPayload is the provider's payment status notification.
type WebhookPayload struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

// WebhookResult reports what the webhook did.
type WebhookResult struct {
	PaymentID string `json:"payment_id"`
	Applied   bool   `json:"applied"`
}

// WebhookService verifies and applies provider payment notifications.
// Signature verification runs over the raw request bytes before any parsing.
type WebhookService struct {
	secret   []byte
	txRunner application.TxRunner
	orders   application.OrderRepository
	payments application.PaymentRepository
	logger   *slog.Logger
}

func NewWebhookService(secret string, txRunner application.TxRunner, orders application.OrderRepository, payments application.PaymentRepository, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		secret:   []byte(secret),
		txRunner: txRunner,
		orders:   orders,
		payments: payments,
		logger:   logger,
	}
}

// VerifySignature checks the hex HMAC-SHA256 of the raw body in constant
// time.
func (s *WebhookService) VerifySignature(rawBody []byte, signature string) bool {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleWebhook verifies the signature, parses the payload and applies the
// status change. Only COMPLETED mutates state: the order moves to PAID and
// the payment to COMPLETED in one transaction. Re-delivery of an already
// applied notification acknowledges without changing anything.
func (s *WebhookService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookResult, error) {
	if !s.VerifySignature(rawBody, signature) {
		return nil, application.NewSignatureError()
	}

	var payload WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, application.NewPayloadError("Malformed webhook payload")
	}
	if payload.PaymentID == "" || payload.OrderID == "" || payload.Status == "" ||
		payload.Amount == "" || payload.Currency == "" {
		return nil, application.NewPayloadError("Missing required webhook fields")
	}

	if payload.Status != string(domain.PaymentCompleted) {
		s.logger.Info("webhook acknowledged without action",
			"payment_id", payload.PaymentID, "status", payload.Status)
		return &WebhookResult{PaymentID: payload.PaymentID, Applied: false}, nil
	}

	paymentID, err := uuid.Parse(payload.PaymentID)
	if err != nil {
		return nil, application.NewPayloadError("Invalid payment_id")
	}
	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		return nil, application.NewPayloadError("Invalid order_id")
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			return nil, application.NewPaymentNotFoundError(payload.PaymentID)
		}
		return nil, application.NewUnexpectedError(err)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			return nil, application.NewOrderNotFoundError(payload.OrderID)
		}
		return nil, application.NewUnexpectedError(err)
	}

	if payment.OrderID != order.ID {
		return nil, application.NewPayloadError("Payment does not belong to order")
	}

	// Idempotency: a re-delivered COMPLETED notification for an already
	// settled payment acknowledges without touching state.
	if payment.Status == domain.PaymentCompleted && order.Status == domain.OrderPaid {
		return &WebhookResult{PaymentID: payload.PaymentID, Applied: false}, nil
	}

	if err := payment.CanTransitionTo(domain.PaymentCompleted); err != nil {
		return nil, application.NewPayloadError(err.Error())
	}
	if err := order.CanTransitionTo(domain.OrderPaid); err != nil {
		return nil, application.NewPayloadError(err.Error())
	}

	completedAt := time.Now().UTC()
	err = s.txRunner.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.orders.UpdateStatus(ctx, tx, order.ID, domain.OrderPaid); err != nil {
			return err
		}
		return s.payments.UpdateStatus(ctx, tx, payment.ID, domain.PaymentCompleted, &completedAt)
	})
	if err != nil {
		s.logger.Error("webhook state update failed",
			"payment_id", payload.PaymentID, "order_id", payload.OrderID, "error", err)
		return nil, application.NewUnexpectedError(err)
	}

	s.logger.Info("payment completed via webhook",
		"payment_id", payload.PaymentID, "order_id", payload.OrderID)

	return &WebhookResult{PaymentID: payload.PaymentID, Applied: true}, nil
}
