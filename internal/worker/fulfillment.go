// Package worker runs the background fulfillment loop that turns paid
// orders into store submissions.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/application/services"
	"github.com/ALI7-sys/CopIt/internal/config"
	"github.com/ALI7-sys/CopIt/internal/domain"
)

// StoreResolver looks up the adapter for a store name.
type StoreResolver interface {
	Lookup(store string) (application.StoreAdapter, error)
}

// FulfillmentWorker periodically picks up paid orders, issues a virtual card
// per order and submits the order to its store. Orders are processed in
// isolation: one failure never blocks the rest of the batch.
type FulfillmentWorker struct {
	orders   application.OrderRepository
	cards    *services.CardService
	stores   StoreResolver
	email    application.EmailSender
	interval time.Duration
	batch    int
	lookback time.Duration
	logger   *slog.Logger
}

func NewFulfillmentWorker(orders application.OrderRepository, cards *services.CardService, stores StoreResolver, email application.EmailSender, cfg config.WorkerConfig, logger *slog.Logger) *FulfillmentWorker {
	return &FulfillmentWorker{
		orders:   orders,
		cards:    cards,
		stores:   stores,
		email:    email,
		interval: cfg.Interval,
		batch:    cfg.BatchSize,
		lookback: cfg.Lookback,
		logger:   logger,
	}
}

// Start runs the worker loop until ctx is cancelled. One pass runs
// immediately so a restart does not wait a full interval.
func (w *FulfillmentWorker) Start(ctx context.Context) {
	w.logger.Info("fulfillment worker started",
		"interval", w.interval, "batch_size", w.batch, "lookback", w.lookback)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("fulfillment worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *FulfillmentWorker) runOnce(ctx context.Context) {
	w.processNewOrders(ctx)
	w.retryCardedOrders(ctx)
}

// processNewOrders handles paid orders that have no card yet.
func (w *FulfillmentWorker) processNewOrders(ctx context.Context) {
	since := time.Now().UTC().Add(-w.lookback)

	orders, err := w.orders.FindFulfillable(ctx, since, w.batch)
	if err != nil {
		w.logger.Error("fulfillable order scan failed", "error", err)
		return
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}
		if err := w.fulfillOrder(ctx, order); err != nil {
			w.logger.Error("order fulfillment failed",
				"order_id", order.ID, "store", order.Store, "error", err)
		}
	}
}

// fulfillOrder claims the issuance guard, cuts a card and submits the order.
// Losing the claim means another run already owns this order.
func (w *FulfillmentWorker) fulfillOrder(ctx context.Context, order *domain.Order) error {
	claimed, err := w.orders.ClaimCardIssuance(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("claim card issuance: %w", err)
	}
	if !claimed {
		return nil
	}

	card, err := w.cards.CreateCard(ctx, order.Store, order.Totals.Total.Amount,
		fmt.Sprintf("Order %s", order.ID))
	if err != nil {
		if relErr := w.orders.ReleaseCardClaim(ctx, order.ID); relErr != nil {
			w.logger.Error("card claim release failed", "order_id", order.ID, "error", relErr)
		}
		return fmt.Errorf("issue card: %w", err)
	}

	if err := w.orders.AttachCard(ctx, order.ID, card); err != nil {
		return fmt.Errorf("attach card: %w", err)
	}

	order.VCCID = &card.ID
	order.VCCLast4 = &card.Last4
	expiry := card.Expiry
	order.VCCExpiry = &expiry

	return w.submitOrder(ctx, order)
}

// retryCardedOrders handles orders whose card was issued but whose store
// submission never completed, usually after a crash or store outage.
func (w *FulfillmentWorker) retryCardedOrders(ctx context.Context) {
	orders, err := w.orders.FindCardedUnsubmitted(ctx, w.batch)
	if err != nil {
		w.logger.Error("carded order scan failed", "error", err)
		return
	}

	now := time.Now()
	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}

		if order.VCCID == nil || order.VCCExpiry == nil {
			w.logger.Error("order claimed but card details missing",
				"order_id", order.ID)
			continue
		}

		// An expired card cannot be charged by the store anymore. The order
		// needs operator attention: the card must be cancelled and reissued.
		if now.After(*order.VCCExpiry) {
			w.logger.Error("ORPHANED order: card expired before store submission",
				"order_id", order.ID, "card_id", *order.VCCID,
				"card_expired_at", *order.VCCExpiry)
			continue
		}

		if err := w.submitOrder(ctx, order); err != nil {
			w.logger.Error("order resubmission failed",
				"order_id", order.ID, "store", order.Store, "error", err)
		}
	}
}

// submitOrder places the order with its store and records the submission.
// The confirmation email is best-effort.
func (w *FulfillmentWorker) submitOrder(ctx context.Context, order *domain.Order) error {
	adapter, err := w.stores.Lookup(order.Store)
	if err != nil {
		return fmt.Errorf("resolve store: %w", err)
	}

	items := make([]application.StoreOrderItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, application.StoreOrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.UnitPrice.Amount.StringFixed(2),
		})
	}

	resp, err := adapter.CreateOrder(ctx, application.StoreOrderRequest{
		Items:           items,
		ShippingAddress: order.ShippingAddress,
		CardLast4:       deref(order.VCCLast4),
		CardExpiry:      derefTime(order.VCCExpiry),
	})
	if err != nil {
		return fmt.Errorf("submit to store: %w", err)
	}

	if err := w.orders.MarkSubmitted(ctx, nil, order.ID, resp.OrderID); err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}

	w.logger.Info("order submitted to store",
		"order_id", order.ID, "store", order.Store, "store_order_id", resp.OrderID)

	w.sendConfirmation(ctx, order, resp.OrderID)

	return nil
}

func (w *FulfillmentWorker) sendConfirmation(ctx context.Context, order *domain.Order, storeOrderID string) {
	if order.CustomerEmail == "" {
		return
	}

	msg := application.EmailMessage{
		To:      order.CustomerEmail,
		Subject: fmt.Sprintf("Your order %s is being processed", order.ID),
		Body: fmt.Sprintf(
			"Your order has been placed with %s (reference %s). Total: %s.",
			order.Store, storeOrderID, formatMoney(order.Totals.Total)),
	}

	if err := w.email.Send(ctx, msg); err != nil {
		w.logger.Warn("confirmation email failed",
			"order_id", order.ID, "error", err)
	}
}

func formatMoney(m domain.Money) string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
