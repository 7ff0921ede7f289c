package domain

import (
	"testing"
	"time"
)

func TestOrderTransitions(t *testing.T) {
	allowed := []struct {
		from, to OrderStatus
	}{
		{OrderPending, OrderPaid},
		{OrderPending, OrderPaymentFailed},
		{OrderPending, OrderCancelled},
		{OrderPaymentFailed, OrderPaid},
		{OrderPaid, OrderProcessing},
		{OrderPaid, OrderCancelled},
		{OrderProcessing, OrderShipped},
		{OrderShipped, OrderDelivered},
	}

	for _, tc := range allowed {
		o := &Order{Status: tc.from}
		if err := o.CanTransitionTo(tc.to); err != nil {
			t.Errorf("expected %s -> %s to be allowed, got %v", tc.from, tc.to, err)
		}
	}

	denied := []struct {
		from, to OrderStatus
	}{
		{OrderPending, OrderProcessing},
		{OrderPaid, OrderDelivered},
		{OrderDelivered, OrderPending},
		{OrderCancelled, OrderPaid},
		{OrderProcessing, OrderPaid},
	}

	for _, tc := range denied {
		o := &Order{Status: tc.from}
		err := o.CanTransitionTo(tc.to)
		if err == nil {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
		if !IsErrorCode(err, ErrCodeInvalidTransition) {
			t.Errorf("expected INVALID_TRANSITION, got %v", err)
		}
	}
}

func TestPaymentTransitions(t *testing.T) {
	p := &Payment{Status: PaymentPending}
	if err := p.CanTransitionTo(PaymentCompleted); err != nil {
		t.Fatalf("pending -> completed should be allowed, got %v", err)
	}

	p.Status = PaymentFailed
	if err := p.CanTransitionTo(PaymentCompleted); err == nil {
		t.Fatal("failed is terminal, expected rejection")
	}
}

func TestOrderLineValidation(t *testing.T) {
	price, _ := NewMoneyFromString("10.00", "USD")

	if _, err := NewOrderLine("p1", "thing", price, 0); !IsErrorCode(err, ErrCodeInvalidQuantity) {
		t.Errorf("expected INVALID_QUANTITY, got %v", err)
	}

	l, err := NewOrderLine("p1", "thing", price, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Subtotal().Amount.String() != "30" {
		t.Errorf("expected subtotal 30, got %s", l.Subtotal().Amount)
	}
}

func TestCardEffectiveState(t *testing.T) {
	now := time.Now()
	card := &VirtualCard{
		ID:     "card-1",
		State:  CardActive,
		Expiry: now.Add(24 * time.Hour),
	}

	if card.EffectiveState(now) != CardActive {
		t.Error("card inside its expiry window should be active")
	}
	if card.EffectiveState(now.Add(25*time.Hour)) != CardExpired {
		t.Error("card past expiry should read as expired")
	}

	card.State = CardCancelled
	if card.EffectiveState(now.Add(25*time.Hour)) != CardCancelled {
		t.Error("cancelled card must stay cancelled past expiry")
	}
}

func TestMoneyCents(t *testing.T) {
	m, err := NewMoneyFromString("39.99", "USD")
	if err != nil {
		t.Fatal(err)
	}
	if m.Cents() != 3999 {
		t.Errorf("expected 3999 cents, got %d", m.Cents())
	}
}
