package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the current state of an order in its lifecycle
type OrderStatus string

const (
	OrderPending       OrderStatus = "PENDING"
	OrderPaid          OrderStatus = "PAID"
	OrderPaymentFailed OrderStatus = "PAYMENT_FAILED"
	OrderProcessing    OrderStatus = "PROCESSING"
	OrderShipped       OrderStatus = "SHIPPED"
	OrderDelivered     OrderStatus = "DELIVERED"
	OrderCancelled     OrderStatus = "CANCELLED"
)

// PaymentStatus mirrors the payment-relevant subset of the order lifecycle
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Address is a shipping destination.
type Address struct {
	FullName string `json:"name"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

// OrderLine is one product position on an order. UnitPrice is the price at
// order time and never changes once the order is placed.
type OrderLine struct {
	ProductID string
	Name      string
	UnitPrice Money
	Quantity  int64
}

func NewOrderLine(productID, name string, unitPrice Money, quantity int64) (OrderLine, error) {
	if quantity < 1 {
		return OrderLine{}, NewInvalidQuantityError(quantity)
	}
	if unitPrice.IsNegative() {
		return OrderLine{}, NewInvalidAmountError(unitPrice.String())
	}
	return OrderLine{
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
	}, nil
}

// Subtotal is unit price times quantity.
func (l OrderLine) Subtotal() Money {
	return l.UnitPrice.MulInt(l.Quantity)
}

// Order owns its lines, at most one virtual card link and one payment.
type Order struct {
	ID              uuid.UUID
	Status          OrderStatus
	Lines           []OrderLine
	Totals          OrderTotals
	ShippingAddress Address
	Store           string
	CustomerEmail   string

	// Virtual card link, set once by the fulfillment worker.
	VCCCreated bool
	VCCID      *string
	VCCLast4   *string
	VCCExpiry  *time.Time

	// Store submission reference, set once the order is placed upstream.
	StoreOrderID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanTransitionTo validates whether the order can move to the target status.
//
// Valid transitions are:
//   - Pending → Paid, PaymentFailed, Cancelled
//   - PaymentFailed → Paid (a later payment attempt succeeded)
//   - Paid → Processing, Cancelled
//   - Processing → Shipped, Cancelled
//   - Shipped → Delivered
//
// Delivered and Cancelled are terminal.
func (o *Order) CanTransitionTo(target OrderStatus) error {
	switch o.Status {
	case OrderPending:
		if target == OrderPaid || target == OrderPaymentFailed || target == OrderCancelled {
			return nil
		}
	case OrderPaymentFailed:
		if target == OrderPaid {
			return nil
		}
	case OrderPaid:
		if target == OrderProcessing || target == OrderCancelled {
			return nil
		}
	case OrderProcessing:
		if target == OrderShipped || target == OrderCancelled {
			return nil
		}
	case OrderShipped:
		if target == OrderDelivered {
			return nil
		}
	}
	return NewInvalidTransitionError(string(o.Status), string(target))
}

func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderDelivered, OrderCancelled:
		return true
	default:
		return false
	}
}

// Payment is the settlement record linked to exactly one order.
type Payment struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	Status        PaymentStatus
	Amount        Money
	CardID        string
	TransactionID *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// CanTransitionTo validates a payment status change.
// Pending → Completed, Failed; Completed → Refunded. Failed and Refunded
// are terminal.
func (p *Payment) CanTransitionTo(target PaymentStatus) error {
	switch p.Status {
	case PaymentPending:
		if target == PaymentCompleted || target == PaymentFailed {
			return nil
		}
	case PaymentCompleted:
		if target == PaymentRefunded {
			return nil
		}
	}
	return NewInvalidTransitionError(string(p.Status), string(target))
}
