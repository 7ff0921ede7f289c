package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ALI7-sys/CopIt/internal/domain"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// ConversionRequest is one source-amount conversion at an agreed rate.
type ConversionRequest struct {
	SourceCurrency string          `json:"source_currency"`
	TargetCurrency string          `json:"target_currency"`
	Amount         decimal.Decimal `json:"amount"`
	Rate           decimal.Decimal `json:"rate"`
}

// ConversionResult describes one executed conversion.
type ConversionResult struct {
	TransactionID string          `json:"transaction_id"`
	SourceAmount  decimal.Decimal `json:"source_amount"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	Rate          decimal.Decimal `json:"rate"`
	Fee           decimal.Decimal `json:"fee"`
	Status        string          `json:"status"`
}

// FXClient talks to the currency provider.
type FXClient interface {
	Balance(ctx context.Context, currency string) (decimal.Decimal, error)
	Rate(ctx context.Context, source, target string, amount decimal.Decimal) (rate, fee decimal.Decimal, err error)
	Convert(ctx context.Context, req ConversionRequest) (transactionID string, err error)
	BatchConvert(ctx context.Context, reqs []ConversionRequest) (transactionIDs []string, err error)
}

// CachedRate is the advisory (rate, fee) pair held in the shared rate cache.
type CachedRate struct {
	Rate decimal.Decimal `json:"rate"`
	Fee  decimal.Decimal `json:"fee"`
}

// RateCache is the short-TTL, pair-keyed rate cache. A miss returns
// (nil, nil); last-writer-wins on concurrent refresh is acceptable.
type RateCache interface {
	Get(ctx context.Context, pair string) (*CachedRate, error)
	Set(ctx context.Context, pair string, rate CachedRate) error
}

// CreateCardRequest asks the card provider for a merchant-locked virtual
// card.
type CreateCardRequest struct {
	Limit       domain.Money
	MerchantID  string
	Category    string
	Expiry      time.Time
	Description string
}

// TransactionResult is the provider's answer to a charge attempt. Approved
// is a business outcome, not just absence of error: declined and pending
// charges return a result without an error.
type TransactionResult struct {
	TransactionID string
	Status        string
}

const TransactionApproved = "approved"

// CardClient talks to the virtual card provider.
type CardClient interface {
	CreateCard(ctx context.Context, req CreateCardRequest) (*domain.VirtualCard, error)
	GetCard(ctx context.Context, cardID string) (*domain.VirtualCard, error)
	ListCards(ctx context.Context, state domain.CardState) ([]domain.VirtualCard, error)
	CancelCard(ctx context.Context, cardID string) error
	Transactions(ctx context.Context, cardID string, start, end *time.Time) ([]domain.CardTransaction, error)
	ProcessTransaction(ctx context.Context, cardID string, amountCents int64, merchant, description string) (*TransactionResult, error)
}

// StoreOrderRequest is the submission payload for a retail store. The card
// reference is masked; the full PAN and CVV never leave the card provider.
type StoreOrderRequest struct {
	Items           []StoreOrderItem `json:"items"`
	ShippingAddress domain.Address   `json:"shipping_address"`
	CardLast4       string           `json:"card_last4"`
	CardExpiry      time.Time        `json:"card_expiry"`
}

type StoreOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Price     string `json:"price"`
}

type StoreOrderResponse struct {
	OrderID string `json:"order_id"`
}

// StoreAdapter submits orders to one retail store.
type StoreAdapter interface {
	Name() string
	CreateOrder(ctx context.Context, req StoreOrderRequest) (*StoreOrderResponse, error)
}

// EmailMessage is a plain-text transactional email.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"text"`
}

// EmailSender delivers transactional email. Senders are best-effort
// collaborators; callers decide whether a failure is fatal.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// TxRunner executes fn inside a database transaction. Repositories accept a
// nil tx and fall back to the pool, so the same repository code serves both
// paths.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// OrderRepository persists orders and their lines.
type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderStatus) error

	// FindFulfillable returns paid orders created since the cutoff that have
	// no virtual card issued yet.
	FindFulfillable(ctx context.Context, since time.Time, limit int) ([]*domain.Order, error)
	// FindCardedUnsubmitted returns paid orders whose card was issued but
	// whose store submission never completed.
	FindCardedUnsubmitted(ctx context.Context, limit int) ([]*domain.Order, error)

	// ClaimCardIssuance flips the vcc_created guard false→true and reports
	// whether this caller won the claim. This compare-and-set is the sole
	// protection against duplicate card issuance across overlapping runs.
	ClaimCardIssuance(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseCardClaim(ctx context.Context, id uuid.UUID) error
	AttachCard(ctx context.Context, id uuid.UUID, card *domain.VirtualCard) error
	MarkSubmitted(ctx context.Context, tx pgx.Tx, id uuid.UUID, storeOrderID string) error
}

// PaymentRepository persists payments.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus, completedAt *time.Time) error
}

// CardRepository keeps a local audit trail of issued virtual cards.
type CardRepository interface {
	Create(ctx context.Context, card *domain.VirtualCard) error
	FindByID(ctx context.Context, id string) (*domain.VirtualCard, error)
}

// FXRepository is the append-only conversion ledger.
type FXRepository interface {
	Append(ctx context.Context, record domain.ConversionRecord) error
}
