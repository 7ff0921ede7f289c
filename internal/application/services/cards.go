package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/domain"
	"github.com/ALI7-sys/CopIt/internal/infrastructure/revolut"
)

// CardExpiryWindow is how long an issued card stays usable. Cards are
// single-purpose; a day is enough to submit the order they were cut for.
const CardExpiryWindow = 24 * time.Hour

// Merchant is a store the service can lock cards to.
type Merchant struct {
	ID       string
	Category string
}

// supportedMerchants maps store names to their card-network identity. Cards
// are only ever issued locked to one of these.
var supportedMerchants = map[string]Merchant{
	"newegg":     {ID: "newegg_inc", Category: "electronics"},
	"backmarket": {ID: "back_market", Category: "refurbished_electronics"},
}

// CardService orchestrates virtual card issuance and lifecycle against the
// card provider, with a balance gate on creation.
type CardService struct {
	client application.CardClient
	fx     *FXService
	repo   application.CardRepository
	logger *slog.Logger
}

func NewCardService(client application.CardClient, fx *FXService, repo application.CardRepository, logger *slog.Logger) *CardService {
	return &CardService{
		client: client,
		fx:     fx,
		repo:   repo,
		logger: logger,
	}
}

// CreateCard issues a merchant-locked virtual card. Validation and the
// balance gate run before any provider call; the card always expires
// CardExpiryWindow from now.
func (s *CardService) CreateCard(ctx context.Context, store string, limit decimal.Decimal, description string) (*domain.VirtualCard, error) {
	merchant, ok := supportedMerchants[store]
	if !ok {
		return nil, application.NewValidationError(fmt.Sprintf("Unsupported merchant: %s", store))
	}
	if !limit.IsPositive() {
		return nil, application.NewValidationError("Card limit must be positive")
	}

	balance, err := s.fx.GetBalance(ctx, "USD")
	if err != nil {
		return nil, err
	}
	if balance.Amount.LessThan(limit) {
		return nil, application.NewInsufficientBalanceError(limit.String(), balance.Amount.String())
	}

	card, err := s.client.CreateCard(ctx, application.CreateCardRequest{
		Limit:       domain.NewMoney(limit, "USD"),
		MerchantID:  merchant.ID,
		Category:    merchant.Category,
		Expiry:      time.Now().UTC().Add(CardExpiryWindow),
		Description: description,
	})
	if err != nil {
		return nil, mapCardError(err)
	}

	// The provider owns card state; the local record is an audit trail and
	// its failure does not unwind issuance.
	if err := s.repo.Create(ctx, card); err != nil {
		s.logger.Error("card audit record failed", "card_id", card.ID, "error", err)
	}

	return card, nil
}

func (s *CardService) GetCard(ctx context.Context, cardID string) (*domain.VirtualCard, error) {
	card, err := s.client.GetCard(ctx, cardID)
	if err != nil {
		return nil, mapCardError(err)
	}
	return card, nil
}

func (s *CardService) ListActiveCards(ctx context.Context) ([]domain.VirtualCard, error) {
	cards, err := s.client.ListCards(ctx, domain.CardActive)
	if err != nil {
		return nil, mapCardError(err)
	}
	return cards, nil
}

// CancelCard cancels a card. Cancelling a card that is already terminal is a
// no-op success, which makes retried cancellations safe.
func (s *CardService) CancelCard(ctx context.Context, cardID string) error {
	card, err := s.client.GetCard(ctx, cardID)
	if err != nil {
		return mapCardError(err)
	}
	if card.IsTerminal(time.Now()) {
		return nil
	}

	if err := s.client.CancelCard(ctx, cardID); err != nil {
		return mapCardError(err)
	}
	return nil
}

func (s *CardService) GetTransactions(ctx context.Context, cardID string, start, end *time.Time) ([]domain.CardTransaction, error) {
	txs, err := s.client.Transactions(ctx, cardID, start, end)
	if err != nil {
		return nil, mapCardError(err)
	}
	return txs, nil
}

// UsageStats summarizes a card's spend against its limit.
type UsageStats struct {
	CardID                 string                  `json:"card_id"`
	State                  string                  `json:"state"`
	Limit                  decimal.Decimal         `json:"limit"`
	TotalSpent             decimal.Decimal         `json:"total_spent"`
	Remaining              decimal.Decimal         `json:"remaining"`
	TransactionCount       int                     `json:"transaction_count"`
	SuccessfulTransactions int                     `json:"successful_transactions"`
	FailedTransactions     int                     `json:"failed_transactions"`
	LastTransaction        *domain.CardTransaction `json:"last_transaction,omitempty"`
}

// GetUsageStats composes the card and its transactions into a spend summary.
// Only approved transactions count towards spend; the counts cover every
// transaction, split by outcome.
func (s *CardService) GetUsageStats(ctx context.Context, cardID string) (*UsageStats, error) {
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	txs, err := s.GetTransactions(ctx, cardID, nil, nil)
	if err != nil {
		return nil, err
	}

	spent := decimal.Zero
	successful, failed := 0, 0
	var last *domain.CardTransaction
	for i := range txs {
		tx := &txs[i]
		if last == nil || tx.CreatedAt.After(last.CreatedAt) {
			last = tx
		}
		if tx.Status != application.TransactionApproved {
			failed++
			continue
		}
		successful++
		spent = spent.Add(tx.Amount.Amount)
	}

	return &UsageStats{
		CardID:                 card.ID,
		State:                  string(card.EffectiveState(time.Now())),
		Limit:                  card.Limit.Amount,
		TotalSpent:             spent,
		Remaining:              card.Limit.Amount.Sub(spent),
		TransactionCount:       len(txs),
		SuccessfulTransactions: successful,
		FailedTransactions:     failed,
		LastTransaction:        last,
	}, nil
}

// mapCardError translates provider failures into the service taxonomy.
func mapCardError(err error) error {
	switch {
	case errors.Is(err, revolut.ErrCardNotFound):
		return &application.ServiceError{
			Code:       application.ErrCodeCardNotFound,
			Message:    "Card not found",
			HTTPStatus: http.StatusNotFound,
			Err:        err,
		}
	case errors.Is(err, revolut.ErrInvalidAPIVersion):
		return application.NewAPIVersionError(err)
	case domain.IsErrorCode(err, domain.ErrCodeCardExpired):
		return application.NewCardError(err)
	default:
		return application.NewGatewayError("revolut", err)
	}
}
