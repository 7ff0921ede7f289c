package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockFXClient struct {
	BalanceFn      func(ctx context.Context, currency string) (decimal.Decimal, error)
	RateFn         func(ctx context.Context, source, target string, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error)
	ConvertFn      func(ctx context.Context, req application.ConversionRequest) (string, error)
	BatchConvertFn func(ctx context.Context, reqs []application.ConversionRequest) ([]string, error)

	BalanceCalls int
	RateCalls    int
	ConvertCalls int
	BatchCalls   int
}

func (m *mockFXClient) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	m.BalanceCalls++
	if m.BalanceFn != nil {
		return m.BalanceFn(ctx, currency)
	}
	return decimal.RequireFromString("1000.00"), nil
}

func (m *mockFXClient) Rate(ctx context.Context, source, target string, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	m.RateCalls++
	if m.RateFn != nil {
		return m.RateFn(ctx, source, target, amount)
	}
	return decimal.RequireFromString("0.5"), decimal.RequireFromString("1.00"), nil
}

func (m *mockFXClient) Convert(ctx context.Context, req application.ConversionRequest) (string, error) {
	m.ConvertCalls++
	if m.ConvertFn != nil {
		return m.ConvertFn(ctx, req)
	}
	return "tx-1", nil
}

func (m *mockFXClient) BatchConvert(ctx context.Context, reqs []application.ConversionRequest) ([]string, error) {
	m.BatchCalls++
	if m.BatchConvertFn != nil {
		return m.BatchConvertFn(ctx, reqs)
	}
	ids := make([]string, len(reqs))
	for i := range reqs {
		ids[i] = uuid.NewString()
	}
	return ids, nil
}

type mockRateCache struct {
	mu    sync.Mutex
	store map[string]application.CachedRate

	GetFn func(ctx context.Context, pair string) (*application.CachedRate, error)
	SetFn func(ctx context.Context, pair string, rate application.CachedRate) error
}

func newMockRateCache() *mockRateCache {
	return &mockRateCache{store: make(map[string]application.CachedRate)}
}

func (m *mockRateCache) Get(ctx context.Context, pair string) (*application.CachedRate, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, pair)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.store[pair]; ok {
		return &cached, nil
	}
	return nil, nil
}

func (m *mockRateCache) Set(ctx context.Context, pair string, rate application.CachedRate) error {
	if m.SetFn != nil {
		return m.SetFn(ctx, pair, rate)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[pair] = rate
	return nil
}

type mockCardClient struct {
	CreateCardFn         func(ctx context.Context, req application.CreateCardRequest) (*domain.VirtualCard, error)
	GetCardFn            func(ctx context.Context, cardID string) (*domain.VirtualCard, error)
	ListCardsFn          func(ctx context.Context, state domain.CardState) ([]domain.VirtualCard, error)
	CancelCardFn         func(ctx context.Context, cardID string) error
	TransactionsFn       func(ctx context.Context, cardID string, start, end *time.Time) ([]domain.CardTransaction, error)
	ProcessTransactionFn func(ctx context.Context, cardID string, amountCents int64, merchant, description string) (*application.TransactionResult, error)

	CreateCardCalls int
	CancelCalls     int
	ProcessCalls    int
}

func (m *mockCardClient) CreateCard(ctx context.Context, req application.CreateCardRequest) (*domain.VirtualCard, error) {
	m.CreateCardCalls++
	if m.CreateCardFn != nil {
		return m.CreateCardFn(ctx, req)
	}
	return &domain.VirtualCard{
		ID:        uuid.NewString(),
		Last4:     "4242",
		Expiry:    req.Expiry,
		Limit:     req.Limit,
		Merchant:  req.MerchantID,
		State:     domain.CardActive,
		CreatedAt: time.Now(),
	}, nil
}

func (m *mockCardClient) GetCard(ctx context.Context, cardID string) (*domain.VirtualCard, error) {
	if m.GetCardFn != nil {
		return m.GetCardFn(ctx, cardID)
	}
	return &domain.VirtualCard{
		ID:     cardID,
		Last4:  "4242",
		Expiry: time.Now().Add(time.Hour),
		Limit:  domain.NewMoney(decimal.RequireFromString("100.00"), "USD"),
		State:  domain.CardActive,
	}, nil
}

func (m *mockCardClient) ListCards(ctx context.Context, state domain.CardState) ([]domain.VirtualCard, error) {
	if m.ListCardsFn != nil {
		return m.ListCardsFn(ctx, state)
	}
	return nil, nil
}

func (m *mockCardClient) CancelCard(ctx context.Context, cardID string) error {
	m.CancelCalls++
	if m.CancelCardFn != nil {
		return m.CancelCardFn(ctx, cardID)
	}
	return nil
}

func (m *mockCardClient) Transactions(ctx context.Context, cardID string, start, end *time.Time) ([]domain.CardTransaction, error) {
	if m.TransactionsFn != nil {
		return m.TransactionsFn(ctx, cardID, start, end)
	}
	return nil, nil
}

func (m *mockCardClient) ProcessTransaction(ctx context.Context, cardID string, amountCents int64, merchant, description string) (*application.TransactionResult, error) {
	m.ProcessCalls++
	if m.ProcessTransactionFn != nil {
		return m.ProcessTransactionFn(ctx, cardID, amountCents, merchant, description)
	}
	return &application.TransactionResult{
		TransactionID: "charge-1",
		Status:        application.TransactionApproved,
	}, nil
}

// mockTxRunner runs fn with a nil tx so repositories fall back to their
// non-transactional path.
type mockTxRunner struct {
	WithTxFn func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if m.WithTxFn != nil {
		return m.WithTxFn(ctx, fn)
	}
	return fn(ctx, nil)
}

type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order

	CreateFn            func(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	FindByIDFn          func(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateStatusFn      func(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderStatus) error
	FindFulfillableFn   func(ctx context.Context, since time.Time, limit int) ([]*domain.Order, error)
	FindCardedFn        func(ctx context.Context, limit int) ([]*domain.Order, error)
	ClaimFn             func(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseFn           func(ctx context.Context, id uuid.UUID) error
	AttachCardFn        func(ctx context.Context, id uuid.UUID, card *domain.VirtualCard) error
	MarkSubmittedFn     func(ctx context.Context, tx pgx.Tx, id uuid.UUID, storeOrderID string) error
	UpdateStatusCalls   int
	MarkSubmittedCalls  int
	ReleaseCalls        int
	ClaimCalls          int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, tx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, application.ErrNotFound
	}
	return order, nil
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderStatus) error {
	m.UpdateStatusCalls++
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, tx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return application.ErrNotFound
	}
	order.Status = status
	return nil
}

func (m *mockOrderRepo) FindFulfillable(ctx context.Context, since time.Time, limit int) ([]*domain.Order, error) {
	if m.FindFulfillableFn != nil {
		return m.FindFulfillableFn(ctx, since, limit)
	}
	return nil, nil
}

func (m *mockOrderRepo) FindCardedUnsubmitted(ctx context.Context, limit int) ([]*domain.Order, error) {
	if m.FindCardedFn != nil {
		return m.FindCardedFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockOrderRepo) ClaimCardIssuance(ctx context.Context, id uuid.UUID) (bool, error) {
	m.ClaimCalls++
	if m.ClaimFn != nil {
		return m.ClaimFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok || order.VCCCreated || order.Status != domain.OrderPaid {
		return false, nil
	}
	order.VCCCreated = true
	return true, nil
}

func (m *mockOrderRepo) ReleaseCardClaim(ctx context.Context, id uuid.UUID) error {
	m.ReleaseCalls++
	if m.ReleaseFn != nil {
		return m.ReleaseFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if order, ok := m.orders[id]; ok && order.VCCID == nil {
		order.VCCCreated = false
	}
	return nil
}

func (m *mockOrderRepo) AttachCard(ctx context.Context, id uuid.UUID, card *domain.VirtualCard) error {
	if m.AttachCardFn != nil {
		return m.AttachCardFn(ctx, id, card)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return application.ErrNotFound
	}
	order.VCCID = &card.ID
	order.VCCLast4 = &card.Last4
	expiry := card.Expiry
	order.VCCExpiry = &expiry
	return nil
}

func (m *mockOrderRepo) MarkSubmitted(ctx context.Context, tx pgx.Tx, id uuid.UUID, storeOrderID string) error {
	m.MarkSubmittedCalls++
	if m.MarkSubmittedFn != nil {
		return m.MarkSubmittedFn(ctx, tx, id, storeOrderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return application.ErrNotFound
	}
	order.StoreOrderID = &storeOrderID
	order.Status = domain.OrderProcessing
	return nil
}

type mockPaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*domain.Payment

	CreateFn       func(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	FindByIDFn     func(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	UpdateStatusFn func(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus, completedAt *time.Time) error

	UpdateStatusCalls int
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (m *mockPaymentRepo) Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, tx, payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment
	return nil
}

func (m *mockPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, application.ErrNotFound
	}
	return payment, nil
}

func (m *mockPaymentRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus, completedAt *time.Time) error {
	m.UpdateStatusCalls++
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, tx, id, status, completedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return application.ErrNotFound
	}
	payment.Status = status
	payment.CompletedAt = completedAt
	return nil
}

type mockCardRepo struct {
	mu    sync.Mutex
	cards map[string]*domain.VirtualCard

	CreateFn func(ctx context.Context, card *domain.VirtualCard) error
}

func newMockCardRepo() *mockCardRepo {
	return &mockCardRepo{cards: make(map[string]*domain.VirtualCard)}
}

func (m *mockCardRepo) Create(ctx context.Context, card *domain.VirtualCard) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, card)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[card.ID] = card
	return nil
}

func (m *mockCardRepo) FindByID(ctx context.Context, id string) (*domain.VirtualCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.cards[id]
	if !ok {
		return nil, application.ErrNotFound
	}
	return card, nil
}

type mockFXRepo struct {
	mu      sync.Mutex
	records []domain.ConversionRecord

	AppendFn func(ctx context.Context, record domain.ConversionRecord) error
}

func (m *mockFXRepo) Append(ctx context.Context, record domain.ConversionRecord) error {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

type mockEmailSender struct {
	mu     sync.Mutex
	sent   []application.EmailMessage
	SendFn func(ctx context.Context, msg application.EmailMessage) error
}

func (m *mockEmailSender) Send(ctx context.Context, msg application.EmailMessage) error {
	if m.SendFn != nil {
		return m.SendFn(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}
