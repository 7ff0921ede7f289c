package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/application/services"
	"github.com/ALI7-sys/CopIt/internal/config"
	"github.com/ALI7-sys/CopIt/internal/domain"
)

const (
	testAPIToken      = "token-test"
	testWebhookSecret = "whsec_test"
)

type stubCardClient struct {
	ProcessFn func(ctx context.Context, cardID string, amountCents int64, merchant, description string) (*application.TransactionResult, error)
}

func (s *stubCardClient) CreateCard(ctx context.Context, req application.CreateCardRequest) (*domain.VirtualCard, error) {
	return &domain.VirtualCard{
		ID: "card-1", Last4: "4242", Expiry: req.Expiry,
		Limit: req.Limit, Merchant: req.MerchantID,
		State: domain.CardActive, CreatedAt: time.Now(),
	}, nil
}

func (s *stubCardClient) GetCard(ctx context.Context, cardID string) (*domain.VirtualCard, error) {
	return &domain.VirtualCard{
		ID: cardID, Last4: "4242", Expiry: time.Now().Add(time.Hour),
		Limit: domain.NewMoney(decimal.RequireFromString("100.00"), "USD"),
		State: domain.CardActive,
	}, nil
}

func (s *stubCardClient) ListCards(ctx context.Context, state domain.CardState) ([]domain.VirtualCard, error) {
	return nil, nil
}

func (s *stubCardClient) CancelCard(ctx context.Context, cardID string) error { return nil }

func (s *stubCardClient) Transactions(ctx context.Context, cardID string, start, end *time.Time) ([]domain.CardTransaction, error) {
	return nil, nil
}

func (s *stubCardClient) ProcessTransaction(ctx context.Context, cardID string, amountCents int64, merchant, description string) (*application.TransactionResult, error) {
	if s.ProcessFn != nil {
		return s.ProcessFn(ctx, cardID, amountCents, merchant, description)
	}
	return &application.TransactionResult{TransactionID: "charge-1", Status: application.TransactionApproved}, nil
}

type stubFXClient struct{}

func (stubFXClient) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	return decimal.RequireFromString("10000.00"), nil
}

func (stubFXClient) Rate(ctx context.Context, source, target string, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	return decimal.New(1, 0), decimal.Zero, nil
}

func (stubFXClient) Convert(ctx context.Context, req application.ConversionRequest) (string, error) {
	return "tx", nil
}

func (stubFXClient) BatchConvert(ctx context.Context, reqs []application.ConversionRequest) ([]string, error) {
	return nil, nil
}

type stubRateCache struct{}

func (stubRateCache) Get(ctx context.Context, pair string) (*application.CachedRate, error) {
	return nil, nil
}
func (stubRateCache) Set(ctx context.Context, pair string, rate application.CachedRate) error {
	return nil
}

type stubFXRepo struct{}

func (stubFXRepo) Append(ctx context.Context, record domain.ConversionRecord) error { return nil }

type stubCardRepo struct{}

func (stubCardRepo) Create(ctx context.Context, card *domain.VirtualCard) error { return nil }
func (stubCardRepo) FindByID(ctx context.Context, id string) (*domain.VirtualCard, error) {
	return nil, application.ErrNotFound
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *memOrderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *memOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, application.ErrNotFound
	}
	return o, nil
}

func (m *memOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return application.ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *memOrderRepo) FindFulfillable(ctx context.Context, since time.Time, limit int) ([]*domain.Order, error) {
	return nil, nil
}

func (m *memOrderRepo) FindCardedUnsubmitted(ctx context.Context, limit int) ([]*domain.Order, error) {
	return nil, nil
}

func (m *memOrderRepo) ClaimCardIssuance(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}

func (m *memOrderRepo) ReleaseCardClaim(ctx context.Context, id uuid.UUID) error { return nil }

func (m *memOrderRepo) AttachCard(ctx context.Context, id uuid.UUID, card *domain.VirtualCard) error {
	return nil
}

func (m *memOrderRepo) MarkSubmitted(ctx context.Context, tx pgx.Tx, id uuid.UUID, storeOrderID string) error {
	return nil
}

type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*domain.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (m *memPaymentRepo) Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, application.ErrNotFound
	}
	return p, nil
}

func (m *memPaymentRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return application.ErrNotFound
	}
	p.Status = status
	p.CompletedAt = completedAt
	return nil
}

type passCounter struct{}

func (passCounter) Incr(ctx context.Context, key string, period time.Duration) (int64, error) {
	return 1, nil
}

type fixedCounter struct{ count int64 }

func (f fixedCounter) Incr(ctx context.Context, key string, period time.Duration) (int64, error) {
	return f.count, nil
}

type testEnv struct {
	server   *httptest.Server
	orders   *memOrderRepo
	payments *memPaymentRepo
	cards    *stubCardClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cards := &stubCardClient{}
	orders := newMemOrderRepo()
	payments := newMemPaymentRepo()

	fx := services.NewFXService(stubFXClient{}, stubRateCache{}, stubFXRepo{}, logger)
	cardSvc := services.NewCardService(cards, fx, stubCardRepo{}, logger)
	checkoutSvc := services.NewCheckoutService(cards, stubTxRunner{}, orders, payments, logger)
	webhookSvc := services.NewWebhookService(testWebhookSecret, stubTxRunner{}, orders, payments, logger)

	h := NewHandlers(checkoutSvc, cardSvc, fx, webhookSvc, logger)

	cfg := &config.Config{
		Server: config.ServerConfig{WriteTimeout: 10 * time.Second},
		Auth:   config.AuthConfig{APIToken: testAPIToken},
	}

	server := httptest.NewServer(NewRouter(h, passCounter{}, cfg, logger))
	t.Cleanup(server.Close)

	return &testEnv{server: server, orders: orders, payments: payments, cards: cards}
}

func (e *testEnv) request(t *testing.T, method, path string, body []byte, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testAPIToken}
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRouter_HealthIsOpen(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
}

func TestRouter_APIRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, http.MethodGet, "/api/cards/", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "auth_error", body["error_type"])
}

func TestCheckout_Summary(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(`{"items":[{"product_id":"sku-1","name":"SSD","price":"25.00","quantity":1}]}`)
	resp, body := env.request(t, http.MethodPost, "/api/checkout/summary", payload, authHeaders())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "25", data["subtotal"].(map[string]any)["amount"])
}

func TestCheckout_RejectsEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(`{"items":[]}`)
	resp, body := env.request(t, http.MethodPost, "/api/checkout/summary", payload, authHeaders())

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "validation_error", body["error_type"])
}

func checkoutPayload() []byte {
	return []byte(`{
		"items":[{"product_id":"sku-1","name":"SSD","price":"25.00","quantity":1}],
		"shipping_address":{"name":"Ada Obi","street":"1 Main St","city":"Lagos","state":"LA","zip":"100001","country":"NG"},
		"store":"newegg",
		"customer_email":"ada@example.com",
		"card_id":"card-1"
	}`)
}

func TestCheckout_Process_Success(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, http.MethodPost, "/api/checkout/process", checkoutPayload(), authHeaders())

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "success", data["status"])
	assert.NotEmpty(t, data["order_id"])
}

func TestCheckout_Process_DeclineCarriesTotals(t *testing.T) {
	env := newTestEnv(t)
	env.cards.ProcessFn = func(ctx context.Context, cardID string, amountCents int64, merchant, description string) (*application.TransactionResult, error) {
		return &application.TransactionResult{TransactionID: "charge-1", Status: "declined"}, nil
	}

	resp, body := env.request(t, http.MethodPost, "/api/checkout/process", checkoutPayload(), authHeaders())

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "payment_error", body["error_type"])

	data := body["data"].(map[string]any)
	totals := data["totals"].(map[string]any)
	assert.Equal(t, "31.49", totals["total"].(map[string]any)["amount"])
}

func TestCards_Create(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(`{"store":"newegg","limit":"50.00","description":"order card"}`)
	resp, body := env.request(t, http.MethodPost, "/api/cards/", payload, authHeaders())

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "card-1", data["id"])
	assert.Equal(t, "4242", data["last4"])
}

func TestCards_CreateRejectsUnknownStore(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(`{"store":"amazon","limit":"50.00","description":""}`)
	resp, body := env.request(t, http.MethodPost, "/api/cards/", payload, authHeaders())

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error_type"])
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(`{"payment_id":"x","order_id":"y","status":"COMPLETED","amount":"1","currency":"USD"}`)
	resp, body := env.request(t, http.MethodPost, "/webhooks/payoneer", payload,
		map[string]string{"X-Provider-Signature": "deadbeef"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_signature", body["error_type"])
}

func TestWebhook_CompletedMutatesState(t *testing.T) {
	env := newTestEnv(t)

	order := &domain.Order{ID: uuid.New(), Status: domain.OrderPending}
	payment := &domain.Payment{
		ID: uuid.New(), OrderID: order.ID, Status: domain.PaymentPending,
		Amount: domain.NewMoney(decimal.RequireFromString("31.49"), "USD"),
	}
	require.NoError(t, env.orders.Create(context.Background(), nil, order))
	require.NoError(t, env.payments.Create(context.Background(), nil, payment))

	payload := []byte(fmt.Sprintf(
		`{"payment_id":%q,"order_id":%q,"status":"COMPLETED","amount":"31.49","currency":"USD"}`,
		payment.ID, order.ID))

	resp, body := env.request(t, http.MethodPost, "/webhooks/payoneer", payload,
		map[string]string{"X-Provider-Signature": signBody(payload)})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["applied"])

	got, err := env.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)
}

func TestWebhook_UnknownPaymentIs404(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(fmt.Sprintf(
		`{"payment_id":%q,"order_id":%q,"status":"COMPLETED","amount":"1","currency":"USD"}`,
		uuid.New(), uuid.New()))

	resp, body := env.request(t, http.MethodPost, "/webhooks/payoneer", payload,
		map[string]string{"X-Provider-Signature": signBody(payload)})

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "payment_not_found", body["error_type"])
}

func TestRateLimit_ExceededReturns429(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cards := &stubCardClient{}
	fx := services.NewFXService(stubFXClient{}, stubRateCache{}, stubFXRepo{}, logger)
	cardSvc := services.NewCardService(cards, fx, stubCardRepo{}, logger)
	checkoutSvc := services.NewCheckoutService(cards, stubTxRunner{}, newMemOrderRepo(), newMemPaymentRepo(), logger)
	webhookSvc := services.NewWebhookService(testWebhookSecret, stubTxRunner{}, newMemOrderRepo(), newMemPaymentRepo(), logger)
	h := NewHandlers(checkoutSvc, cardSvc, fx, webhookSvc, logger)

	cfg := &config.Config{
		Server: config.ServerConfig{WriteTimeout: 10 * time.Second},
		Auth:   config.AuthConfig{APIToken: testAPIToken},
	}

	// Counter already past the card-create limit of 10 per hour.
	server := httptest.NewServer(NewRouter(h, fixedCounter{count: 11}, cfg, logger))
	defer server.Close()

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/cards/",
		bytes.NewReader([]byte(`{"store":"newegg","limit":"50.00","description":""}`)))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAPIToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limit_exceeded", body["error_type"])
}

func TestGetBalance_ReturnsProviderBalance(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, http.MethodGet, "/api/fx/balance?currency=USD", nil, authHeaders())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "10000.00", data["balance"])
	assert.Equal(t, "USD", data["currency"])
}

func TestGetRate_RequiresCurrencyPair(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, http.MethodGet, "/api/fx/rate?source_currency=NGN", nil, authHeaders())

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error_type"])
}

func TestConvert_ReturnsConversionResult(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(`{"source_currency":"NGN","target_currency":"USD","amount":"100.00"}`)
	resp, body := env.request(t, http.MethodPost, "/api/fx/convert", payload, authHeaders())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "tx", data["transaction_id"])
	assert.Equal(t, "100", data["target_amount"])
}

func TestConvert_RejectsMalformedAmount(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(`{"source_currency":"NGN","target_currency":"USD","amount":"abc"}`)
	resp, body := env.request(t, http.MethodPost, "/api/fx/convert", payload, authHeaders())

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error_type"])
}
