package revolut

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/config"
	"github.com/ALI7-sys/CopIt/internal/domain"
)

// RetryClient wraps a Client with bounded exponential backoff. Charges are
// not retried: a timed-out charge may have gone through, and a duplicate
// spend is worse than a surfaced failure.
type RetryClient struct {
	inner      application.CardClient
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryClient(inner application.CardClient, cfg config.RetryConfig) application.CardClient {
	return &RetryClient{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Second,
		maxRetries: int(cfg.MaxRetries),
	}
}

func (r *RetryClient) CreateCard(ctx context.Context, req application.CreateCardRequest) (*domain.VirtualCard, error) {
	return retry(r, ctx, func(ctx context.Context) (*domain.VirtualCard, error) {
		return r.inner.CreateCard(ctx, req)
	})
}

func (r *RetryClient) GetCard(ctx context.Context, cardID string) (*domain.VirtualCard, error) {
	return retry(r, ctx, func(ctx context.Context) (*domain.VirtualCard, error) {
		return r.inner.GetCard(ctx, cardID)
	})
}

func (r *RetryClient) ListCards(ctx context.Context, state domain.CardState) ([]domain.VirtualCard, error) {
	resp, err := retry(r, ctx, func(ctx context.Context) (*[]domain.VirtualCard, error) {
		cards, err := r.inner.ListCards(ctx, state)
		if err != nil {
			return nil, err
		}
		return &cards, nil
	})
	if err != nil {
		return nil, err
	}
	return *resp, nil
}

func (r *RetryClient) CancelCard(ctx context.Context, cardID string) error {
	_, err := retry(r, ctx, func(ctx context.Context) (*struct{}, error) {
		if err := r.inner.CancelCard(ctx, cardID); err != nil {
			return nil, err
		}
		return &struct{}{}, nil
	})
	return err
}

func (r *RetryClient) Transactions(ctx context.Context, cardID string, start, end *time.Time) ([]domain.CardTransaction, error) {
	resp, err := retry(r, ctx, func(ctx context.Context) (*[]domain.CardTransaction, error) {
		txs, err := r.inner.Transactions(ctx, cardID, start, end)
		if err != nil {
			return nil, err
		}
		return &txs, nil
	})
	if err != nil {
		return nil, err
	}
	return *resp, nil
}

// ProcessTransaction passes through without retry.
func (r *RetryClient) ProcessTransaction(ctx context.Context, cardID string, amountCents int64, merchant, description string) (*application.TransactionResult, error) {
	return r.inner.ProcessTransaction(ctx, cardID, amountCents, merchant, description)
}

// Generic retry helper
func retry[T any](r *RetryClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			if err := sleepCtx(ctx, r.backoff(attempt)); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

// Helper: to check retryable errors
func isRetryable(err error) bool {
	if errors.Is(err, ErrCardNotFound) || errors.Is(err, ErrInvalidAPIVersion) {
		return false
	}

	var domErr *domain.DomainError
	if errors.As(err, &domErr) {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.StatusCode >= 500
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond

	return base + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
