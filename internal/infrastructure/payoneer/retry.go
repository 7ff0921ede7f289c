package payoneer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/config"
)

// RetryClient wraps a Client with bounded exponential backoff. Sleeps are
// context-aware so a cancelled request never waits out a full backoff.
type RetryClient struct {
	inner      application.FXClient
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryClient(inner application.FXClient, cfg config.RetryConfig) application.FXClient {
	return &RetryClient{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Second,
		maxRetries: int(cfg.MaxRetries),
	}
}

func (r *RetryClient) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	resp, err := retry(r, ctx, func(ctx context.Context) (*decimal.Decimal, error) {
		bal, err := r.inner.Balance(ctx, currency)
		if err != nil {
			return nil, err
		}
		return &bal, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return *resp, nil
}

type ratePair struct {
	rate decimal.Decimal
	fee  decimal.Decimal
}

func (r *RetryClient) Rate(ctx context.Context, source, target string, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	resp, err := retry(r, ctx, func(ctx context.Context) (*ratePair, error) {
		rate, fee, err := r.inner.Rate(ctx, source, target, amount)
		if err != nil {
			return nil, err
		}
		return &ratePair{rate: rate, fee: fee}, nil
	})
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return resp.rate, resp.fee, nil
}

func (r *RetryClient) Convert(ctx context.Context, req application.ConversionRequest) (string, error) {
	resp, err := retry(r, ctx, func(ctx context.Context) (*string, error) {
		id, err := r.inner.Convert(ctx, req)
		if err != nil {
			return nil, err
		}
		return &id, nil
	})
	if err != nil {
		return "", err
	}
	return *resp, nil
}

func (r *RetryClient) BatchConvert(ctx context.Context, reqs []application.ConversionRequest) ([]string, error) {
	resp, err := retry(r, ctx, func(ctx context.Context) (*[]string, error) {
		ids, err := r.inner.BatchConvert(ctx, reqs)
		if err != nil {
			return nil, err
		}
		return &ids, nil
	})
	if err != nil {
		return nil, err
	}
	return *resp, nil
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
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		if provErr.StatusCode >= 500 {
			return true
		}
		if provErr.Code == "internal_error" {
			return true
		}
		return false
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
