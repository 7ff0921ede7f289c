// Package services holds the orchestration services behind the HTTP layer
// and the fulfillment worker.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/domain"
)

// FXService orchestrates balance checks, rate lookups and conversions
// against the currency provider.
type FXService struct {
	client application.FXClient
	cache  application.RateCache
	ledger application.FXRepository
	logger *slog.Logger
}

func NewFXService(client application.FXClient, cache application.RateCache, ledger application.FXRepository, logger *slog.Logger) *FXService {
	return &FXService{
		client: client,
		cache:  cache,
		ledger: ledger,
		logger: logger,
	}
}

func (s *FXService) GetBalance(ctx context.Context, currency string) (domain.Money, error) {
	balance, err := s.client.Balance(ctx, currency)
	if err != nil {
		return domain.Money{}, application.NewGatewayError("payoneer", err)
	}
	return domain.NewMoney(balance, currency), nil
}

// GetRate returns the (rate, fee) pair for a currency pair, serving from the
// cache when fresh. Conversions price against the same cached quote.
func (s *FXService) GetRate(ctx context.Context, source, target string, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	pair := ratePairKey(source, target)

	cached, err := s.cache.Get(ctx, pair)
	if err != nil {
		s.logger.Warn("rate cache unavailable", "pair", pair, "error", err)
	}
	if cached != nil {
		return cached.Rate, cached.Fee, nil
	}

	rate, fee, err := s.client.Rate(ctx, source, target, amount)
	if err != nil {
		return decimal.Zero, decimal.Zero, application.NewGatewayError("payoneer", err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, decimal.Zero, application.NewInvalidRateError()
	}

	if err := s.cache.Set(ctx, pair, application.CachedRate{Rate: rate, Fee: fee}); err != nil {
		s.logger.Warn("rate cache write failed", "pair", pair, "error", err)
	}

	return rate, fee, nil
}

// Convert executes one conversion. The converted amount is checked against
// the target-currency balance before the remote call: the conversion settles
// into that balance, so that is the side that must cover it.
func (s *FXService) Convert(ctx context.Context, source, target string, amount decimal.Decimal) (*application.ConversionResult, error) {
	if !amount.IsPositive() {
		return nil, application.NewValidationError("Amount must be positive")
	}

	rate, fee, err := s.GetRate(ctx, source, target, amount)
	if err != nil {
		return nil, err
	}
	targetAmount := amount.Mul(rate).Sub(fee)

	balance, err := s.client.Balance(ctx, target)
	if err != nil {
		return nil, application.NewGatewayError("payoneer", err)
	}
	if balance.LessThan(targetAmount) {
		return nil, application.NewInsufficientBalanceError(targetAmount.String(), balance.String())
	}

	txID, err := s.client.Convert(ctx, application.ConversionRequest{
		SourceCurrency: source,
		TargetCurrency: target,
		Amount:         amount,
		Rate:           rate,
	})
	if err != nil {
		return nil, application.NewGatewayError("payoneer", err)
	}

	s.appendLedger(ctx, domain.ConversionRecord{
		TransactionID:  txID,
		SourceCurrency: source,
		TargetCurrency: target,
		SourceAmount:   amount,
		TargetAmount:   targetAmount,
		Rate:           rate,
		Fee:            fee,
		Timestamp:      time.Now().UTC(),
	})

	return &application.ConversionResult{
		TransactionID: txID,
		SourceAmount:  amount,
		TargetAmount:  targetAmount,
		Rate:          rate,
		Fee:           fee,
		Status:        "completed",
	}, nil
}

// BatchConvert converts several amounts between the same currency pair as
// one atomic remote call. One rate is quoted for the whole batch and one
// target-balance check covers the summed converted amount, so the batch
// either all executes or none of it does.
func (s *FXService) BatchConvert(ctx context.Context, source, target string, amounts []decimal.Decimal) ([]application.ConversionResult, error) {
	if len(amounts) == 0 {
		return nil, application.NewValidationError("Batch must contain at least one amount")
	}

	total := decimal.Zero
	for _, amount := range amounts {
		if !amount.IsPositive() {
			return nil, application.NewValidationError("All amounts must be positive")
		}
		total = total.Add(amount)
	}

	rate, fee, err := s.GetRate(ctx, source, target, total)
	if err != nil {
		return nil, err
	}

	totalConverted := decimal.Zero
	for _, amount := range amounts {
		totalConverted = totalConverted.Add(amount.Mul(rate).Sub(fee))
	}

	balance, err := s.client.Balance(ctx, target)
	if err != nil {
		return nil, application.NewGatewayError("payoneer", err)
	}
	if balance.LessThan(totalConverted) {
		return nil, application.NewInsufficientBalanceError(totalConverted.String(), balance.String())
	}

	reqs := make([]application.ConversionRequest, 0, len(amounts))
	for _, amount := range amounts {
		reqs = append(reqs, application.ConversionRequest{
			SourceCurrency: source,
			TargetCurrency: target,
			Amount:         amount,
			Rate:           rate,
		})
	}

	txIDs, err := s.client.BatchConvert(ctx, reqs)
	if err != nil {
		return nil, application.NewBatchConversionError(err)
	}

	results := make([]application.ConversionResult, 0, len(amounts))
	for i, amount := range amounts {
		targetAmount := amount.Mul(rate).Sub(fee)

		s.appendLedger(ctx, domain.ConversionRecord{
			TransactionID:  txIDs[i],
			SourceCurrency: source,
			TargetCurrency: target,
			SourceAmount:   amount,
			TargetAmount:   targetAmount,
			Rate:           rate,
			Fee:            fee,
			Timestamp:      time.Now().UTC(),
		})

		results = append(results, application.ConversionResult{
			TransactionID: txIDs[i],
			SourceAmount:  amount,
			TargetAmount:  targetAmount,
			Rate:          rate,
			Fee:           fee,
			Status:        "completed",
		})
	}

	return results, nil
}

// appendLedger records the conversion locally. The remote conversion already
// happened, so a ledger failure is logged but never unwinds the result.
func (s *FXService) appendLedger(ctx context.Context, record domain.ConversionRecord) {
	if err := s.ledger.Append(ctx, record); err != nil {
		s.logger.Error("fx ledger append failed",
			"transaction_id", record.TransactionID, "error", err)
	}
}

func ratePairKey(source, target string) string {
	return "fx:rate:" + source + ":" + target
}
