package postgres

import (
	"context"
	"fmt"

	"github.com/ALI7-sys/CopIt/internal/domain"
)

// FXRepository is the append-only conversion ledger.
type FXRepository struct {
	db *DB
}

func NewFXRepository(db *DB) *FXRepository {
	return &FXRepository{db: db}
}

func (r *FXRepository) Append(ctx context.Context, record domain.ConversionRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO fx_transactions (transaction_id, source_currency, target_currency,
			source_amount, target_amount, rate, fee, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.TransactionID, record.SourceCurrency, record.TargetCurrency,
		record.SourceAmount, record.TargetAmount, record.Rate, record.Fee,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append fx transaction: %w", err)
	}
	return nil
}
